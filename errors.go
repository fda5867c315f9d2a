package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotSettings indicates a type that does not implement Definable.
	ErrNotSettings = errors.New("settings: type is not a settings struct")
	// ErrUnknownSettings indicates a name with no registered settings struct.
	ErrUnknownSettings = errors.New("settings: unknown settings name")
	// ErrUnknownParameter indicates a lookup for a parameter the schema does
	// not declare.
	ErrUnknownParameter = errors.New("settings: unknown parameter")
	// ErrDuplicateParameter indicates two fields resolving to the same logical
	// or property name within one schema.
	ErrDuplicateParameter = errors.New("settings: duplicate parameter")
	// ErrUnknownStorage indicates metadata routing to an unregistered adapter.
	ErrUnknownStorage = errors.New("settings: unknown storage adapter")
	// ErrUnknownEnvMapper indicates an env binding referencing an unregistered
	// mapper name.
	ErrUnknownEnvMapper = errors.New("settings: unknown env mapper")
)

// SchemaError reports a misdeclared settings struct. Schema errors signal
// programming mistakes and are never recoverable at call time.
type SchemaError struct {
	Class    string
	Property string
	Err      error
}

func (e *SchemaError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Property != "" {
		return fmt.Sprintf("settings: schema for %s, property %s: %v", e.Class, e.Property, e.Err)
	}
	return fmt.Sprintf("settings: schema for %s: %v", e.Class, e.Err)
}

func (e *SchemaError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func schemaError(class, property string, err error) error {
	if err == nil {
		return nil
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return err
	}
	return &SchemaError{Class: class, Property: property, Err: err}
}

// ConversionError reports a normalized/native conversion failure for one
// parameter. Conversion errors are fatal to the hydrate or persist operation
// that produced them.
type ConversionError struct {
	Class     string
	Parameter string
	Type      string
	Value     any
	Err       error
}

func (e *ConversionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("settings: convert %s.%s (%s) value %v: %v", e.Class, e.Parameter, e.Type, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Violations maps logical parameter names to ordered violation messages. The
// reserved key "*" carries whole-instance violations reported by the
// Validatable capability.
type Violations map[string][]string

// Empty reports whether the set contains no violations.
func (v Violations) Empty() bool {
	return len(v) == 0
}

// Parameters returns the violated parameter names sorted alphabetically.
func (v Violations) Parameters() []string {
	if len(v) == 0 {
		return nil
	}
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveError aggregates validation failures across every class touched by one
// save. When a SaveError is returned nothing was persisted.
type SaveError struct {
	Violations map[string]Violations
}

func (e *SaveError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "settings: save aborted by validation"
	}
	classes := make([]string, 0, len(e.Violations))
	for class := range e.Violations {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	parts := make([]string, 0, len(classes))
	for _, class := range classes {
		parts = append(parts, fmt.Sprintf("%s[%s]", class, strings.Join(e.Violations[class].Parameters(), ", ")))
	}
	return fmt.Sprintf("settings: save aborted, validation failed for %s", strings.Join(parts, "; "))
}

// For returns the violations recorded for class, or nil.
func (e *SaveError) For(class string) Violations {
	if e == nil {
		return nil
	}
	return e.Violations[class]
}
