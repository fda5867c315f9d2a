package settings

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ParameterType converts between the storage-normalized representation of a
// value and its native Go form. The normalized domain is limited to int64,
// float64, bool, string, []any, and nil — the portable subset any storage
// backend can hold. Adapters coerce only what their contract documents;
// anything else is a ConversionError at the call site.
type ParameterType interface {
	Name() string
	ToNormalized(native any, p *ParameterSchema) (any, error)
	ToNative(normalized any, p *ParameterSchema) (any, error)
}

// builtinParameterTypes returns the default adapter set keyed by type name.
func builtinParameterTypes() map[string]ParameterType {
	types := map[string]ParameterType{}
	for _, t := range []ParameterType{
		stringType{}, intType{}, floatType{}, boolType{},
		enumType{}, stringsType{}, timeType{}, durationType{},
	} {
		types[t.Name()] = t
	}
	return types
}

// inferParameterType picks an adapter from the Go field type when the tag
// declares none. Pointer fields infer from their element type.
func inferParameterType(t reflect.Type, registry map[string]ParameterType) (ParameterType, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == reflect.TypeOf(time.Time{}):
		return registry["time"], nil
	case t == reflect.TypeOf(time.Duration(0)):
		return registry["duration"], nil
	}
	switch t.Kind() {
	case reflect.String:
		return registry["string"], nil
	case reflect.Bool:
		return registry["bool"], nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return registry["int"], nil
	case reflect.Float32, reflect.Float64:
		return registry["float"], nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return registry["strings"], nil
		}
	}
	return nil, fmt.Errorf("no parameter type for Go type %s", t)
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) ToNormalized(native any, _ *ParameterSchema) (any, error) {
	s, ok := native.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", native)
	}
	return s, nil
}

func (stringType) ToNative(normalized any, _ *ParameterSchema) (any, error) {
	s, ok := normalized.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", normalized)
	}
	return s, nil
}

// intType coerces numeric strings and integral floats on the way in; nothing
// else.
type intType struct{}

func (intType) Name() string { return "int" }

func (intType) ToNormalized(native any, _ *ParameterSchema) (any, error) {
	if n, ok := asInt64(native); ok {
		return n, nil
	}
	return nil, fmt.Errorf("expected integer, got %T", native)
}

func (intType) ToNative(normalized any, _ *ParameterSchema) (any, error) {
	if n, ok := asInt64(normalized); ok {
		return n, nil
	}
	switch v := normalized.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
		return nil, fmt.Errorf("float %v is not integral", v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("string %q is not an integer", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("expected integer, got %T", normalized)
}

type floatType struct{}

func (floatType) Name() string { return "float" }

func (floatType) ToNormalized(native any, _ *ParameterSchema) (any, error) {
	if f, ok := asFloat64(native); ok {
		return f, nil
	}
	return nil, fmt.Errorf("expected float, got %T", native)
}

func (floatType) ToNative(normalized any, _ *ParameterSchema) (any, error) {
	if f, ok := asFloat64(normalized); ok {
		return f, nil
	}
	if s, ok := normalized.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("string %q is not a float", s)
		}
		return f, nil
	}
	return nil, fmt.Errorf("expected float, got %T", normalized)
}

// boolType accepts the usual textual spellings ("true"/"false", "1"/"0",
// "yes"/"no") so env bindings work without a mapper.
type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) ToNormalized(native any, _ *ParameterSchema) (any, error) {
	b, ok := native.(bool)
	if !ok {
		return nil, fmt.Errorf("expected bool, got %T", native)
	}
	return b, nil
}

func (boolType) ToNative(normalized any, _ *ParameterSchema) (any, error) {
	switch v := normalized.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
		return nil, fmt.Errorf("string %q is not a bool", v)
	}
	if n, ok := asInt64(normalized); ok && (n == 0 || n == 1) {
		return n == 1, nil
	}
	return nil, fmt.Errorf("expected bool, got %T", normalized)
}

// enumType is a string constrained to the choices declared on the parameter.
type enumType struct{}

func (enumType) Name() string { return "enum" }

func (enumType) ToNormalized(native any, p *ParameterSchema) (any, error) {
	s, ok := native.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", native)
	}
	if err := checkChoice(s, p); err != nil {
		return nil, err
	}
	return s, nil
}

func (enumType) ToNative(normalized any, p *ParameterSchema) (any, error) {
	s, ok := normalized.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", normalized)
	}
	if err := checkChoice(s, p); err != nil {
		return nil, err
	}
	return s, nil
}

func checkChoice(value string, p *ParameterSchema) error {
	if p == nil || len(p.Choices) == 0 {
		return fmt.Errorf("enum parameter declares no choices")
	}
	for _, choice := range p.Choices {
		if choice == value {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %s", value, strings.Join(p.Choices, ", "))
}

// stringsType is an ordered sequence of strings. A bare string coerces by
// splitting on commas, which keeps env bindings usable.
type stringsType struct{}

func (stringsType) Name() string { return "strings" }

func (stringsType) ToNormalized(native any, _ *ParameterSchema) (any, error) {
	items, ok := native.([]string)
	if !ok {
		return nil, fmt.Errorf("expected []string, got %T", native)
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out, nil
}

func (stringsType) ToNative(normalized any, _ *ParameterSchema) (any, error) {
	switch v := normalized.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("sequence element %d is %T, not string", i, item)
			}
			out[i] = s
		}
		return out, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, len(parts))
		for i, part := range parts {
			out[i] = strings.TrimSpace(part)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected string sequence, got %T", normalized)
}

// timeType stores instants as RFC3339 strings.
type timeType struct{}

func (timeType) Name() string { return "time" }

func (timeType) ToNormalized(native any, _ *ParameterSchema) (any, error) {
	t, ok := native.(time.Time)
	if !ok {
		return nil, fmt.Errorf("expected time.Time, got %T", native)
	}
	return t.Format(time.RFC3339Nano), nil
}

func (timeType) ToNative(normalized any, _ *ParameterSchema) (any, error) {
	switch v := normalized.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("string %q is not RFC3339", v)
		}
		return t, nil
	}
	return nil, fmt.Errorf("expected RFC3339 string, got %T", normalized)
}

// durationType stores durations in Go's duration string syntax.
type durationType struct{}

func (durationType) Name() string { return "duration" }

func (durationType) ToNormalized(native any, _ *ParameterSchema) (any, error) {
	d, ok := native.(time.Duration)
	if !ok {
		return nil, fmt.Errorf("expected time.Duration, got %T", native)
	}
	return d.String(), nil
}

func (durationType) ToNative(normalized any, _ *ParameterSchema) (any, error) {
	switch v := normalized.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("string %q is not a duration", v)
		}
		return d, nil
	}
	if n, ok := asInt64(normalized); ok {
		return time.Duration(n), nil
	}
	return nil, fmt.Errorf("expected duration string, got %T", normalized)
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if n, ok := asInt64(value); ok {
		return float64(n), true
	}
	return 0, false
}
