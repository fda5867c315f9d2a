package settings

import (
	"strings"
	"time"
)

// Definable marks a struct as a settings class. The returned Definition is the
// class-level declarative marker: it may override the logical name and route
// the class to a named storage adapter. Implement it on the value receiver so
// a zero value is enough to read the definition.
type Definable interface {
	SettingsDefinition() Definition
}

// Definition carries class-level declarative metadata.
type Definition struct {
	Name    string
	Storage string
	Groups  []string
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// WithStorage routes the class to the storage adapter registered under name.
func WithStorage(name string) DefinitionOption {
	return func(d *Definition) {
		d.Storage = name
	}
}

// WithGroups records group membership for every parameter of the class.
func WithGroups(groups ...string) DefinitionOption {
	return func(d *Definition) {
		d.Groups = append([]string{}, groups...)
	}
}

// Define builds a Definition. An empty name defers to the synthesized default
// (type short name, "Settings" suffix stripped, lower-cased).
func Define(name string, opts ...DefinitionOption) Definition {
	def := Definition{Name: strings.TrimSpace(name)}
	for _, opt := range opts {
		if opt != nil {
			opt(&def)
		}
	}
	return def
}

// Resettable is the optional capability a settings struct implements to apply
// defaults beyond what `default` tags can express. The resetter invokes it
// after tag defaults have been assigned.
type Resettable interface {
	ResetToDefaults()
}

// Validatable is the optional capability for whole-instance validation. Its
// failures surface under the "*" key of a Violations set.
type Validatable interface {
	Validate() error
}

// EnvVarMode controls how an environment binding interacts with storage.
type EnvVarMode int

const (
	// EnvVarNone means the parameter has no environment binding.
	EnvVarNone EnvVarMode = iota
	// EnvVarInitial applies the env value only when storage holds no value.
	EnvVarInitial
	// EnvVarOverwrite lets the env value shadow storage without ever being
	// written back.
	EnvVarOverwrite
	// EnvVarOverwritePersist lets the env value shadow storage and persists
	// the override on save.
	EnvVarOverwritePersist
)

func (m EnvVarMode) String() string {
	switch m {
	case EnvVarInitial:
		return "initial"
	case EnvVarOverwrite:
		return "overwrite"
	case EnvVarOverwritePersist:
		return "overwrite-persist"
	default:
		return "none"
	}
}

func (m EnvVarMode) overwrites() bool {
	return m == EnvVarOverwrite || m == EnvVarOverwritePersist
}

// EnvMapper transforms a raw environment value before type conversion.
type EnvMapper func(raw string) (any, error)

// EnvResolver supplies environment values for parameters with env bindings.
type EnvResolver interface {
	Has(p *ParameterSchema) bool
	Resolve(p *ParameterSchema) (any, error)
}

// SchemaCache is the secondary schema cache consulted outside debug mode,
// keyed by a stable hash of the class identity.
type SchemaCache interface {
	Get(key string) (*Schema, bool)
	Set(key string, schema *Schema)
}

// ProgramCache stores compiled rule programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// RuleContext carries the inputs bound into a validation rule expression.
type RuleContext struct {
	Value    any
	Name     string
	Settings map[string]any
	Now      *time.Time
	Args     map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Settings == nil {
		ctx.Settings = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable rule program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}
