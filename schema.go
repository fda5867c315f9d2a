package settings

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// ParameterSchema describes one configurable field of a settings struct.
type ParameterSchema struct {
	ClassName    string
	PropertyName string
	// Name is the logical parameter name, defaulting to the property name
	// with a lower-cased first rune when the tag supplies none.
	Name        string
	Type        ParameterType
	TypeName    string
	Nullable    bool
	HasDefault  bool
	Default     any
	EnvVar      string
	EnvMode     EnvVarMode
	EnvMapper   string
	Rule        string
	RuleMessage string
	Choices     []string
	Groups      []string
	// Extra holds free-form declaration options (label, description, UI
	// hints) that the lifecycle core treats as opaque.
	Extra map[string]string

	fieldIndex []int
	fieldType  reflect.Type
}

// Label returns the declared label, falling back to the logical name.
func (p *ParameterSchema) Label() string {
	if label := p.Extra["label"]; label != "" {
		return label
	}
	return p.Name
}

// Description returns the declared description, or "".
func (p *ParameterSchema) Description() string {
	return p.Extra["description"]
}

// EmbeddedBinding records one embedded-settings edge: the hosting property and
// the target settings struct.
type EmbeddedBinding struct {
	PropertyName string
	Target       reflect.Type
	TargetClass  string

	fieldIndex []int
}

// Schema is the immutable structural description of one settings struct:
// its parameters indexed by logical name and by property name. Built once per
// class and cached; both indices are unique within a schema.
type Schema struct {
	className  string
	name       string
	goType     reflect.Type
	definition Definition
	params     []*ParameterSchema
	byName     map[string]*ParameterSchema
	byProperty map[string]*ParameterSchema
	embeds     []EmbeddedBinding
}

// ClassName returns the canonical class identity string (pkgpath.TypeName).
func (s *Schema) ClassName() string { return s.className }

// Name returns the logical settings name used by the registry.
func (s *Schema) Name() string { return s.name }

// GoType returns the settings struct type.
func (s *Schema) GoType() reflect.Type { return s.goType }

// Parameters returns the parameters in declaration order.
func (s *Schema) Parameters() []*ParameterSchema {
	out := make([]*ParameterSchema, len(s.params))
	copy(out, s.params)
	return out
}

// Parameter resolves a logical parameter name, failing explicitly when the
// schema does not declare it.
func (s *Schema) Parameter(name string) (*ParameterSchema, error) {
	p, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s", ErrUnknownParameter, name, s.className)
	}
	return p, nil
}

// ParameterByProperty resolves a Go property name, failing explicitly when no
// parameter is declared on that property.
func (s *Schema) ParameterByProperty(property string) (*ParameterSchema, error) {
	p, ok := s.byProperty[property]
	if !ok {
		return nil, fmt.Errorf("%w: property %q on %s", ErrUnknownParameter, property, s.className)
	}
	return p, nil
}

var (
	lazyBinderType = reflect.TypeOf((*lazyBinder)(nil)).Elem()
	definableType  = reflect.TypeOf((*Definable)(nil)).Elem()
)

// settingsType normalizes a target type to its struct form and verifies the
// Definable marker is present.
func settingsType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, ErrNotSettings
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotSettings, t)
	}
	if !t.Implements(definableType) && !reflect.PointerTo(t).Implements(definableType) {
		return nil, fmt.Errorf("%w: %s", ErrNotSettings, t)
	}
	return t, nil
}

func definitionOf(t reflect.Type) Definition {
	if t.Implements(definableType) {
		return reflect.New(t).Elem().Interface().(Definable).SettingsDefinition()
	}
	return reflect.New(t).Interface().(Definable).SettingsDefinition()
}

func className(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// synthesizeName derives the default logical name from the type short name:
// the "Settings" suffix is stripped and the remainder lower-cased.
func synthesizeName(t reflect.Type) string {
	short := t.Name()
	if trimmed := strings.TrimSuffix(short, "Settings"); trimmed != "" {
		short = trimmed
	}
	return strings.ToLower(short)
}

func buildSchema(t reflect.Type, types map[string]ParameterType) (*Schema, error) {
	t, err := settingsType(t)
	if err != nil {
		return nil, err
	}
	class := className(t)
	def := definitionOf(t)

	schema := &Schema{
		className:  class,
		name:       def.Name,
		goType:     t,
		definition: def,
		byName:     map[string]*ParameterSchema{},
		byProperty: map[string]*ParameterSchema{},
	}
	if schema.name == "" {
		schema.name = synthesizeName(t)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("settings")
		if !ok || tag == "-" {
			continue
		}
		if field.PkgPath != "" {
			return nil, schemaError(class, field.Name, fmt.Errorf("tagged field is unexported"))
		}

		if hasTagToken(tag, "embed") {
			binding, err := buildEmbed(field)
			if err != nil {
				return nil, schemaError(class, field.Name, err)
			}
			schema.embeds = append(schema.embeds, binding)
			continue
		}

		p, err := buildParameter(class, field, def, types)
		if err != nil {
			return nil, schemaError(class, field.Name, err)
		}
		if _, exists := schema.byName[p.Name]; exists {
			return nil, schemaError(class, field.Name, fmt.Errorf("%w: name %q", ErrDuplicateParameter, p.Name))
		}
		if _, exists := schema.byProperty[p.PropertyName]; exists {
			return nil, schemaError(class, field.Name, fmt.Errorf("%w: property %q", ErrDuplicateParameter, p.PropertyName))
		}
		schema.params = append(schema.params, p)
		schema.byName[p.Name] = p
		schema.byProperty[p.PropertyName] = p
	}

	return schema, nil
}

func buildEmbed(field reflect.StructField) (EmbeddedBinding, error) {
	binder, ok := reflect.New(field.Type).Interface().(lazyBinder)
	if !ok {
		return EmbeddedBinding{}, fmt.Errorf("embed field must be a settings.Lazy, got %s", field.Type)
	}
	target := binder.targetType()
	if target.Kind() != reflect.Pointer || target.Elem().Kind() != reflect.Struct {
		return EmbeddedBinding{}, fmt.Errorf("embed target must be a pointer to a settings struct, got %s", target)
	}
	elem, err := settingsType(target)
	if err != nil {
		return EmbeddedBinding{}, err
	}
	return EmbeddedBinding{
		PropertyName: field.Name,
		Target:       elem,
		TargetClass:  className(elem),
		fieldIndex:   field.Index,
	}, nil
}

func buildParameter(class string, field reflect.StructField, def Definition, types map[string]ParameterType) (*ParameterSchema, error) {
	p := &ParameterSchema{
		ClassName:    class,
		PropertyName: field.Name,
		Name:         lowerFirst(field.Name),
		Nullable:     field.Type.Kind() == reflect.Pointer,
		Groups:       append([]string{}, def.Groups...),
		Extra:        map[string]string{},
		fieldIndex:   field.Index,
		fieldType:    field.Type,
	}

	explicitType := ""
	for _, token := range strings.Split(field.Tag.Get("settings"), ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key, value, hasValue := strings.Cut(token, "=")
		switch {
		case key == "nullable" && !hasValue:
			p.Nullable = true
		case key == "name":
			p.Name = value
		case key == "type":
			explicitType = value
		case key == "choices":
			p.Choices = splitList(value)
		case key == "groups":
			p.Groups = splitList(value)
		default:
			if hasValue {
				p.Extra[key] = value
			} else {
				p.Extra[key] = "true"
			}
		}
	}
	if p.Name == "" {
		return nil, fmt.Errorf("parameter name must not be empty")
	}

	switch {
	case explicitType != "":
		t, ok := types[explicitType]
		if !ok {
			return nil, fmt.Errorf("unknown parameter type %q", explicitType)
		}
		p.Type = t
	case len(p.Choices) > 0:
		p.Type = types["enum"]
	default:
		inferred, err := inferParameterType(field.Type, types)
		if err != nil {
			return nil, err
		}
		p.Type = inferred
	}
	p.TypeName = p.Type.Name()

	if envTag, ok := field.Tag.Lookup("env"); ok {
		if err := parseEnvTag(p, envTag); err != nil {
			return nil, err
		}
	}
	p.Rule = field.Tag.Get("rule")
	p.RuleMessage = field.Tag.Get("ruleMessage")

	if raw, ok := field.Tag.Lookup("default"); ok {
		native, err := p.Type.ToNative(raw, p)
		if err != nil {
			return nil, fmt.Errorf("default %q: %w", raw, err)
		}
		p.Default = native
		p.HasDefault = true
	}

	return p, nil
}

func parseEnvTag(p *ParameterSchema, tag string) error {
	tokens := strings.Split(tag, ",")
	p.EnvVar = strings.TrimSpace(tokens[0])
	if p.EnvVar == "" {
		return fmt.Errorf("env binding must name a variable")
	}
	p.EnvMode = EnvVarInitial
	for _, token := range tokens[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(token), "=")
		switch key {
		case "mode":
			switch value {
			case "initial":
				p.EnvMode = EnvVarInitial
			case "overwrite":
				p.EnvMode = EnvVarOverwrite
			case "overwrite-persist":
				p.EnvMode = EnvVarOverwritePersist
			default:
				return fmt.Errorf("unknown env mode %q", value)
			}
		case "mapper":
			p.EnvMapper = value
		default:
			return fmt.Errorf("unknown env option %q", key)
		}
	}
	return nil
}

func hasTagToken(tag, want string) bool {
	for _, token := range strings.Split(tag, ",") {
		if strings.TrimSpace(token) == want {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lowerFirst(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
