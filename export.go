package settings

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ParameterDescriptor is the serializable description of one parameter, the
// shape a form or admin surface consumes.
type ParameterDescriptor struct {
	Name        string   `json:"name"`
	Property    string   `json:"property"`
	Type        string   `json:"type"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Nullable    bool     `json:"nullable,omitempty"`
	HasDefault  bool     `json:"hasDefault,omitempty"`
	Default     any      `json:"default,omitempty"`
	EnvVar      string   `json:"envVar,omitempty"`
	EnvMode     string   `json:"envMode,omitempty"`
	Rule        string   `json:"rule,omitempty"`
	RuleMessage string   `json:"ruleMessage,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

// EmbedDescriptor describes an embedded-settings binding.
type EmbedDescriptor struct {
	Property string `json:"property"`
	Target   string `json:"target"`
}

// SchemaDocument is the serializable description of one settings class.
type SchemaDocument struct {
	Class      string                `json:"class"`
	Name       string                `json:"name"`
	Storage    string                `json:"storage,omitempty"`
	Groups     []string              `json:"groups,omitempty"`
	Parameters []ParameterDescriptor `json:"parameters"`
	Embeds     []EmbedDescriptor     `json:"embeds,omitempty"`
}

// Export produces the descriptor document for md.
func Export(md *Metadata) SchemaDocument {
	doc := SchemaDocument{
		Class:   md.ClassName(),
		Name:    md.Name(),
		Storage: md.Storage(),
		Groups:  md.Groups(),
	}
	for _, p := range md.Parameters() {
		doc.Parameters = append(doc.Parameters, ParameterDescriptor{
			Name:        p.Name,
			Property:    p.PropertyName,
			Type:        p.TypeName,
			Label:       p.Label(),
			Description: p.Description(),
			Nullable:    p.Nullable,
			HasDefault:  p.HasDefault,
			Default:     p.Default,
			EnvVar:      p.EnvVar,
			EnvMode:     envModeDescriptor(p.EnvMode),
			Rule:        p.Rule,
			RuleMessage: p.RuleMessage,
			Choices:     append([]string{}, p.Choices...),
			Groups:      append([]string{}, p.Groups...),
		})
	}
	for _, embed := range md.Embeds() {
		doc.Embeds = append(doc.Embeds, EmbedDescriptor{
			Property: embed.PropertyName,
			Target:   embed.TargetClass,
		})
	}
	return doc
}

func envModeDescriptor(mode EnvVarMode) string {
	if mode == EnvVarNone {
		return ""
	}
	return mode.String()
}

// ExportJSONSchema produces a JSON Schema for md via structural reflection,
// enriched with the declarative metadata the tags carry: title, description,
// default, and enum per parameter. Embedded-settings properties are pruned;
// they belong to their own class document.
func ExportJSONSchema(md *Metadata) ([]byte, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.ReflectFromType(md.GoType())
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.Title = md.Name()

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("settings: export %s: %w", md.ClassName(), err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("settings: export %s: %w", md.ClassName(), err)
	}

	props, _ := doc["properties"].(map[string]any)
	if props != nil {
		for _, embed := range md.Embeds() {
			delete(props, embed.PropertyName)
		}
		for _, p := range md.Parameters() {
			entry, ok := props[p.PropertyName].(map[string]any)
			if !ok {
				continue
			}
			entry["title"] = p.Label()
			if description := p.Description(); description != "" {
				entry["description"] = description
			}
			if p.HasDefault {
				entry["default"] = p.Default
			}
			if len(p.Choices) > 0 {
				choices := make([]any, len(p.Choices))
				for i, choice := range p.Choices {
					choices[i] = choice
				}
				entry["enum"] = choices
			}
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("settings: export %s: %w", md.ClassName(), err)
	}
	return out, nil
}
