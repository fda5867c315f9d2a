package settings

import (
	"reflect"
)

// Metadata extends a Schema with the routing information the lifecycle needs:
// embedded-settings bindings, group membership, and the storage adapter the
// class persists through.
type Metadata struct {
	*Schema
}

// Storage returns the storage adapter name the class binds to, or "" for the
// default adapter.
func (m *Metadata) Storage() string {
	return m.definition.Storage
}

// Groups returns class-level group membership.
func (m *Metadata) Groups() []string {
	return append([]string{}, m.definition.Groups...)
}

// Embeds returns the embedded-settings bindings in declaration order.
func (m *Metadata) Embeds() []EmbeddedBinding {
	out := make([]EmbeddedBinding, len(m.embeds))
	copy(out, m.embeds)
	return out
}

// MetadataManager resolves metadata and cascade closures. Embedded bindings
// form a directed graph over settings structs that may contain cycles; the
// closure resolver guards traversal with a visited set.
type MetadataManager struct {
	schemas *SchemaManager
}

// NewMetadataManager constructs a MetadataManager over schemas.
func NewMetadataManager(schemas *SchemaManager) *MetadataManager {
	return &MetadataManager{schemas: schemas}
}

// Metadata returns the metadata for t, deriving the schema on first use.
func (mm *MetadataManager) Metadata(t reflect.Type) (*Metadata, error) {
	schema, err := mm.schemas.Schema(t)
	if err != nil {
		return nil, err
	}
	return &Metadata{Schema: schema}, nil
}

// Closure resolves the cascade closure of t: every settings struct reachable
// by following embedded bindings, t itself first, each class exactly once.
func (mm *MetadataManager) Closure(t reflect.Type) ([]reflect.Type, error) {
	t, err := settingsType(t)
	if err != nil {
		return nil, err
	}
	visited := map[reflect.Type]struct{}{}
	var order []reflect.Type

	queue := []reflect.Type{t}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		order = append(order, current)

		md, err := mm.Metadata(current)
		if err != nil {
			return nil, err
		}
		for _, embed := range md.embeds {
			if _, seen := visited[embed.Target]; !seen {
				queue = append(queue, embed.Target)
			}
		}
	}
	return order, nil
}
