package storage

import (
	"context"
	"time"
)

// Meta is storage-owned metadata stamped on writes, used for trace/audit.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Adapter persists normalized parameter values for settings classes. Each
// settings class may bind to a different adapter. Absent values must be
// reported via ok=false, never as a nil value: a stored null is a legal value
// for nullable parameters.
type Adapter interface {
	Read(ctx context.Context, class, key string) (value any, ok bool, err error)
	Write(ctx context.Context, class, key string, value any) error
}

// MetaProvider is the optional capability adapters implement when they track
// per-class snapshot metadata.
type MetaProvider interface {
	Meta(class string) (Meta, bool)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
