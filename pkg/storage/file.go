package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// fileDocument is the on-disk layout shared by the file-backed adapters.
// classValues keeps explicit nulls: a key present with a nil value is a stored
// null, not an absence.
type fileDocument struct {
	Classes map[string]map[string]any `json:"classes" yaml:"classes"`
	Meta    map[string]Meta           `json:"meta,omitempty" yaml:"meta,omitempty"`
}

type fileCodec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// FileAdapter persists normalized values in a single document on disk. The
// document is read once and held in memory; every write flushes atomically
// via a temp file rename next to the target path.
type FileAdapter struct {
	path  string
	codec fileCodec

	mu     sync.Mutex
	loaded bool
	doc    fileDocument
}

// NewJSONFileAdapter constructs a FileAdapter encoding JSON at path.
func NewJSONFileAdapter(path string) *FileAdapter {
	return &FileAdapter{
		path: path,
		codec: fileCodec{
			marshal:   func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
			unmarshal: json.Unmarshal,
		},
	}
}

// NewYAMLFileAdapter constructs a FileAdapter encoding YAML at path.
func NewYAMLFileAdapter(path string) *FileAdapter {
	return &FileAdapter{
		path: path,
		codec: fileCodec{
			marshal:   func(v any) ([]byte, error) { return yaml.Marshal(v) },
			unmarshal: func(data []byte, v any) error { return yaml.Unmarshal(data, v) },
		},
	}
}

// Read implements Adapter.
func (a *FileAdapter) Read(_ context.Context, class, key string) (any, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(); err != nil {
		return nil, false, err
	}
	values, ok := a.doc.Classes[class]
	if !ok {
		return nil, false, nil
	}
	value, ok := values[key]
	if !ok {
		return nil, false, nil
	}
	return cloneValue(value), true, nil
}

// Write implements Adapter.
func (a *FileAdapter) Write(_ context.Context, class, key string, value any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(); err != nil {
		return err
	}
	if a.doc.Classes == nil {
		a.doc.Classes = map[string]map[string]any{}
	}
	values, ok := a.doc.Classes[class]
	if !ok {
		values = map[string]any{}
		a.doc.Classes[class] = values
	}
	values[key] = cloneValue(value)
	if a.doc.Meta == nil {
		a.doc.Meta = map[string]Meta{}
	}
	a.doc.Meta[class] = Meta{SnapshotID: uuid.NewString(), UpdatedAt: time.Now().UTC()}
	return a.flush()
}

// Meta implements MetaProvider.
func (a *FileAdapter) Meta(class string) (Meta, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(); err != nil {
		return Meta{}, false
	}
	meta, ok := a.doc.Meta[class]
	if !ok {
		return Meta{}, false
	}
	return cloneMeta(meta), true
}

func (a *FileAdapter) load() error {
	if a.loaded {
		return nil
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.doc = fileDocument{}
			a.loaded = true
			return nil
		}
		return fmt.Errorf("storage: read %s: %w", a.path, err)
	}
	var doc fileDocument
	if len(data) > 0 {
		if err := a.codec.unmarshal(data, &doc); err != nil {
			return fmt.Errorf("storage: decode %s: %w", a.path, err)
		}
	}
	a.doc = doc
	a.loaded = true
	return nil
}

func (a *FileAdapter) flush() error {
	data, err := a.codec.marshal(a.doc)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", a.path, err)
	}
	dir := filepath.Dir(a.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(a.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, a.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: replace %s: %w", a.path, err)
	}
	return nil
}
