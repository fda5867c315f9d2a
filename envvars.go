package settings

import (
	"fmt"
	"os"
)

// OSEnvResolver resolves parameter env bindings against the process
// environment. Lookup can be replaced for tests; Mappers holds the named
// transforms referenced by `mapper=` in env tags.
type OSEnvResolver struct {
	Lookup  func(name string) (string, bool)
	Mappers map[string]EnvMapper
}

// NewOSEnvResolver constructs a resolver over os.LookupEnv with the supplied
// mapper registry.
func NewOSEnvResolver(mappers map[string]EnvMapper) *OSEnvResolver {
	return &OSEnvResolver{Lookup: os.LookupEnv, Mappers: mappers}
}

// Has implements EnvResolver.
func (r *OSEnvResolver) Has(p *ParameterSchema) bool {
	if r == nil || p == nil || p.EnvVar == "" {
		return false
	}
	_, ok := r.lookup(p.EnvVar)
	return ok
}

// Resolve implements EnvResolver. The raw environment string passes through
// the parameter's named mapper when one is declared; otherwise it is returned
// as-is and the parameter type's documented string coercions apply downstream.
func (r *OSEnvResolver) Resolve(p *ParameterSchema) (any, error) {
	if p == nil || p.EnvVar == "" {
		return nil, fmt.Errorf("settings: parameter has no env binding")
	}
	raw, ok := r.lookup(p.EnvVar)
	if !ok {
		return nil, fmt.Errorf("settings: env var %q is not set", p.EnvVar)
	}
	if p.EnvMapper == "" {
		return raw, nil
	}
	mapper, ok := r.Mappers[p.EnvMapper]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s.%s", ErrUnknownEnvMapper, p.EnvMapper, p.ClassName, p.Name)
	}
	return mapper(raw)
}

func (r *OSEnvResolver) lookup(name string) (string, bool) {
	if r.Lookup != nil {
		return r.Lookup(name)
	}
	return os.LookupEnv(name)
}
