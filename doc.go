// Package settings implements a typed settings lifecycle for Go applications:
// schema derivation from declarative struct markers, hydration and persistence
// through pluggable storage adapters, validation, default resets, lazy embedded
// settings, and environment-variable overrides.
//
// Responsibilities:
//   - SchemaManager derives one immutable Schema per settings struct from its
//     Definition and `settings` struct tags, memoized for the process lifetime.
//   - MetadataManager layers embed bindings, storage routing, and cascade
//     closures on top of schemas.
//   - Hydrator moves parameter values between live instances and a
//     storage.Adapter through bidirectional ParameterType conversion.
//   - Manager owns the identity map: one live instance per settings struct per
//     generation, shared between owners through lazy cells.
//
// Data flow:
//
//	storage.Adapter -> Hydrator -> instance -> Validator -> Hydrator -> storage.Adapter
//
// A settings struct is any type implementing Definable. Parameters are fields
// carrying a `settings` tag; embedded settings are Lazy fields tagged
// `settings:"embed"`. Save is two-phase: every target in the cascade closure is
// validated first, and nothing is persisted unless every target is clean.
package settings
