// Package storage defines the persistence-facing contracts of the settings
// lifecycle: an Adapter loads and saves normalized parameter values keyed by
// settings class and parameter name, and storage-owned Meta records snapshot
// provenance for audit.
//
// Responsibilities:
//   - Adapter only reads/writes single normalized values; hydration, type
//     conversion, and env overrides stay in the core settings package.
//   - Normalized values are limited to int64, float64, bool, string, []any,
//     and nil. An absent value is reported through the ok return and is
//     distinguishable from a stored null.
//   - File-backed adapters flush atomically (temp file + rename) and stamp
//     Meta with a fresh snapshot ID on every write.
//
// Data flow:
//
//	Adapter -> settings.Hydrator -> instance -> settings.Hydrator -> Adapter
package storage
