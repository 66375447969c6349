// Package dispatch maps bank ids to decoders.
//
// Ownership boundary:
// - decoder registry keyed by bank id (schema, fit bank and marker decoders)
// - schema lookup failures for unknown banks
//
// Registries are built once and then only read; concurrent Decode calls are safe.
package dispatch
