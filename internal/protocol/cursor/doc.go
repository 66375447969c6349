// Package cursor owns bounds-checked byte access for bank payloads.
//
// Ownership boundary:
// - element type table (int8/16/32, float32/64)
// - forward-only typed reads with explicit byte order
// - symmetric writer used by encoders and test fixtures
package cursor
