// Package protocol owns schema-driven bank decoding.
//
// Ownership boundary:
// - Decode: execute a schema layout against a bank payload
// - Encode: the inverse, used for fixtures and the pack tool
// - Value / Record: decoded scalar, array and jagged values
//
// Byte-level reads live in protocol/cursor, layouts in protocol/schema and
// block/bank framing in protocol/frame.
package protocol
