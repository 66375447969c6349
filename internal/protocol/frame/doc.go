// Package frame owns the DST block/bank transport layer.
//
// Ownership boundary:
// - fixed 32,000-byte block refill and command scanning
// - bank reassembly across CONTINUE / TO_BE_CONTINUED segments
// - lenient (warn and resync) vs strict (fail) handling of malformed streams
// - block stream writer and compressed file opener
//
// The demuxer is inherently sequential: bank boundaries depend on the
// accumulated stream state. Emitted payloads are owned by the caller.
package frame
