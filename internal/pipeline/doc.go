// Package pipeline drives one decode run: demux, parallel bank decode and
// in-order event assembly.
//
// Ownership boundary:
// - batching banks from a single sequential demuxer
// - bounded worker pool for per-bank decoding
// - stream-ordered event emission and run statistics
package pipeline
