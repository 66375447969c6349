// Package schema owns declarative bank layouts.
//
// Ownership boundary:
// - typed field kinds (primitive, interleaved_sequence, bulk_jagged, interleaved_mixed)
// - load-time validation of cross-field references
// - YAML / TOML definition files and the by-name / by-id catalog
//
// A Schema that passed Validate never fails a reference lookup at decode time;
// only data-dependent errors (underrun, negative or mismatched counts) remain.
package schema
