// Package fitbank decodes the conditional fit banks whose layout depends on
// bitmasks, failure codes or per-eye flags and so cannot be expressed as a
// declarative schema.
//
// Ownership boundary:
// - MSB-first fit masks and dense MaxFit slot tables
// - HCBIN, HCTIM, PRFC (mask gated)
// - STPLN, STPS2 (eye-flag gated)
//
// Every per-fit table has exactly MaxFit entries; every per-eye table has
// exactly maxeye entries. Slots that were not populated keep zero values and
// empty (non-nil) slices.
package fitbank
