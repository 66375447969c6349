// Package observability owns decode metrics and the metrics HTTP endpoint.
//
// Ownership boundary:
// - prometheus collectors for stream, bank and event counts
// - gin router serving /health, /metrics and /status
// - request logging and request metrics middleware
package observability
