// Package observability provides structured logging and Prometheus metrics
// for the travel agent service.
//
// This package implements:
//   - zap logger construction from level and format settings
//   - Request ID aware log fields
//   - Prometheus collectors for HTTP traffic, place search and agent runs
package observability
