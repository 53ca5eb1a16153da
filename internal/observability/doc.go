// Package observability provides structured logging and metrics for the
// procurement service.
//
// This package implements:
//   - zap logger construction from LOG_LEVEL and LOG_FORMAT
//   - Prometheus counters and histograms on a private registry
//
// Metrics methods are safe to call on a nil *Metrics so that services can be
// constructed without instrumentation in tests.
package observability
