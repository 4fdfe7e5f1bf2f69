// Package observability provides structured logging, Prometheus metrics,
// health probes and graceful shutdown for the labtrack service.
//
// Logging is JSON via stdlib slog, wrapped in a small Logger type so call
// sites can chain contextual fields:
//
//	logger.WithField("user_id", id).WithError(err).Warn("login failed")
//
// Metrics are registered against an explicit prometheus.Registry passed in
// by the caller; nothing registers against the global default registry, so
// tests can build isolated registries.
//
// Health endpoints are served from a separate port so orchestrator probes do
// not compete with (or get rate limited by) API traffic.
package observability
