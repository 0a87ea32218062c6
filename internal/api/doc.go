// Package api hosts the HTTP server, middleware, and REST handlers for the
// article generation service. Notable routes:
//   - POST /api/generate to submit a batch.
//   - GET /api/job/{id} for status polling.
//   - GET /api/download/{id} for the finished archive.
//   - GET /api/jobs for an operator listing of tracked jobs.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus.
package api
