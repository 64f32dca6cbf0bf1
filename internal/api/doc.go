// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/crawl/start and GET /v1/crawl/state for run control.
//   - GET/POST /v1/history/... for the filterable, paginated crawl history.
//   - /v1/keywords and /v1/profiles for registry management.
package api
