// Package handler holds the HTTP plumbing around the dev server.
//
// # Middleware
//
// Chain composes middleware. RequestID tags requests with a UUID, Recover
// turns handler panics into 500 responses, and Logger logs, counts and
// journals every completed request without delaying it.
//
// # Admin API
//
// AdminHandler serves inspection endpoints on a separate listener:
//   - GET /graph     assets reachable from the entry asset, as JSON
//   - GET /events    Server-Sent Events for live reload
//   - GET /history   most recent journaled requests (?limit=N)
//   - GET /metrics   Prometheus metrics
//   - GET /healthz   liveness
//
// Errors are returned as JSON with {error, details} structure.
package handler
