// Package domain defines the values the dev server hands between its layers.
//
// # Responses
//
// Response is what a request task computes and the HTTP side writes back:
// a status, a body and an optional content type. Constructors cover the
// three outcomes the server produces (200 with content, 404 with an empty
// body, 500 with an empty body).
//
// # Graph
//
// Graph is the derived view of the assets reachable from the entry asset,
// served to tooling for inspection. Node IDs are paths relative to the
// served root.
//
// # Journal
//
// RequestRecord is one completed request as stored in the request journal.
//
// # Design Principles
//
//   - Plain value types
//   - No engine, database or HTTP dependencies
package domain
