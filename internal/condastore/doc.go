// Package condastore provides an HTTP client for the conda-store catalog API.
//
// # Overview
//
// This package defines the API client storeview uses to read environments,
// channels and package listings from a conda-store server. It handles HTTP
// communication, JSON decoding and type-safe representation of the paginated
// payloads. It performs no pagination itself: callers ask for one page at a
// time and own the page counter (see package catalog).
//
// # Architecture
//
//   - client.go: HTTP client, API interface, request/response handling
//   - types.go: data structures mirroring the conda-store API schema
//
// # API Endpoints
//
// All routes are relative to <server_url><api_prefix> (default /api/v1):
//
//   - GET /                                   server status
//   - GET /environment/?page=&size=           environments
//   - GET /package/?search=&page=&size=&distinct_on=name&distinct_on=version&sort_by=name
//   - GET /environment/{namespace}/{name}/    current build id
//   - GET /build/{id}/packages/?search=&page=&size=&sort_by=name
//   - GET /channel/                           channels
//
// Every list endpoint answers with the same envelope:
//
//	{"count": 1234, "page": 1, "size": 100, "data": [...]}
//
// Some deployments encode count as a string; FlexInt accepts both.
//
// # Error Handling
//
//   - Network errors: "execute request: dial tcp: connection refused"
//   - HTTP errors: *StatusError, "api /api/v1/package/ returned status 500"
//   - Deserialization errors: "decode response: unexpected EOF"
//
// Non-2xx responses are never turned into empty pages. The catalog engine
// relies on that to keep a failed page retryable instead of mistaking it for
// the end of the listing.
//
// # Thread Safety
//
// The Client is safe for concurrent use. The underlying http.Client handles
// connection pooling.
//
// # Testing Considerations
//
// Use httptest.Server to mock the API, or implement API directly for unit
// tests of higher layers.
package condastore
