// Package httputil provides HTTP handler utilities: the uniform response
// envelope used by every API endpoint, JSON decoding and request parsing
// helpers, and generic middleware (logging, recovery, CORS, request IDs).
package httputil
