// Package middleware contains the HTTP edge layers: the page-route
// gatekeeper, the API session middleware, role enforcement, and session
// cookie handling.
package middleware
