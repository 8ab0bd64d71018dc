// Package auth implements credential storage, password authentication with
// lockout, signed session tokens, session verification, and the role
// permission table. All authorization decisions flow through this package;
// HTTP concerns live in pkg/middleware and pkg/api.
package auth
