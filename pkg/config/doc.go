// Package config loads application configuration from environment variables,
// with an optional YAML file overlay, and validates it before the server
// starts. The signing secret is mandatory outside the test environment; there
// is deliberately no built-in default for it.
package config
