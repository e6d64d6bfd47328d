// Package logging wraps log/slog with the attribute helpers, standardized
// field keys, and handler construction used across the repository.
package logging
