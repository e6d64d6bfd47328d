// Package config loads and validates the TOML configuration shared by the
// CLI and workflow components.
package config
