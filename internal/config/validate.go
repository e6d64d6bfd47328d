package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would break at runtime.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}
	if c.Interpretation.BatchSize <= 0 {
		problems = append(problems, "interpretation.batch_size must be positive")
	}
	if c.Interpretation.BatchPauseMS < 0 {
		problems = append(problems, "interpretation.batch_pause_ms must not be negative")
	}
	if strings.TrimSpace(c.Interpretation.DefaultInstruction) == "" {
		problems = append(problems, "interpretation.default_instruction must not be empty")
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		problems = append(problems, "gemini.timeout_seconds must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case "", "local":
	case "supabase":
		if strings.TrimSpace(c.Storage.SupabaseURL) == "" {
			problems = append(problems, "storage.supabase_url is required for the supabase backend")
		}
		if strings.TrimSpace(c.Storage.SupabaseKey) == "" {
			problems = append(problems, "storage.supabase_key is required for the supabase backend")
		}
		if strings.TrimSpace(c.Storage.SupabaseBucket) == "" {
			problems = append(problems, "storage.supabase_bucket is required for the supabase backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q is not supported (local, supabase)", c.Storage.Backend))
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		problems = append(problems, "export.jpeg_quality must be between 1 and 100")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
