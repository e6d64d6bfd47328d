package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// YouTube contains configuration for the platform caption provider.
type YouTube struct {
	BaseURL        string `toml:"base_url"`
	TargetLanguage string `toml:"target_language"`
	RequestTimeout int    `toml:"request_timeout"`
	UseFixture     bool   `toml:"use_fixture"`
}

// Gemini contains configuration for the generative text provider.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Interpretation contains tuning for the interpretation engine.
type Interpretation struct {
	BatchSize          int    `toml:"batch_size"`
	BatchPauseMS       int    `toml:"batch_pause_ms"`
	DefaultInstruction string `toml:"default_instruction"`
}

// Storage contains configuration for the durable object store.
type Storage struct {
	Backend        string `toml:"backend"`
	LocalDir       string `toml:"local_dir"`
	SupabaseURL    string `toml:"supabase_url"`
	SupabaseKey    string `toml:"supabase_key"`
	SupabaseBucket string `toml:"supabase_bucket"`
}

// Notifications contains configuration for push notifications. An empty
// topic disables them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Export contains configuration for the export assembler.
type Export struct {
	UploadTimeoutSeconds int `toml:"upload_timeout_seconds"`
	JPEGQuality          int `toml:"jpeg_quality"`
}

// Config is the root configuration shared by the CLI and workflow components.
type Config struct {
	Paths          Paths          `toml:"paths"`
	Logging        Logging        `toml:"logging"`
	YouTube        YouTube        `toml:"youtube"`
	Gemini         Gemini         `toml:"gemini"`
	Interpretation Interpretation `toml:"interpretation"`
	Storage        Storage        `toml:"storage"`
	Notifications  Notifications  `toml:"notifications"`
	Export         Export         `toml:"export"`
}

// Load reads configuration from path, applying defaults for missing fields.
// A missing file is not an error; defaults are returned along with found=false.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = DefaultConfigPath()
	}
	expanded := ExpandPath(trimmed)

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.normalize()
			return &cfg, false, nil
		}
		return nil, false, fmt.Errorf("read config %s: %w", expanded, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", expanded, err)
	}
	cfg.normalize()
	return &cfg, true, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded := ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	return ExpandPath("~/.config/librasflow/config.toml")
}

// EnsureDirectories creates the configured directories when absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ExportDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the project database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "projects.db")
}

// LockPath returns the location of the single-session lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "librasflow.lock")
}

func (c *Config) normalize() {
	c.Paths.DataDir = ExpandPath(c.Paths.DataDir)
	c.Paths.LogDir = ExpandPath(c.Paths.LogDir)
	c.Paths.ExportDir = ExpandPath(c.Paths.ExportDir)
	c.Storage.LocalDir = ExpandPath(c.Storage.LocalDir)
	if c.Storage.LocalDir == "" && c.Paths.DataDir != "" {
		c.Storage.LocalDir = filepath.Join(c.Paths.DataDir, "objects")
	}
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || !strings.HasPrefix(trimmed, "~") {
		return trimmed
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return trimmed
	}
	if trimmed == "~" {
		return home
	}
	if strings.HasPrefix(trimmed, "~/") {
		return filepath.Join(home, trimmed[2:])
	}
	return trimmed
}
