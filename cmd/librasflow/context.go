package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"librasflow/internal/acquisition"
	"librasflow/internal/config"
	"librasflow/internal/export"
	"librasflow/internal/interpretation"
	"librasflow/internal/logging"
	"librasflow/internal/notifications"
	"librasflow/internal/project"
	"librasflow/internal/services/gemini"
	"librasflow/internal/storage"
	"librasflow/internal/workflow"
)

// commandContext wires configuration and the workflow manager lazily so
// lightweight commands (config init, help) never touch the database.
type commandContext struct {
	configFlag *string
	ownerFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	managerOnce sync.Once
	manager     *workflow.Manager
	managerErr  error

	logger  *slog.Logger
	store   *project.Store
	lock    *flock.Flock
	closers []func()
}

func newCommandContext(configFlag, ownerFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, ownerFlag: ownerFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		_ = godotenv.Load()

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
			cfg.Gemini.APIKey = key
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) owner() (string, error) {
	owner := ""
	if c.ownerFlag != nil {
		owner = strings.TrimSpace(*c.ownerFlag)
	}
	if owner == "" {
		owner = strings.TrimSpace(os.Getenv("LIBRASFLOW_USER"))
	}
	if owner == "" {
		return "", errors.New("no user id: pass --owner or set LIBRASFLOW_USER")
	}
	return owner, nil
}

// accessToken returns the platform credential for remote caption reads.
// It is read per invocation, never cached on the context.
func (c *commandContext) accessToken() acquisition.Credentials {
	return acquisition.Credentials{AccessToken: strings.TrimSpace(os.Getenv("YOUTUBE_ACCESS_TOKEN"))}
}

func (c *commandContext) ensureManager(ctx context.Context) (*workflow.Manager, error) {
	c.managerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.managerErr = err
			return
		}

		// One CLI session drives one project database at a time.
		lock := flock.New(cfg.LockPath())
		ok, err := lock.TryLock()
		if err != nil {
			c.managerErr = fmt.Errorf("acquire session lock: %w", err)
			return
		}
		if !ok {
			c.managerErr = errors.New("another librasflow session is already running")
			return
		}
		c.lock = lock
		c.closers = append(c.closers, func() { _ = lock.Unlock() })

		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})
		if err != nil {
			c.managerErr = err
			return
		}
		c.logger = logger

		store, err := project.Open(cfg)
		if err != nil {
			c.managerErr = err
			return
		}
		c.store = store
		c.closers = append(c.closers, func() { _ = store.Close() })

		acquirer, err := c.buildAcquirer(cfg, logger)
		if err != nil {
			c.managerErr = err
			return
		}

		opts := []workflow.Option{
			workflow.WithAcquirer(acquirer),
			workflow.WithNotifier(notifications.NewService(cfg)),
			workflow.WithLogger(logger),
		}

		if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
			provider, err := gemini.NewClient(ctx, cfg.Gemini)
			if err != nil {
				c.managerErr = err
				return
			}
			c.closers = append(c.closers, func() { _ = provider.Close() })
			engine, err := interpretation.NewEngine(provider, cfg.Interpretation,
				interpretation.WithLogger(logger),
				interpretation.WithCallTimeout(time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second),
			)
			if err != nil {
				c.managerErr = err
				return
			}
			opts = append(opts, workflow.WithGenerator(engine))
		}

		objects, err := storage.New(cfg.Storage)
		if err != nil {
			c.managerErr = err
			return
		}
		opts = append(opts, workflow.WithObjectStore(objects))

		assembler, err := export.NewAssembler(objects, cfg, export.WithLogger(logger))
		if err != nil {
			c.managerErr = err
			return
		}
		opts = append(opts, workflow.WithExporter(assembler))

		manager, err := workflow.NewManager(store, opts...)
		if err != nil {
			c.managerErr = err
			return
		}
		c.manager = manager
		c.closers = append(c.closers, manager.Close)
	})
	return c.manager, c.managerErr
}

func (c *commandContext) buildAcquirer(cfg *config.Config, logger *slog.Logger) (workflow.Acquirer, error) {
	var provider acquisition.CaptionProvider
	if cfg.YouTube.UseFixture {
		provider = acquisition.FixtureProvider{}
	} else {
		provider = acquisition.NewYouTubeClient(
			acquisition.WithBaseURL(cfg.YouTube.BaseURL),
			acquisition.WithHTTPClient(httpClientWithTimeout(cfg.YouTube.RequestTimeout)),
		)
	}
	return acquisition.NewAdapter(provider, cfg.YouTube.TargetLanguage,
		acquisition.WithLogger(logger))
}

func (c *commandContext) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for cur := cmd; cur != nil; cur = cur.Parent() {
		if cur.Annotations != nil && cur.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
