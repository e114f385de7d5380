package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"censorwave/internal/config"
	"censorwave/internal/history"
	"censorwave/internal/logging"
	"censorwave/internal/pipeline"
)

// runnerFactory builds the pipeline runner.
type runnerFactory func(cfg *config.Config, logger *slog.Logger, opts ...pipeline.Option) *pipeline.Runner

// newPipelineRunner is swapped by tests to inject fake collaborators.
var newPipelineRunner runnerFactory = pipeline.New

// newTranscriber is swapped by tests to avoid launching a real transcriber.
var newTranscriber = pipeline.NewTranscriber

type commandContext struct {
	configFlag  *string
	logLevel    *string
	backendFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	newRunner runnerFactory
}

func newCommandContext(configFlag, logLevel, backendFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		logLevel:    logLevel,
		backendFlag: backendFlag,
		newRunner:   newPipelineRunner,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath, c.configExists = resolved, exists
		if c.logLevel != nil && strings.TrimSpace(*c.logLevel) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevel))
		}
		if c.backendFlag != nil && strings.TrimSpace(*c.backendFlag) != "" {
			cfg.Transcription.Backend = strings.ToLower(strings.TrimSpace(*c.backendFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = fmt.Errorf("--backend: %w", err)
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openHistory returns nil when the ledger is disabled.
func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// withRunner builds a runner wired to the ledger and closes the ledger afterwards.
func (c *commandContext) withRunner(fn func(*pipeline.Runner, *config.Config, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	var opts []pipeline.Option
	store, err := c.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in censorwave history"))
	} else if store != nil {
		defer store.Close()
		opts = append(opts, pipeline.WithRecorder(store))
	}
	return fn(c.newRunner(cfg, logger, opts...), cfg, logger)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// withHistory opens the ledger for read commands and fails when it is disabled.
func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	store, err := c.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("history is disabled (set history.enabled = true)")
	}
	defer store.Close()
	return fn(store)
}
