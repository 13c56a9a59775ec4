package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"moviepoll/internal/catalog"
	"moviepoll/internal/catalog/tmdb"
	"moviepoll/internal/config"
	"moviepoll/internal/logging"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
	"moviepoll/internal/textutil"
)

type commandContext struct {
	configFlag *string
	pollFlag   *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, pollFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		pollFlag:   pollFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
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

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// pollID resolves the --poll flag against the configured default.
func (c *commandContext) pollID() string {
	if c.pollFlag != nil {
		if id := textutil.SanitizeToken(*c.pollFlag); id != "" {
			return id
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg.Poll.DefaultPoll != "" {
		return cfg.Poll.DefaultPoll
	}
	return "default"
}

// logger returns a logger for one-shot commands. It only writes warnings so
// table output stays readable; serve builds its own logger.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	level := "warn"
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// openService opens the store and builds a poll service. withCatalog wires
// the TMDB catalog and fails when no API key is configured.
func (c *commandContext) openService(cmd *cobra.Command, withCatalog bool) (*poll.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := c.logger(cmd)

	opts := append(poll.ConfigOptions(cfg), poll.WithLogger(logger))
	if withCatalog {
		cat, err := newCatalog(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, poll.WithCatalog(cat))
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return poll.New(st, opts...), func() { st.Close() }, nil
}

// withService runs fn against a freshly opened service and closes it after.
func (c *commandContext) withService(cmd *cobra.Command, withCatalog bool, fn func(*poll.Service) error) error {
	svc, closeFn, err := c.openService(cmd, withCatalog)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

func newCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	if err := cfg.RequireTMDB(); err != nil {
		return nil, err
	}
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		return nil, fmt.Errorf("tmdb client: %w", err)
	}
	return catalog.New(client,
		catalog.WithLogger(logger),
		catalog.WithCacheTTL(cfg.CacheTTL()),
		catalog.WithRateLimit(cfg.RateLimit()),
		catalog.WithAliases(cfg.TMDB.Aliases),
	), nil
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
	return textutil.Ternary(value, "yes", "no")
}
