package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robfig/cron/v3"

	"moviepoll/internal/titlematch"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAppeal(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTMDB() error {
	if c.TMDB.CacheTTLSeconds < 0 {
		return errors.New("tmdb.cache_ttl_seconds must be >= 0")
	}
	if c.TMDB.RateLimitMillis < 0 {
		return errors.New("tmdb.rate_limit_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn must be set when database.driver is postgres")
		}
		return nil
	default:
		return fmt.Errorf("database.driver: unsupported value %q (want sqlite or postgres)", c.Database.Driver)
	}
}

func (c *Config) validateAppeal() error {
	floor := c.Appeal.VisibilityFloor
	if math.IsNaN(floor) || floor <= 0 || floor > 1 {
		return errors.New("appeal.visibility_floor must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.FlexibleThreshold <= 0 {
		return errors.New("matching.flexible_threshold must be positive")
	}
	if m.YearPenalty < 0 {
		return errors.New("matching.year_penalty must be >= 0")
	}
	if m.YearTolerance < 0 {
		return errors.New("matching.year_tolerance must be >= 0")
	}
	switch m.Weights {
	case titlematch.PresetMovie, titlematch.PresetText:
		return nil
	case WeightsCustom:
	default:
		return fmt.Errorf("matching.weights must be %q, %q, or %q (got %q)",
			titlematch.PresetMovie, titlematch.PresetText, WeightsCustom, m.Weights)
	}
	if m.PhraseWeight < 0 || m.WordsWeight < 0 || m.MinWeight < 0 || m.MaxWeight < 0 {
		return errors.New("matching phrase/words/min/max weights must be >= 0")
	}
	if m.PhraseWeight == 0 && m.WordsWeight == 0 {
		return errors.New("matching.phrase_weight and matching.words_weight cannot both be zero")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if !c.Schedule.Enabled {
		return nil
	}
	if c.Schedule.RefreshAppeal == "" {
		return errors.New("schedule.refresh_appeal must be set when schedule.enabled is true")
	}
	if _, err := cron.ParseStandard(c.Schedule.RefreshAppeal); err != nil {
		return fmt.Errorf("schedule.refresh_appeal: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
