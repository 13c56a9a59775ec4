package config

import (
	"fmt"
	"os"
	"strings"

	"moviepoll/internal/textutil"
	"moviepoll/internal/titlematch"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizePoll()
	c.normalizeMatching()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}

	if len(c.TMDB.Aliases) == 0 {
		return
	}
	aliases := make(map[string][]string, len(c.TMDB.Aliases))
	for key, terms := range c.TMDB.Aliases {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		for _, term := range terms {
			if term = strings.TrimSpace(term); term != "" {
				aliases[key] = append(aliases[key], term)
			}
		}
	}
	c.TMDB.Aliases = aliases
}

func (c *Config) normalizeDatabase() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "", "sqlite3":
		c.Database.Driver = DriverSQLite
	case "postgresql", "pgx":
		c.Database.Driver = DriverPostgres
	}
	if c.Database.DSN == "" {
		if value, ok := os.LookupEnv("MOVIEPOLL_DATABASE_DSN"); ok {
			c.Database.DSN = value
		}
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.Driver == DriverSQLite && c.Database.DSN != "" && !strings.HasPrefix(c.Database.DSN, "file:") {
		expanded, err := expandPath(c.Database.DSN)
		if err != nil {
			return fmt.Errorf("database.dsn: %w", err)
		}
		c.Database.DSN = expanded
	}
	return nil
}

func (c *Config) normalizePoll() {
	c.Poll.DefaultPoll = textutil.SanitizeToken(c.Poll.DefaultPoll)
	if c.Poll.DefaultPoll == "" {
		c.Poll.DefaultPoll = defaultPoll
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.Weights = strings.ToLower(strings.TrimSpace(c.Matching.Weights))
	if c.Matching.Weights == "" {
		c.Matching.Weights = titlematch.PresetMovie
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.RefreshAppeal = strings.TrimSpace(c.Schedule.RefreshAppeal)
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultTimezone
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
