package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"moviepoll/internal/appeal"
	"moviepoll/internal/titlematch"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Language        string `toml:"language"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	RateLimitMillis int    `toml:"rate_limit_ms"`
	// Aliases maps a lowercase title to extra search terms.
	Aliases map[string][]string `toml:"aliases"`
}

// Database selects the storage backend.
type Database struct {
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite or a connection string for postgres.
	// Empty sqlite DSN resolves to moviepoll.db inside paths.data_dir.
	DSN string `toml:"dsn"`
}

// Poll contains defaults for poll-scoped commands.
type Poll struct {
	DefaultPoll string `toml:"default_poll"`
	UseMatching bool   `toml:"use_matching"`
}

// Appeal contains appeal aggregation tuning.
type Appeal struct {
	VisibilityFloor float64 `toml:"visibility_floor"`
}

// Matching contains title matcher thresholds and weights. Weights names a
// preset ("movie" or "text"); the *_weight fields apply only when it is
// "custom".
type Matching struct {
	FlexibleThreshold float64 `toml:"flexible_threshold"`
	YearPenalty       float64 `toml:"year_penalty"`
	YearTolerance     int     `toml:"year_tolerance"`
	Weights           string  `toml:"weights"`
	PhraseWeight      float64 `toml:"phrase_weight"`
	WordsWeight       float64 `toml:"words_weight"`
	LengthWeight      float64 `toml:"length_weight"`
	MinWeight         float64 `toml:"min_weight"`
	MaxWeight         float64 `toml:"max_weight"`
}

// Schedule contains background job configuration for `moviepoll serve`.
type Schedule struct {
	Enabled       bool   `toml:"enabled"`
	RefreshAppeal string `toml:"refresh_appeal"`
	Timezone      string `toml:"timezone"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for moviepoll.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, API bind address
//   - TMDB: movie search credentials, caching, and aliases
//   - Database: sqlite or postgres storage
//   - Poll: default poll identifier and add-movie behaviour
//   - Appeal: visibility floor for appeal aggregation
//   - Matching: title matcher thresholds and weights
//   - Schedule: periodic appeal snapshot refresh
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	TMDB     TMDB     `toml:"tmdb"`
	Database Database `toml:"database"`
	Poll     Poll     `toml:"poll"`
	Appeal   Appeal   `toml:"appeal"`
	Matching Matching `toml:"matching"`
	Schedule Schedule `toml:"schedule"`
	Logging  Logging  `toml:"logging"`
}

const defaultConfigLocation = "~/.config/moviepoll/config.toml"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigLocation)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigLocation)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("moviepoll.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabaseDSN returns the connection string for the configured driver.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == DriverSQLite && strings.TrimSpace(c.Database.DSN) == "" {
		return filepath.Join(c.Paths.DataDir, defaultDatabaseFile)
	}
	return c.Database.DSN
}

// LockPath returns the file guarding a single running server per data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "moviepoll.lock")
}

// RequireTMDB reports whether TMDB credentials are available. Commands that
// search or add movies call it; read-only commands do not.
func (c *Config) RequireTMDB() error {
	if strings.TrimSpace(c.TMDB.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigLocation
	}
	return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'moviepoll config init')", defaultPath)
}

// CacheTTL returns the TMDB response cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.TMDB.CacheTTLSeconds) * time.Second
}

// RateLimit returns the minimum spacing between TMDB requests.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.TMDB.RateLimitMillis) * time.Millisecond
}

// MatchOptions converts the matching section into matcher options.
func (c *Config) MatchOptions() titlematch.Options {
	opts := titlematch.DefaultOptions()
	if preset, ok := titlematch.WeightPreset(c.Matching.Weights); ok {
		opts.Weights = preset
	} else {
		opts.Weights = titlematch.Weights{
			Phrase: c.Matching.PhraseWeight,
			Words:  c.Matching.WordsWeight,
			Length: c.Matching.LengthWeight,
			Min:    c.Matching.MinWeight,
			Max:    c.Matching.MaxWeight,
		}
	}
	opts.FlexibleThreshold = c.Matching.FlexibleThreshold
	opts.YearPenalty = c.Matching.YearPenalty
	opts.YearTolerance = c.Matching.YearTolerance
	return opts
}

// AppealOptions converts the appeal section into aggregation options.
func (c *Config) AppealOptions() appeal.Options {
	return appeal.Options{VisibilityFloor: c.Appeal.VisibilityFloor}
}

// Location resolves schedule.timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
