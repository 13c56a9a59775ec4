package testsupport

import (
	"path/filepath"
	"testing"

	"moviepoll/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.TMDB.RateLimitMillis = 0
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Schedule.Timezone = "UTC"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithPoll overrides the default poll identifier.
func WithPoll(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Poll.DefaultPoll = id
	}
}

// WithoutMatching disables title matching when adding movies.
func WithoutMatching() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Poll.UseMatching = false
	}
}

// WithVisibilityFloor overrides the appeal visibility floor.
func WithVisibilityFloor(floor float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Appeal.VisibilityFloor = floor
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
