package config

import "moviepoll/internal/titlematch"

const (
	defaultDataDir           = "~/.local/share/moviepoll"
	defaultLogDir            = "~/.local/share/moviepoll/logs"
	defaultAPIBind           = "127.0.0.1:7488"
	defaultTMDBLanguage      = "en-US"
	defaultTMDBBaseURL       = "https://api.themoviedb.org/3"
	defaultTMDBCacheTTL      = 600
	defaultTMDBRateLimitMS   = 250
	defaultDatabaseDriver    = DriverSQLite
	defaultDatabaseFile      = "moviepoll.db"
	defaultPoll              = "default"
	defaultVisibilityFloor   = 0.1
	defaultFlexibleThreshold = 7.0
	defaultYearPenalty       = 10.0
	defaultYearTolerance     = 1
	defaultRefreshSchedule   = "*/15 * * * *"
	defaultTimezone          = "Local"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Driver names accepted by database.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// WeightsCustom selects the individual matching.*_weight values instead of a
// named preset.
const WeightsCustom = "custom"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		TMDB: TMDB{
			BaseURL:         defaultTMDBBaseURL,
			Language:        defaultTMDBLanguage,
			CacheTTLSeconds: defaultTMDBCacheTTL,
			RateLimitMillis: defaultTMDBRateLimitMS,
			Aliases: map[string][]string{
				"house": {"hausu"},
			},
		},
		Database: Database{
			Driver: defaultDatabaseDriver,
		},
		Poll: Poll{
			DefaultPoll: defaultPoll,
			UseMatching: true,
		},
		Appeal: Appeal{
			VisibilityFloor: defaultVisibilityFloor,
		},
		Matching: Matching{
			FlexibleThreshold: defaultFlexibleThreshold,
			YearPenalty:       defaultYearPenalty,
			YearTolerance:     defaultYearTolerance,
			Weights:           titlematch.PresetMovie,
			PhraseWeight:      0.6,
			WordsWeight:       1.2,
			LengthWeight:      -0.2,
			MinWeight:         8,
			MaxWeight:         1.5,
		},
		Schedule: Schedule{
			Enabled:       true,
			RefreshAppeal: defaultRefreshSchedule,
			Timezone:      defaultTimezone,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
