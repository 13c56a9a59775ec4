package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"moviepoll/internal/catalog/tmdb"
	"moviepoll/internal/logging"
	"moviepoll/internal/titlematch"
)

const (
	defaultCacheTTL  = 10 * time.Minute
	defaultRateLimit = 250 * time.Millisecond
)

type cacheEntry struct {
	resp    *tmdb.Response
	expires time.Time
}

// Catalog performs cached, rate-limited TMDB lookups.
type Catalog struct {
	client  tmdb.Searcher
	logger  *slog.Logger
	aliases map[string][]string

	cacheTTL  time.Duration
	rateLimit time.Duration

	mu         sync.Mutex
	cache      map[string]cacheEntry
	lastLookup time.Time
	now        func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger attaches a logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "catalog")
		}
	}
}

// WithCacheTTL overrides how long search responses are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl >= 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithRateLimit overrides the minimum spacing between upstream searches.
func WithRateLimit(interval time.Duration) Option {
	return func(c *Catalog) {
		if interval >= 0 {
			c.rateLimit = interval
		}
	}
}

// WithAliases registers alternative search terms keyed by lowercase title.
func WithAliases(aliases map[string][]string) Option {
	return func(c *Catalog) {
		for key, values := range aliases {
			key = strings.ToLower(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			c.aliases[key] = append(c.aliases[key], values...)
		}
	}
}

// New wraps a TMDB searcher.
func New(client tmdb.Searcher, opts ...Option) *Catalog {
	c := &Catalog{
		client:     client,
		logger:     logging.NewNop(),
		aliases:    make(map[string][]string),
		cacheTTL:   defaultCacheTTL,
		rateLimit:  defaultRateLimit,
		cache:      make(map[string]cacheEntry),
		lastLookup: time.Unix(0, 0),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchByTitle searches every query variant of title and returns the merged
// candidates in first-seen order. Year 0 means unknown. It fails only when
// every variant failed.
func (c *Catalog) SearchByTitle(ctx context.Context, title string, year int) ([]titlematch.Candidate, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("tmdb client unavailable")
	}
	queries := QueryVariants(title, year, c.aliases)
	if len(queries) == 0 {
		return nil, errors.New("title must not be empty")
	}

	seen := make(map[int64]struct{})
	var (
		candidates []titlematch.Candidate
		failures   int
		lastErr    error
	)
	for _, query := range queries {
		resp, err := c.search(ctx, query, tmdb.SearchOptions{})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			lastErr = err
			logging.WarnWithContext(c.logger, "catalog query failed", "catalog_query_failed",
				logging.String("query", query),
				logging.Error(err),
				logging.String(logging.FieldImpact, "results from this variant are skipped"),
			)
			continue
		}
		added := 0
		for _, r := range resp.Results {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			candidates = append(candidates, ToCandidate(r))
			added++
		}
		c.logger.Debug("catalog query complete",
			logging.String("query", query),
			logging.Int("results", len(resp.Results)),
			logging.Int("added", added),
		)
	}
	if failures == len(queries) {
		return nil, fmt.Errorf("search %q: %w", title, lastErr)
	}
	c.logger.Info("catalog search complete",
		logging.String("title", title),
		logging.Int("year", year),
		logging.Int("variants", len(queries)),
		logging.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// GetByID fetches full movie details.
func (c *Catalog) GetByID(ctx context.Context, id int64) (*tmdb.MovieDetails, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("tmdb client unavailable")
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	details, err := c.client.GetMovieDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return details, nil
}

func (c *Catalog) search(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	// Case is significant: the lowercase variant must reach TMDB on its own.
	key := strings.TrimSpace(query) + "|" + opts.CacheKey()

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		if c.now().Before(entry.expires) {
			c.mu.Unlock()
			return entry.resp, nil
		}
		delete(c.cache, key)
	}
	c.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.SearchMovie(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	if c.cacheTTL > 0 {
		c.mu.Lock()
		now := c.now()
		c.evictExpired(now)
		c.cache[key] = cacheEntry{resp: resp, expires: now.Add(c.cacheTTL)}
		c.mu.Unlock()
	}
	return resp, nil
}

// evictExpired drops stale responses. Callers hold c.mu.
func (c *Catalog) evictExpired(now time.Time) {
	for key, entry := range c.cache {
		if !now.Before(entry.expires) {
			delete(c.cache, key)
		}
	}
}

// wait reserves the next upstream slot and sleeps until it arrives, so
// concurrent callers are spaced rateLimit apart.
func (c *Catalog) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	now := c.now()
	slot := c.lastLookup.Add(c.rateLimit)
	if slot.Before(now) {
		slot = now
	}
	c.lastLookup = slot
	c.mu.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
