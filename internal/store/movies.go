package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Movie is a locally tracked film.
type Movie struct {
	ID               int64     `json:"id"`
	TMDBID           int64     `json:"tmdb_id,omitempty"`
	Title            string    `json:"title"`
	Year             int       `json:"year,omitempty"`
	OriginalTitle    string    `json:"original_title,omitempty"`
	Overview         string    `json:"overview,omitempty"`
	PosterPath       string    `json:"poster_path,omitempty"`
	BackdropPath     string    `json:"backdrop_path,omitempty"`
	ReleaseDate      string    `json:"release_date,omitempty"`
	Runtime          int       `json:"runtime,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	Popularity       float64   `json:"popularity,omitempty"`
	VoteAverage      float64   `json:"vote_average,omitempty"`
	VoteCount        int64     `json:"vote_count,omitempty"`
	MatchType        string    `json:"match_type,omitempty"`
	MatchScore       float64   `json:"match_score,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MovieUpdate carries optional field changes. Nil fields are left untouched.
type MovieUpdate struct {
	Title      *string `json:"title,omitempty"`
	Year       *int    `json:"year,omitempty"`
	Overview   *string `json:"overview,omitempty"`
	PosterPath *string `json:"poster_path,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u MovieUpdate) Empty() bool {
	return u.Title == nil && u.Year == nil && u.Overview == nil && u.PosterPath == nil
}

// MovieListing pairs a movie with its latest appeal snapshot for one poll.
type MovieListing struct {
	Movie
	Appeal *Snapshot `json:"appeal,omitempty"`
}

const movieColumns = "id, tmdb_id, title, year, original_title, overview, poster_path, backdrop_path, release_date, runtime, original_language, popularity, vote_average, vote_count, match_type, match_score, created_at, updated_at"

func scanMovie(scanner interface{ Scan(dest ...any) error }) (*Movie, error) {
	var (
		m          Movie
		tmdbID     sql.NullInt64
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&m.ID,
		&tmdbID,
		&m.Title,
		&m.Year,
		&m.OriginalTitle,
		&m.Overview,
		&m.PosterPath,
		&m.BackdropPath,
		&m.ReleaseDate,
		&m.Runtime,
		&m.OriginalLanguage,
		&m.Popularity,
		&m.VoteAverage,
		&m.VoteCount,
		&m.MatchType,
		&m.MatchScore,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	m.TMDBID = tmdbID.Int64
	m.CreatedAt = parseTime(createdRaw)
	m.UpdatedAt = parseTime(updatedRaw)
	return &m, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

// AddMovie inserts m and returns the stored row.
func (s *Store) AddMovie(ctx context.Context, m Movie) (*Movie, error) {
	ctx = ensureContext(ctx)
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return nil, errors.New("add movie: title is required")
	}
	now := formatTime(s.now())

	var id int64
	query := s.rebind(`INSERT INTO movies (
		tmdb_id, title, year, original_title, overview, poster_path, backdrop_path,
		release_date, runtime, original_language, popularity, vote_average, vote_count,
		match_type, match_score, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query,
			nullableID(m.TMDBID), m.Title, m.Year, m.OriginalTitle, m.Overview, m.PosterPath, m.BackdropPath,
			m.ReleaseDate, m.Runtime, m.OriginalLanguage, m.Popularity, m.VoteAverage, m.VoteCount,
			m.MatchType, m.MatchScore, now, now,
		).Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("insert movie: %w", err)
	}
	return s.GetMovie(ctx, id)
}

// GetMovie fetches a movie by local id.
func (s *Store) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+movieColumns+" FROM movies WHERE id = ?"), id)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return m, nil
}

// FindMovieByTMDBID fetches a movie by its TMDB identifier.
func (s *Store) FindMovieByTMDBID(ctx context.Context, tmdbID int64) (*Movie, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+movieColumns+" FROM movies WHERE tmdb_id = ?"), tmdbID)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find movie by tmdb id %d: %w", tmdbID, err)
	}
	return m, nil
}

// MovieExists reports whether a movie with id is stored.
func (s *Store) MovieExists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), s.rebind("SELECT COUNT(1) FROM movies WHERE id = ?"), id).Scan(&count); err != nil {
		return false, fmt.Errorf("check movie %d: %w", id, err)
	}
	return count > 0, nil
}

// ListMovies returns every movie ordered by title, joined with the stored
// appeal snapshot for pollID when one exists.
func (s *Store) ListMovies(ctx context.Context, pollID string) ([]MovieListing, error) {
	ctx = ensureContext(ctx)
	cols := prefixColumns("m", movieColumns) + ", " + prefixColumns("a", snapshotColumns)
	query := s.rebind(`SELECT ` + cols + `
		FROM movies m
		LEFT JOIN appeal_snapshots a ON a.movie_id = m.id AND a.poll_id = ?
		ORDER BY m.title, m.id`)
	rows, err := s.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var listings []MovieListing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

// Titles returns the display title of every movie keyed by id.
func (s *Store) Titles(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT id, title FROM movies")
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()
	titles := make(map[int64]string)
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

// UpdateMovie applies the non-nil fields of update.
func (s *Store) UpdateMovie(ctx context.Context, id int64, update MovieUpdate) (*Movie, error) {
	ctx = ensureContext(ctx)
	if update.Empty() {
		return s.GetMovie(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, errors.New("update movie: title cannot be empty")
		}
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if update.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *update.Year)
	}
	if update.Overview != nil {
		sets = append(sets, "overview = ?")
		args = append(args, *update.Overview)
	}
	if update.PosterPath != nil {
		sets = append(sets, "poster_path = ?")
		args = append(args, *update.PosterPath)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(s.now()), id)

	res, err := s.execWithRetry(ctx, "UPDATE movies SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update movie %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.GetMovie(ctx, id)
}

// DeleteMovie removes a movie together with its votes and snapshots.
func (s *Store) DeleteMovie(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM votes WHERE movie_id = ?",
			"DELETE FROM appeal_snapshots WHERE movie_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, s.rebind(stmt), id); err != nil {
				return fmt.Errorf("delete movie %d dependents: %w", id, err)
			}
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM movies WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("delete movie %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AllMovies returns every stored movie ordered by id.
func (s *Store) AllMovies(ctx context.Context) ([]Movie, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT "+movieColumns+" FROM movies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var movies []Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, *m)
	}
	return movies, rows.Err()
}

// MergeMovie folds dropID into keepID and deletes dropID. Votes move to the
// kept movie; where a user voted on both in the same poll the newer vote wins.
// Snapshots of the dropped movie are removed and the kept movie's snapshots
// stay stale until the next refresh. It returns how many votes moved.
func (s *Store) MergeMovie(ctx context.Context, keepID, dropID int64) (int, error) {
	ctx = ensureContext(ctx)
	if keepID == dropID {
		return 0, fmt.Errorf("merge movie %d into itself", keepID)
	}
	var moved int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, s.rebind("SELECT COUNT(1) FROM movies WHERE id IN (?, ?)"), keepID, dropID).Scan(&count); err != nil {
			return fmt.Errorf("check merge movies: %w", err)
		}
		if count != 2 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM votes WHERE movie_id = ? AND EXISTS (
			SELECT 1 FROM votes d WHERE d.movie_id = ? AND d.poll_id = votes.poll_id
				AND d.user_name = votes.user_name AND d.updated_at > votes.updated_at)`), keepID, dropID); err != nil {
			return fmt.Errorf("drop superseded votes: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.rebind(`UPDATE votes SET movie_id = ? WHERE movie_id = ? AND NOT EXISTS (
			SELECT 1 FROM votes k WHERE k.movie_id = ? AND k.poll_id = votes.poll_id AND k.user_name = votes.user_name)`),
			keepID, dropID, keepID)
		if err != nil {
			return fmt.Errorf("move votes: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			moved = int(n)
		}

		for _, stmt := range []string{
			"DELETE FROM votes WHERE movie_id = ?",
			"DELETE FROM appeal_snapshots WHERE movie_id = ?",
			"DELETE FROM movies WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, s.rebind(stmt), dropID); err != nil {
				return fmt.Errorf("delete merged movie %d: %w", dropID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
