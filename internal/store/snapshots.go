package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moviepoll/internal/appeal"
)

// Snapshot is a persisted appeal record for one movie in one poll.
type Snapshot struct {
	PollID string `json:"poll_id"`
	appeal.Record
	CalculatedAt time.Time `json:"calculated_at"`
}

const snapshotColumns = "poll_id, movie_id, original_appeal, seen_count, total_voters, visibility_ratio, visibility_modifier, final_appeal, total_unique_voters, calculated_at"

func scanSnapshot(scanner interface{ Scan(dest ...any) error }) (Snapshot, error) {
	var (
		snap Snapshot
		raw  string
	)
	if err := scanner.Scan(
		&snap.PollID,
		&snap.MovieID,
		&snap.OriginalAppeal,
		&snap.SeenCount,
		&snap.TotalVoters,
		&snap.VisibilityRatio,
		&snap.VisibilityModifier,
		&snap.FinalAppeal,
		&snap.TotalUniqueVoters,
		&raw,
	); err != nil {
		return Snapshot{}, err
	}
	snap.CalculatedAt = parseTime(raw)
	return snap, nil
}

// scanListing reads a movie row followed by nullable snapshot columns.
func scanListing(scanner interface{ Scan(dest ...any) error }) (MovieListing, error) {
	var (
		m          Movie
		tmdbID     sql.NullInt64
		createdRaw string
		updatedRaw string
		pollID     sql.NullString
		movieID    sql.NullInt64
		original   sql.NullFloat64
		seen       sql.NullInt64
		total      sql.NullInt64
		ratio      sql.NullFloat64
		modifier   sql.NullFloat64
		final      sql.NullFloat64
		unique     sql.NullInt64
		calculated sql.NullString
	)
	if err := scanner.Scan(
		&m.ID, &tmdbID, &m.Title, &m.Year, &m.OriginalTitle, &m.Overview, &m.PosterPath, &m.BackdropPath,
		&m.ReleaseDate, &m.Runtime, &m.OriginalLanguage, &m.Popularity, &m.VoteAverage, &m.VoteCount,
		&m.MatchType, &m.MatchScore, &createdRaw, &updatedRaw,
		&pollID, &movieID, &original, &seen, &total, &ratio, &modifier, &final, &unique, &calculated,
	); err != nil {
		return MovieListing{}, err
	}
	m.TMDBID = tmdbID.Int64
	m.CreatedAt = parseTime(createdRaw)
	m.UpdatedAt = parseTime(updatedRaw)

	listing := MovieListing{Movie: m}
	if pollID.Valid {
		listing.Appeal = &Snapshot{
			PollID: pollID.String,
			Record: appeal.Record{
				MovieID:            movieID.Int64,
				OriginalAppeal:     original.Float64,
				SeenCount:          int(seen.Int64),
				TotalVoters:        int(total.Int64),
				VisibilityRatio:    ratio.Float64,
				VisibilityModifier: modifier.Float64,
				FinalAppeal:        final.Float64,
				TotalUniqueVoters:  int(unique.Int64),
			},
			CalculatedAt: parseTime(calculated.String),
		}
	}
	return listing, nil
}

// ReplaceSnapshots swaps the stored snapshots of pollID for result in one
// transaction. Movies that no longer have votes lose their snapshot.
func (s *Store) ReplaceSnapshots(ctx context.Context, pollID string, result appeal.Result, calculatedAt time.Time) error {
	ctx = ensureContext(ctx)
	at := formatTime(calculatedAt)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM appeal_snapshots WHERE poll_id = ?"), pollID); err != nil {
			return fmt.Errorf("clear snapshots: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO appeal_snapshots (`+snapshotColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare snapshot insert: %w", err)
		}
		defer stmt.Close()
		for _, rec := range result.Records {
			if _, err := stmt.ExecContext(ctx,
				pollID, rec.MovieID, rec.OriginalAppeal, rec.SeenCount, rec.TotalVoters,
				rec.VisibilityRatio, rec.VisibilityModifier, rec.FinalAppeal, rec.TotalUniqueVoters, at,
			); err != nil {
				return fmt.Errorf("insert snapshot for movie %d: %w", rec.MovieID, err)
			}
		}
		return nil
	})
}

// ListSnapshots returns the stored snapshots of pollID ordered by final appeal.
func (s *Store) ListSnapshots(ctx context.Context, pollID string) ([]Snapshot, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+snapshotColumns+" FROM appeal_snapshots WHERE poll_id = ? ORDER BY final_appeal DESC, movie_id"), pollID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
