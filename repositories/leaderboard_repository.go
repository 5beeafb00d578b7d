package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AJM432/racing/models"
	"github.com/lib/pq"
)

var (
	ErrLeaderboardEntryNotFound = errors.New("leaderboard entry not found")
	ErrLeaderboardTrackInvalid  = errors.New("leaderboard track reference invalid")
)

type LeaderboardRepository interface {
	// SubmitBest records the time if it strictly improves the stored best
	// for (trackID, username), creating the entry on first submission.
	// The returned entry reflects the stored state after the call;
	// improved reports whether this submission was kept.
	SubmitBest(ctx context.Context, trackID, username string, seconds float64) (entry *models.LeaderboardEntry, improved bool, err error)
	GetBest(ctx context.Context, trackID, username string) (*models.LeaderboardEntry, error)
	ListByTrack(ctx context.Context, trackID string) ([]models.LeaderboardEntry, error)
	DeleteByTrackID(ctx context.Context, exec SQLExecutor, trackID string) error
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLeaderboardRepository) SubmitBest(ctx context.Context, trackID, username string, seconds float64) (*models.LeaderboardEntry, bool, error) {
	// The conditional upsert is the whole concurrency story: two racing
	// submissions both hit this statement and the row ends up holding the
	// minimum regardless of arrival order. recorded_at only moves when the
	// best does, which is what the earliest-improvement tie-break needs.
	query := `
		INSERT INTO leaderboard_entries (track_id, username, best_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (track_id, username) DO UPDATE
			SET best_time = EXCLUDED.best_time, recorded_at = now()
			WHERE leaderboard_entries.best_time > EXCLUDED.best_time
		RETURNING track_id, username, best_time, recorded_at`

	var e models.LeaderboardEntry
	err := r.db.QueryRowContext(ctx, query, trackID, username, seconds).
		Scan(&e.TrackID, &e.Username, &e.BestTime, &e.RecordedAt)
	if err == nil {
		return &e, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		// Not an improvement; report the surviving best. The entry
		// disappearing between the two statements means the track was
		// deleted concurrently.
		stored, getErr := r.GetBest(ctx, trackID, username)
		if getErr != nil {
			if errors.Is(getErr, ErrLeaderboardEntryNotFound) {
				return nil, false, ErrLeaderboardTrackInvalid
			}
			return nil, false, getErr
		}
		return stored, false, nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return nil, false, ErrLeaderboardTrackInvalid
	}
	if isInvalidIDErr(err) {
		return nil, false, ErrLeaderboardTrackInvalid
	}
	return nil, false, err
}

func (r *postgresLeaderboardRepository) scanEntry(rowScanner interface{ Scan(...interface{}) error }) (*models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	err := rowScanner.Scan(&e.TrackID, &e.Username, &e.BestTime, &e.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidIDErr(err) {
			return nil, ErrLeaderboardEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *postgresLeaderboardRepository) GetBest(ctx context.Context, trackID, username string) (*models.LeaderboardEntry, error) {
	query := `
		SELECT track_id, username, best_time, recorded_at
		FROM leaderboard_entries
		WHERE track_id = $1 AND username = $2`

	row := r.db.QueryRowContext(ctx, query, trackID, username)
	return r.scanEntry(row)
}

func (r *postgresLeaderboardRepository) ListByTrack(ctx context.Context, trackID string) ([]models.LeaderboardEntry, error) {
	// Ranking order: fastest first, earliest improvement wins ties,
	// username as the final deterministic component.
	query := `
		SELECT track_id, username, best_time, recorded_at
		FROM leaderboard_entries
		WHERE track_id = $1
		ORDER BY best_time ASC, recorded_at ASC, username ASC`

	rows, err := r.db.QueryContext(ctx, query, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		e, errScan := r.scanEntry(rows)
		if errScan != nil {
			return nil, errScan
		}
		entries = append(entries, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresLeaderboardRepository) DeleteByTrackID(ctx context.Context, exec SQLExecutor, trackID string) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM leaderboard_entries WHERE track_id = $1`
	_, err := executor.ExecContext(ctx, query, trackID)
	return err
}
