package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AJM432/racing/models"
	"github.com/lib/pq"
)

var (
	ErrTrackNotFound     = errors.New("track not found")
	ErrTrackIDConflict   = errors.New("track id conflict")
	ErrTrackInvalidInput = errors.New("track row conflict or invalid")
)

type ListTracksFilter struct {
	Owner *string
}

type TrackRepository interface {
	Create(ctx context.Context, track *models.Track) error
	GetByID(ctx context.Context, id string) (*models.Track, error)
	List(ctx context.Context, filter ListTracksFilter) ([]models.Track, error)
	UpdateAssetKey(ctx context.Context, id string, assetKey string, updatedAt time.Time) (*models.Track, error)
	Delete(ctx context.Context, exec SQLExecutor, id string) error
}

type postgresTrackRepository struct {
	db *sql.DB
}

func NewPostgresTrackRepository(db *sql.DB) TrackRepository {
	return &postgresTrackRepository{db: db}
}

func (r *postgresTrackRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTrackRepository) Create(ctx context.Context, t *models.Track) error {
	query := `
		INSERT INTO tracks (id, name, owner, asset_key)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, t.ID, t.Name, t.Owner, t.AssetKey).Scan(&t.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTrackIDConflict
		}
		return err
	}
	return nil
}

func (r *postgresTrackRepository) scanTrack(rowScanner interface{ Scan(...interface{}) error }) (*models.Track, error) {
	var t models.Track
	err := rowScanner.Scan(&t.ID, &t.Name, &t.Owner, &t.AssetKey, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidIDErr(err) {
			return nil, ErrTrackNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTrackRepository) GetByID(ctx context.Context, id string) (*models.Track, error) {
	query := `
		SELECT id, name, owner, asset_key, created_at, updated_at
		FROM tracks
		WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanTrack(row)
}

func (r *postgresTrackRepository) List(ctx context.Context, filter ListTracksFilter) ([]models.Track, error) {
	// created_at, id keeps the order stable across repeated reads.
	query := `
		SELECT id, name, owner, asset_key, created_at, updated_at
		FROM tracks`
	args := []interface{}{}
	if filter.Owner != nil {
		query += ` WHERE owner = $1`
		args = append(args, *filter.Owner)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := make([]models.Track, 0)
	for rows.Next() {
		t, errScan := r.scanTrack(rows)
		if errScan != nil {
			return nil, errScan
		}
		tracks = append(tracks, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (r *postgresTrackRepository) UpdateAssetKey(ctx context.Context, id string, assetKey string, updatedAt time.Time) (*models.Track, error) {
	// Single UPDATE so concurrent readers never observe a half-updated row.
	query := `
		UPDATE tracks
		SET asset_key = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, name, owner, asset_key, created_at, updated_at`

	row := r.db.QueryRowContext(ctx, query, assetKey, updatedAt, id)
	return r.scanTrack(row)
}

func (r *postgresTrackRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM tracks WHERE id = $1`

	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		if isInvalidIDErr(err) {
			return ErrTrackNotFound
		}
		return err
	}
	return checkAffectedRows(result, ErrTrackNotFound)
}
