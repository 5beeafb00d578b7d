package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AJM432/racing/cache"
	"github.com/AJM432/racing/convert"
	"github.com/AJM432/racing/models"
	"github.com/AJM432/racing/repositories"
	"github.com/AJM432/racing/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type CreateTrackInput struct {
	Name         string
	Owner        string
	ImagePayload string
}

type TrackService interface {
	CreateTrack(ctx context.Context, input CreateTrackInput) (*models.Track, error)
	ReplaceTrackAsset(ctx context.Context, trackID string, imagePayload string) (*models.Track, error)
	GetTrackByID(ctx context.Context, id string) (*models.Track, error)
	ListTracks(ctx context.Context, owner string) ([]models.Track, error)
	DeleteTrack(ctx context.Context, id string) error
}

type trackService struct {
	db        *sql.DB
	trackRepo repositories.TrackRepository
	lbRepo    repositories.LeaderboardRepository
	store     storage.FileStore
	converter convert.Converter
	lbCache   *cache.LeaderboardCache
	logger    *slog.Logger

	// runTx executes fn inside a transaction. It is a field so the
	// transactional choreography does not depend on a live *sql.DB.
	runTx func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error

	// Per-track lock serializing the write-new/commit/delete-old sequence
	// of asset replacement so concurrent replaces cannot commit a pointer
	// inconsistent with what is on disk.
	trackLocks sync.Map
}

func NewTrackService(
	db *sql.DB,
	trackRepo repositories.TrackRepository,
	lbRepo repositories.LeaderboardRepository,
	store storage.FileStore,
	converter convert.Converter,
	lbCache *cache.LeaderboardCache,
	logger *slog.Logger,
) TrackService {
	s := &trackService{
		db:        db,
		trackRepo: trackRepo,
		lbRepo:    lbRepo,
		store:     store,
		converter: converter,
		lbCache:   lbCache,
		logger:    logger,
	}
	s.runTx = s.runInTx
	return s
}

func (s *trackService) runInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *trackService) lockTrack(id string) func() {
	v, _ := s.trackLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// produceAsset runs decode → convert and returns the derived asset bytes.
func (s *trackService) produceAsset(ctx context.Context, imagePayload string) ([]byte, error) {
	raw, format, err := convert.DecodeImagePayload(imagePayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAsset, err)
	}

	derived, err := s.converter.Convert(ctx, raw, format)
	if err != nil {
		if errors.Is(err, convert.ErrUndecodableImage) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAsset, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return derived, nil
}

func (s *trackService) assetKey(trackID string) string {
	// Keys carry a revision component so a replacement never overwrites
	// the asset the committed pointer still references.
	return fmt.Sprintf("tracks/%s/%d%s", trackID, time.Now().UnixNano(), s.converter.Ext())
}

// compensate removes an asset written during a failed multi-step
// operation. Failure here only ever leaves an orphan, so it is logged, not
// returned.
func (s *trackService) compensate(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error("compensating asset delete failed, object orphaned",
			slog.String("key", key), slog.Any("error", err))
	}
}

func (s *trackService) CreateTrack(ctx context.Context, input CreateTrackInput) (*models.Track, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTrackNameRequired
	}
	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		return nil, ErrTrackOwnerRequired
	}

	derived, err := s.produceAsset(ctx, input.ImagePayload)
	if err != nil {
		return nil, err
	}

	trackID := uuid.NewString()
	key := s.assetKey(trackID)
	if _, err := s.store.Upload(ctx, key, s.converter.ContentType(), bytes.NewReader(derived)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	track := &models.Track{
		ID:       trackID,
		Name:     name,
		Owner:    owner,
		AssetKey: &key,
	}
	if err := s.trackRepo.Create(ctx, track); err != nil {
		// No record may reference the asset, so undo the upload.
		s.compensate(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	s.populateAssetURL(track)
	return track, nil
}

func (s *trackService) ReplaceTrackAsset(ctx context.Context, trackID string, imagePayload string) (*models.Track, error) {
	unlock := s.lockTrack(trackID)
	defer unlock()

	track, err := s.trackRepo.GetByID(ctx, trackID)
	if err != nil {
		if errors.Is(err, repositories.ErrTrackNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	derived, err := s.produceAsset(ctx, imagePayload)
	if err != nil {
		return nil, err
	}

	newKey := s.assetKey(trackID)
	if _, err := s.store.Upload(ctx, newKey, s.converter.ContentType(), bytes.NewReader(derived)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	updated, err := s.trackRepo.UpdateAssetKey(ctx, trackID, newKey, time.Now().UTC())
	if err != nil {
		s.compensate(ctx, newKey)
		if errors.Is(err, repositories.ErrTrackNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	// Delete-after-commit: only now is the previous asset unreachable. A
	// crash before this point leaves an orphan, never a dangling pointer.
	if track.AssetKey != nil && *track.AssetKey != newKey {
		s.compensate(ctx, *track.AssetKey)
	}

	s.populateAssetURL(updated)
	return updated, nil
}

func (s *trackService) GetTrackByID(ctx context.Context, id string) (*models.Track, error) {
	track, err := s.trackRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTrackNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	s.populateAssetURL(track)
	return track, nil
}

func (s *trackService) ListTracks(ctx context.Context, owner string) ([]models.Track, error) {
	filter := repositories.ListTracksFilter{}
	if owner = strings.TrimSpace(owner); owner != "" {
		filter.Owner = &owner
	}
	tracks, err := s.trackRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	for i := range tracks {
		s.populateAssetURL(&tracks[i])
	}
	return tracks, nil
}

func (s *trackService) DeleteTrack(ctx context.Context, id string) error {
	unlock := s.lockTrack(id)
	defer unlock()

	track, err := s.trackRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTrackNotFound) {
			return ErrTrackNotFound
		}
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	// Leaderboard entries go with their track in one transaction.
	err = s.runTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.lbRepo.DeleteByTrackID(ctx, exec, id); err != nil {
			return err
		}
		return s.trackRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTrackNotFound) {
			return ErrTrackNotFound
		}
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	// Post-commit cleanup is best-effort; failures leave orphans only.
	g, gctx := errgroup.WithContext(ctx)
	if track.AssetKey != nil {
		key := *track.AssetKey
		g.Go(func() error { return s.store.Delete(gctx, key) })
	}
	g.Go(func() error { return s.lbCache.Drop(gctx, id) })
	if err := g.Wait(); err != nil {
		s.logger.Error("post-delete cleanup incomplete", slog.String("track_id", id), slog.Any("error", err))
	}

	s.trackLocks.Delete(id)
	return nil
}

func (s *trackService) populateAssetURL(track *models.Track) {
	if track != nil && track.AssetKey != nil && *track.AssetKey != "" {
		if url := s.store.GetPublicURL(*track.AssetKey); url != "" {
			track.AssetURL = &url
		}
	}
}
