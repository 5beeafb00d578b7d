package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/AJM432/racing/cache"
	"github.com/AJM432/racing/live"
	"github.com/AJM432/racing/models"
	"github.com/AJM432/racing/repositories"
)

type SubmitResult struct {
	Accepted bool    `json:"accepted"`
	BestTime float64 `json:"best_time"`
}

type LeaderboardService interface {
	SubmitTime(ctx context.Context, trackID, username string, seconds float64) (*SubmitResult, error)
	GetLeaderboard(ctx context.Context, trackID string) ([]models.LeaderboardEntry, error)
}

type leaderboardService struct {
	lbRepo    repositories.LeaderboardRepository
	trackRepo repositories.TrackRepository
	lbCache   *cache.LeaderboardCache
	hub       *live.Hub
	logger    *slog.Logger
}

func NewLeaderboardService(
	lbRepo repositories.LeaderboardRepository,
	trackRepo repositories.TrackRepository,
	lbCache *cache.LeaderboardCache,
	hub *live.Hub,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		lbRepo:    lbRepo,
		trackRepo: trackRepo,
		lbCache:   lbCache,
		hub:       hub,
		logger:    logger,
	}
}

func (s *leaderboardService) SubmitTime(ctx context.Context, trackID, username string, seconds float64) (*SubmitResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return nil, ErrInvalidTime
	}

	// Fast reject from the cache: a cached best at or below the submission
	// cannot be improved on, so the round trip to the database is skipped.
	// Cache errors fall through to the authoritative path.
	if cached, ok, err := s.lbCache.Best(ctx, trackID, username); err == nil && ok && seconds >= cached {
		return &SubmitResult{Accepted: false, BestTime: cached}, nil
	}

	entry, improved, err := s.lbRepo.SubmitBest(ctx, trackID, username, seconds)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderboardTrackInvalid) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrLeaderboardFailure, err)
	}

	if improved {
		if err := s.lbCache.Record(ctx, trackID, username, entry.BestTime); err != nil {
			s.logger.Warn("leaderboard cache update failed", slog.String("track_id", trackID), slog.Any("error", err))
		}
		if s.hub != nil {
			s.hub.BroadcastToRoom(trackID, live.Message{
				Type:    live.TypeLeaderboardUpdated,
				TrackID: trackID,
				Payload: entry,
			})
		}
	}

	return &SubmitResult{Accepted: improved, BestTime: entry.BestTime}, nil
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, trackID string) ([]models.LeaderboardEntry, error) {
	// The ranking always comes from the database ordering; the cache only
	// serves point lookups (see SubmitTime).
	if _, err := s.trackRepo.GetByID(ctx, trackID); err != nil {
		if errors.Is(err, repositories.ErrTrackNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	entries, err := s.lbRepo.ListByTrack(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLeaderboardFailure, err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
