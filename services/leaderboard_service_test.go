package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AJM432/racing/cache"
	"github.com/AJM432/racing/models"
	"github.com/AJM432/racing/repositories"
)

func newTestLeaderboardService(lbRepo *fakeLeaderboardRepo, trackRepo *fakeTrackRepo, lbCache *cache.LeaderboardCache) LeaderboardService {
	return NewLeaderboardService(lbRepo, trackRepo, lbCache, nil, testLogger())
}

func entryFixture(trackID, username string, best float64) *models.LeaderboardEntry {
	return &models.LeaderboardEntry{
		TrackID:    trackID,
		Username:   username,
		BestTime:   best,
		RecordedAt: time.Now().UTC(),
	}
}

func TestSubmitTimeValidation(t *testing.T) {
	svc := newTestLeaderboardService(&fakeLeaderboardRepo{}, newFakeTrackRepo(), nil)
	ctx := context.Background()

	_, err := svc.SubmitTime(ctx, "t1", "   ", 10.0)
	assert.ErrorIs(t, err, ErrUsernameRequired)

	for _, bad := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := svc.SubmitTime(ctx, "t1", "alice", bad)
		assert.ErrorIs(t, err, ErrInvalidTime, "time %v", bad)
	}
}

func TestSubmitTimeAccepted(t *testing.T) {
	lbRepo := &fakeLeaderboardRepo{
		submitEntry:    entryFixture("t1", "alice", 42.5),
		submitImproved: true,
	}
	svc := newTestLeaderboardService(lbRepo, newFakeTrackRepo(), nil)

	result, err := svc.SubmitTime(context.Background(), "t1", "alice", 42.5)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 42.5, result.BestTime)
}

func TestSubmitTimeNotImproved(t *testing.T) {
	// The stored best survives a slower submission.
	lbRepo := &fakeLeaderboardRepo{
		submitEntry:    entryFixture("t1", "alice", 40.0),
		submitImproved: false,
	}
	svc := newTestLeaderboardService(lbRepo, newFakeTrackRepo(), nil)

	result, err := svc.SubmitTime(context.Background(), "t1", "alice", 55.0)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, 40.0, result.BestTime)
}

func TestSubmitTimeUnknownTrack(t *testing.T) {
	lbRepo := &fakeLeaderboardRepo{submitErr: repositories.ErrLeaderboardTrackInvalid}
	svc := newTestLeaderboardService(lbRepo, newFakeTrackRepo(), nil)

	_, err := svc.SubmitTime(context.Background(), "missing", "alice", 10.0)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestSubmitTimeRepoFailure(t *testing.T) {
	lbRepo := &fakeLeaderboardRepo{submitErr: errors.New("db down")}
	svc := newTestLeaderboardService(lbRepo, newFakeTrackRepo(), nil)

	_, err := svc.SubmitTime(context.Background(), "t1", "alice", 10.0)
	assert.ErrorIs(t, err, ErrLeaderboardFailure)
}

func TestSubmitTimeCacheFastReject(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	lbCache := cache.NewLeaderboardCache(client)

	require.NoError(t, lbCache.Record(context.Background(), "t1", "alice", 30.0))

	// A submission at or above the cached best never reaches the repository.
	lbRepo := &fakeLeaderboardRepo{submitErr: errors.New("must not be called")}
	svc := newTestLeaderboardService(lbRepo, newFakeTrackRepo(), lbCache)

	result, err := svc.SubmitTime(context.Background(), "t1", "alice", 35.0)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, 30.0, result.BestTime)
	assert.Equal(t, 0, lbRepo.submitCalls)
}

func TestSubmitTimeAcceptedUpdatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	lbCache := cache.NewLeaderboardCache(client)

	lbRepo := &fakeLeaderboardRepo{
		submitEntry:    entryFixture("t1", "alice", 25.0),
		submitImproved: true,
	}
	svc := newTestLeaderboardService(lbRepo, newFakeTrackRepo(), lbCache)

	result, err := svc.SubmitTime(context.Background(), "t1", "alice", 25.0)
	require.NoError(t, err)
	require.True(t, result.Accepted)

	best, ok, err := lbCache.Best(context.Background(), "t1", "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 25.0, best)
}

func TestGetLeaderboard(t *testing.T) {
	trackRepo := newFakeTrackRepo()
	trackRepo.put(trackFixture("t1", "Monza", "alice", nil))

	lbRepo := &fakeLeaderboardRepo{
		listEntries: []models.LeaderboardEntry{
			*entryFixture("t1", "alice", 40.0),
			*entryFixture("t1", "bob", 41.0),
			*entryFixture("t1", "carol", 44.5),
		},
	}
	svc := newTestLeaderboardService(lbRepo, trackRepo, nil)

	entries, err := svc.GetLeaderboard(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestGetLeaderboardUnknownTrack(t *testing.T) {
	svc := newTestLeaderboardService(&fakeLeaderboardRepo{}, newFakeTrackRepo(), nil)

	_, err := svc.GetLeaderboard(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestGetLeaderboardEmptyTrack(t *testing.T) {
	trackRepo := newFakeTrackRepo()
	trackRepo.put(trackFixture("t1", "Monza", "alice", nil))
	lbRepo := &fakeLeaderboardRepo{listEntries: []models.LeaderboardEntry{}}
	svc := newTestLeaderboardService(lbRepo, trackRepo, nil)

	entries, err := svc.GetLeaderboard(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
