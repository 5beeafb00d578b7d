package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaderboardTTL = 24 * time.Hour

// LeaderboardCache keeps per-track best times in a redis sorted set. It is
// a best-effort read-side cache: the database stays authoritative and every
// method degrades to a miss/no-op when redis is absent or failing.
type LeaderboardCache struct {
	rdb *redis.Client
}

func NewLeaderboardCache(rdb *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: rdb}
}

func leaderboardKey(trackID string) string {
	return fmt.Sprintf("leaderboard:%s", trackID)
}

// Record stores the time for username iff it is lower than the cached
// score (ZADD LT), mirroring the monotonic-improvement rule.
func (c *LeaderboardCache) Record(ctx context.Context, trackID, username string, seconds float64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	key := leaderboardKey(trackID)
	if err := c.rdb.ZAddLT(ctx, key, redis.Z{Score: seconds, Member: username}).Err(); err != nil {
		return fmt.Errorf("failed to record cached best for %s: %w", key, err)
	}
	if err := c.rdb.Expire(ctx, key, leaderboardTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh ttl for %s: %w", key, err)
	}
	return nil
}

// Best returns the cached best time for username, with ok=false on a miss.
func (c *LeaderboardCache) Best(ctx context.Context, trackID, username string) (float64, bool, error) {
	if c == nil || c.rdb == nil {
		return 0, false, nil
	}
	score, err := c.rdb.ZScore(ctx, leaderboardKey(trackID), username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read cached best: %w", err)
	}
	return score, true, nil
}

// EntryCount reports how many users hold a time on the track.
func (c *LeaderboardCache) EntryCount(ctx context.Context, trackID string) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	n, err := c.rdb.ZCard(ctx, leaderboardKey(trackID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count cached entries: %w", err)
	}
	return n, nil
}

// Drop removes the track's cached leaderboard, e.g. when the track is
// deleted.
func (c *LeaderboardCache) Drop(ctx context.Context, trackID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, leaderboardKey(trackID)).Err(); err != nil {
		return fmt.Errorf("failed to drop cached leaderboard: %w", err)
	}
	return nil
}
