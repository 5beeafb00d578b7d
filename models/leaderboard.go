package models

import "time"

// LeaderboardEntry хранит лучшее время пользователя на трассе.
// One row per (track, username); best_time only ever decreases.
type LeaderboardEntry struct {
	TrackID    string    `json:"track_id" db:"track_id"`
	Username   string    `json:"username" db:"username"`
	BestTime   float64   `json:"time" db:"best_time"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`

	// 1-based position, populated by the service when ranking.
	Rank int `json:"rank,omitempty" db:"-"`
}
