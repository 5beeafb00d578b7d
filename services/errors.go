package services

import "errors"

// Ошибки сервисного слоя, маппятся на HTTP-статусы в handlers.
var (
	// Validation
	ErrTrackNameRequired  = errors.New("track name is required")
	ErrTrackOwnerRequired = errors.New("track owner is required")
	ErrUsernameRequired   = errors.New("username is required")
	ErrInvalidTime        = errors.New("lap time must be a finite positive number")

	// Asset pipeline
	ErrInvalidAsset     = errors.New("invalid or undecodable image payload")
	ErrConversionFailed = errors.New("asset conversion failed")
	ErrStorageFailed    = errors.New("asset storage failed")

	// Records
	ErrTrackNotFound      = errors.New("track not found")
	ErrPersistenceFailed  = errors.New("track record persistence failed")
	ErrLeaderboardFailure = errors.New("leaderboard persistence failed")
)
