package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
}

// FileStore keeps derived track assets. Implementations must make Delete
// idempotent: removing a key that does not exist is not an error, since the
// track service uses best-effort cleanup after commit.
type FileStore interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
