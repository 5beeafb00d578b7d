package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type localFileStore struct {
	baseDir string
	baseURL string
}

// NewLocalFileStore stores assets under baseDir. baseURL is what
// GetPublicURL prefixes keys with (typically the address the HTTP layer
// serves the directory from).
func NewLocalFileStore(baseDir, baseURL string) (FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("invalid local store configuration: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory %s: %w", baseDir, err)
	}
	return &localFileStore{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *localFileStore) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid asset key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *localFileStore) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	// Write to a temp file and rename so a failed write never leaves a
	// partial asset at the final key.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write asset %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to flush asset %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to place asset %s: %w", key, err)
	}

	return &UploadResult{
		Key:      key,
		Location: s.GetPublicURL(key),
	}, nil
}

func (s *localFileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete asset %s: %w", key, err)
	}
	return nil
}

func (s *localFileStore) GetPublicURL(key string) string {
	if s.baseURL == "" || key == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}
