package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/AJM432/racing/convert"
	"github.com/AJM432/racing/models"
	"github.com/AJM432/racing/repositories"
	"github.com/AJM432/racing/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func convertUndecodable() error {
	return convert.ErrUndecodableImage
}

func trackFixture(id, name, owner string, assetKey *string) models.Track {
	return models.Track{
		ID:        id,
		Name:      name,
		Owner:     owner,
		AssetKey:  assetKey,
		CreatedAt: time.Now().UTC(),
	}
}

type fakeTrackRepo struct {
	mu     sync.Mutex
	tracks map[string]*models.Track

	createErr error
	getErr    error
	updateErr error
	listErr   error
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{tracks: make(map[string]*models.Track)}
}

func (r *fakeTrackRepo) put(t models.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := t
	r.tracks[t.ID] = &cp
}

func (r *fakeTrackRepo) Create(ctx context.Context, t *models.Track) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tracks[t.ID]; exists {
		return repositories.ErrTrackIDConflict
	}
	t.CreatedAt = time.Now().UTC()
	cp := *t
	r.tracks[t.ID] = &cp
	return nil
}

func (r *fakeTrackRepo) GetByID(ctx context.Context, id string) (*models.Track, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracks[id]
	if !ok {
		return nil, repositories.ErrTrackNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTrackRepo) List(ctx context.Context, filter repositories.ListTracksFilter) ([]models.Track, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Track, 0)
	for _, t := range r.tracks {
		if filter.Owner != nil && t.Owner != *filter.Owner {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTrackRepo) UpdateAssetKey(ctx context.Context, id string, assetKey string, updatedAt time.Time) (*models.Track, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracks[id]
	if !ok {
		return nil, repositories.ErrTrackNotFound
	}
	t.AssetKey = &assetKey
	t.UpdatedAt = &updatedAt
	cp := *t
	return &cp, nil
}

func (r *fakeTrackRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracks[id]; !ok {
		return repositories.ErrTrackNotFound
	}
	delete(r.tracks, id)
	return nil
}

type fakeLeaderboardRepo struct {
	submitEntry    *models.LeaderboardEntry
	submitImproved bool
	submitErr      error
	submitCalls    int

	listEntries []models.LeaderboardEntry
	listErr     error

	deletedTracks []string
	deleteErr     error
}

func (r *fakeLeaderboardRepo) SubmitBest(ctx context.Context, trackID, username string, seconds float64) (*models.LeaderboardEntry, bool, error) {
	r.submitCalls++
	if r.submitErr != nil {
		return nil, false, r.submitErr
	}
	return r.submitEntry, r.submitImproved, nil
}

func (r *fakeLeaderboardRepo) GetBest(ctx context.Context, trackID, username string) (*models.LeaderboardEntry, error) {
	return r.submitEntry, nil
}

func (r *fakeLeaderboardRepo) ListByTrack(ctx context.Context, trackID string) ([]models.LeaderboardEntry, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.listEntries, nil
}

func (r *fakeLeaderboardRepo) DeleteByTrackID(ctx context.Context, exec repositories.SQLExecutor, trackID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedTracks = append(r.deletedTracks, trackID)
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	uploaded []string

	uploadErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.uploaded = append(s.uploaded, key)
	return &storage.UploadResult{Key: key, Location: s.GetPublicURL(key)}, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) GetPublicURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://cdn.test/" + key
}

type fakeConverter struct {
	out        []byte
	convertErr error
}

func (c *fakeConverter) Convert(ctx context.Context, raw []byte, format convert.Format) ([]byte, error) {
	if c.convertErr != nil {
		return nil, c.convertErr
	}
	return c.out, nil
}

func (c *fakeConverter) Ext() string { return ".svg" }

func (c *fakeConverter) ContentType() string { return "image/svg+xml" }
