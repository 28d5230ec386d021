package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage"
)

// UploadIndex keeps upload metadata in memory.
type UploadIndex struct {
	mu      sync.RWMutex             // Guards uploads
	uploads map[string]models.Upload // fileID -> metadata
}

// NewUploadIndex creates and returns an empty UploadIndex.
func NewUploadIndex() *UploadIndex {
	return &UploadIndex{
		uploads: make(map[string]models.Upload),
	}
}

// Put records u, replacing any previous entry for the same id.
func (s *UploadIndex) Put(_ context.Context, u models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploads[u.FileID] = u
	return nil
}

// Get returns the entry for fileID or storage.ErrNotFound.
func (s *UploadIndex) Get(_ context.Context, fileID string) (models.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.uploads[fileID]
	if !ok {
		return models.Upload{}, storage.ErrNotFound
	}
	return u, nil
}

// Delete removes the entry for fileID if present.
func (s *UploadIndex) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.uploads, fileID)
	return nil
}

// Expired lists ids of entries expired at now, oldest expiry first.
func (s *UploadIndex) Expired(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []models.Upload
	for _, u := range s.uploads {
		if u.Expired(now) {
			expired = append(expired, u)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})

	ids := make([]string, 0, len(expired))
	for _, u := range expired {
		ids = append(ids, u.FileID)
	}
	return ids, nil
}

// Len returns the number of entries.
func (s *UploadIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uploads)
}
