// Package uploads implements file intake: the fileId-keyed upload store, the
// upload service that fronts it, and the retention sweeper.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Vasu1712/algonomic-backend/internal/apperr"
	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage"
)

// Blobs persists upload bytes under a key. Get returns storage.ErrNotFound
// for unknown keys; Delete of an unknown key is not an error.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// AgedBlobs is implemented by blob backends that can list keys last written
// before a cutoff. Sweep uses it to remove blobs whose index entry was lost.
type AgedBlobs interface {
	ListOlder(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Index maps file ids to upload metadata. Get returns storage.ErrNotFound for
// unknown ids; Delete of an unknown id is not an error. Expired lists the ids
// whose ExpiresAt is at or before now.
type Index interface {
	Put(ctx context.Context, u models.Upload) error
	Get(ctx context.Context, fileID string) (models.Upload, error)
	Delete(ctx context.Context, fileID string) error
	Expired(ctx context.Context, now time.Time) ([]string, error)
}

const maxIDAttempts = 3

// Store is the upload store: one blob per file id plus an index entry.
type Store struct {
	blobs Blobs
	index Index
	ttl   time.Duration
	now   func() time.Time
	newID func() (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long stored uploads stay readable. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides file id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates a Store over the given backends.
func NewStore(blobs Blobs, index Index, opts ...Option) *Store {
	s := &Store{
		blobs: blobs,
		index: index,
		now:   time.Now,
		newID: NewFileID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store persists data under a fresh file id, preserving the extension of
// originalName.
func (s *Store) Store(ctx context.Context, data []byte, originalName, ownerID string) (models.Upload, error) {
	if len(data) == 0 {
		return models.Upload{}, apperr.New(apperr.CodeInvalidInput, "No file uploaded")
	}

	id, err := s.freshID(ctx)
	if err != nil {
		return models.Upload{}, err
	}

	ext := extension(originalName)
	now := s.now().UTC()
	u := models.Upload{
		FileID:       id,
		OriginalName: filepath.Base(originalName),
		Ext:          ext,
		MimeType:     http.DetectContentType(data),
		Size:         int64(len(data)),
		StoredPath:   id + ext,
		OwnerID:      ownerID,
		CreatedAt:    now,
	}
	if s.ttl > 0 {
		u.ExpiresAt = now.Add(s.ttl)
	}

	if err := s.blobs.Put(ctx, u.StoredPath, data); err != nil {
		return models.Upload{}, fmt.Errorf("write blob: %w", err)
	}
	if err := s.index.Put(ctx, u); err != nil {
		// Do not leave an unreachable blob behind.
		_ = s.blobs.Delete(ctx, u.StoredPath)
		return models.Upload{}, fmt.Errorf("index upload: %w", err)
	}
	return u, nil
}

// Stat returns the metadata of a live upload.
func (s *Store) Stat(ctx context.Context, fileID string) (models.Upload, error) {
	if !ValidFileID(fileID) {
		return models.Upload{}, apperr.New(apperr.CodeSourceNotFound, "Upload not found")
	}
	u, err := s.index.Get(ctx, fileID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Upload{}, apperr.New(apperr.CodeSourceNotFound, "Upload not found")
	}
	if err != nil {
		return models.Upload{}, fmt.Errorf("lookup upload %s: %w", fileID, err)
	}
	if u.Expired(s.now()) {
		return models.Upload{}, apperr.New(apperr.CodeSourceNotFound, "Upload expired")
	}
	return u, nil
}

// Read returns the stored bytes of a live upload.
func (s *Store) Read(ctx context.Context, fileID string) ([]byte, error) {
	u, err := s.Stat(ctx, fileID)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, u.StoredPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.New(apperr.CodeSourceNotFound, "Upload not found")
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", u.StoredPath, err)
	}
	return data, nil
}

// Discard removes the blob and the index entry. Discarding an id whose entry
// is already gone only clears leftover index state.
func (s *Store) Discard(ctx context.Context, fileID string) error {
	u, err := s.index.Get(ctx, fileID)
	if errors.Is(err, storage.ErrNotFound) {
		if err := s.index.Delete(ctx, fileID); err != nil {
			return fmt.Errorf("delete index %s: %w", fileID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup upload %s: %w", fileID, err)
	}
	// Blob first: if the index delete fails the entry still points at the key
	// and a later Discard can finish the job.
	if err := s.blobs.Delete(ctx, u.StoredPath); err != nil {
		return fmt.Errorf("delete blob %s: %w", u.StoredPath, err)
	}
	if err := s.index.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete index %s: %w", fileID, err)
	}
	return nil
}

// Sweep discards every upload whose expiry has passed and returns how many
// were removed. When the blob backend implements AgedBlobs it also removes
// blobs written more than the retention TTL ago, which covers entries the
// index no longer knows about.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.index.Expired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired uploads: %w", err)
	}
	removed := 0
	var errs []error
	for _, id := range ids {
		if err := s.Discard(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	n, err := s.sweepOrphans(ctx, now)
	removed += n
	if err != nil {
		errs = append(errs, err)
	}
	return removed, errors.Join(errs...)
}

// sweepOrphans deletes blobs older than the TTL. A blob is written before its
// entry's CreatedAt, so any blob that old belongs to an expired upload.
func (s *Store) sweepOrphans(ctx context.Context, now time.Time) (int, error) {
	aged, ok := s.blobs.(AgedBlobs)
	if !ok || s.ttl <= 0 {
		return 0, nil
	}
	keys, err := aged.ListOlder(ctx, now.Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("list aged blobs: %w", err)
	}
	removed := 0
	var errs []error
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete blob %s: %w", key, err))
			continue
		}
		if id := strings.TrimSuffix(key, filepath.Ext(key)); ValidFileID(id) {
			if err := s.index.Delete(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("delete index %s: %w", id, err))
			}
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *Store) freshID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("generate file id: %w", err)
		}
		_, err = s.index.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check file id: %w", err)
		}
	}
	return "", errors.New("could not allocate a unique file id")
}

// extension returns the lower-cased extension of name, or "" when it is not a
// short alphanumeric suffix.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
