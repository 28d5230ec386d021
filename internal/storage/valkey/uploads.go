// Package valkey keeps the upload index in Valkey so several server processes
// can share one upload area.
package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage"
)

const (
	keyPrefix = "uploads:"
	expiryKey = "uploads:expiry"
)

// UploadIndex stores each upload as a JSON string plus a sorted set of
// expiry times used by the sweep.
type UploadIndex struct {
	client valkey.Client
}

// Dial connects to the given addresses.
func Dial(addrs ...string) (*UploadIndex, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: addrs})
	if err != nil {
		return nil, fmt.Errorf("connect valkey: %w", err)
	}
	return &UploadIndex{client: client}, nil
}

// Close releases the client.
func (s *UploadIndex) Close() {
	s.client.Close()
}

// Put records u. Entries with an expiry also get a score in the expiry set.
// Keys carry no TTL: the retention sweep removes them together with their
// blobs, so an entry never disappears while its blob is still stored.
func (s *UploadIndex) Put(ctx context.Context, u models.Upload) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}

	set := s.client.B().Set().Key(keyPrefix + u.FileID).Value(string(payload))
	if u.ExpiresAt.IsZero() {
		if err := s.client.Do(ctx, set.Build()).Error(); err != nil {
			return fmt.Errorf("set upload %s: %w", u.FileID, err)
		}
		return nil
	}

	cmds := valkey.Commands{
		set.Build(),
		s.client.B().Zadd().Key(expiryKey).ScoreMember().
			ScoreMember(float64(u.ExpiresAt.Unix()), u.FileID).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("index upload %s: %w", u.FileID, err)
		}
	}
	return nil
}

// Get returns the entry for fileID or storage.ErrNotFound.
func (s *UploadIndex) Get(ctx context.Context, fileID string) (models.Upload, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(keyPrefix+fileID).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return models.Upload{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Upload{}, fmt.Errorf("get upload %s: %w", fileID, err)
	}

	var u models.Upload
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return models.Upload{}, fmt.Errorf("decode upload %s: %w", fileID, err)
	}
	return u, nil
}

// Delete removes the entry and its expiry score.
func (s *UploadIndex) Delete(ctx context.Context, fileID string) error {
	cmds := valkey.Commands{
		s.client.B().Del().Key(keyPrefix + fileID).Build(),
		s.client.B().Zrem().Key(expiryKey).Member(fileID).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("delete upload %s: %w", fileID, err)
		}
	}
	return nil
}

// Expired lists ids whose expiry score is at or before now.
func (s *UploadIndex) Expired(ctx context.Context, now time.Time) ([]string, error) {
	cmd := s.client.B().Zrangebyscore().Key(expiryKey).
		Min("-inf").Max(strconv.FormatInt(now.Unix(), 10)).Build()
	ids, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("list expired uploads: %w", err)
	}
	return ids, nil
}
