package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage"
)

func TestUserStoreCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	u := models.User{ID: "u1", Email: "Ada@Example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	byID, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
}

func TestUserStoreRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	require.NoError(t, s.CreateUser(ctx, models.User{ID: "u1", Email: "a@b.c"}))
	err := s.CreateUser(ctx, models.User{ID: "u2", Email: "A@B.C"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestUserStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	_, err := s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
