package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/algonomic-backend/internal/logging"
	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage/disk"
	"github.com/Vasu1712/algonomic-backend/internal/storage/memory"
	"github.com/Vasu1712/algonomic-backend/internal/uploads"
	"github.com/Vasu1712/algonomic-backend/internal/variations"
)

func newRouter(t *testing.T) (*mux.Router, *uploads.Store) {
	t.Helper()
	blobs, err := disk.NewBlobs(t.TempDir())
	require.NoError(t, err)
	store := uploads.NewStore(blobs, memory.NewUploadIndex(), uploads.WithTTL(time.Hour))

	r := mux.NewRouter()
	RegisterGenerateRoutes(r, &GenerateHandler{
		Generator: variations.NewGenerator(store),
		Log:       logging.Discard(),
	})
	return r, store
}

func TestGenerateReturnsGrid(t *testing.T) {
	r, store := newRouter(t)
	u, err := store.Store(context.Background(), []byte("jpeg bytes"), "a.jpg", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generate/"+u.FileID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success    bool             `json:"success"`
		Variations []models.Variant `json:"variations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Variations, 25)
	assert.Equal(t, "output_b0.20_c0.20.jpg", body.Variations[0].FileName)
	assert.Equal(t, 1.0, body.Variations[24].Brightness)
}

func TestGenerateAfterDiscard(t *testing.T) {
	r, store := newRouter(t)
	u, err := store.Store(context.Background(), []byte("jpeg bytes"), "a.jpg", "")
	require.NoError(t, err)
	require.NoError(t, store.Discard(context.Background(), u.FileID))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generate/"+u.FileID, nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Upload not found"}`, rec.Body.String())
}

func TestGenerateUnknownID(t *testing.T) {
	r, _ := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generate/../etc", nil))
	assert.NotEqual(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generate/zzzzzzzzzzzz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
