package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/algonomic-backend/internal/config"
	"github.com/Vasu1712/algonomic-backend/internal/logging"
)

func newTestHandler(t *testing.T, policy string) http.Handler {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	cfg.UploadRoot = t.TempDir()
	cfg.BlobBackend = "disk"
	cfg.IndexBackend = "memory"
	cfg.UserStore = "memory"
	cfg.RetentionPolicy = policy
	cfg.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.UploadRateBurst = 100

	log := logging.Discard()
	a, err := buildApp(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(a.close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.hub.Run(ctx)

	return newRouter(cfg, log, a)
}

func uploadRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploadFile", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRootHealth(t *testing.T) {
	h := newTestHandler(t, config.RetentionDurable)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Server is running"}`, rec.Body.String())
}

func TestUploadThenGenerate(t *testing.T) {
	h := newTestHandler(t, config.RetentionDurable)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, []byte("\xff\xd8\xff\xe0 jpeg")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var up struct {
		FileID       string `json:"fileId"`
		CroppedImage string `json:"croppedImage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	require.NotEmpty(t, up.FileID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generate/"+up.FileID, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var gen struct {
		Success    bool `json:"success"`
		Variations []struct {
			FileName  string `json:"fileName"`
			ImageData string `json:"imageData"`
		} `json:"variations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gen))
	assert.True(t, gen.Success)
	require.Len(t, gen.Variations, 25)
	assert.Equal(t, up.CroppedImage, gen.Variations[0].ImageData)
}

func TestEphemeralUploadCannotBeGenerated(t *testing.T) {
	h := newTestHandler(t, config.RetentionEphemeral)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, []byte("jpeg")))
	require.Equal(t, http.StatusOK, rec.Code)

	var up struct {
		FileID string `json:"fileId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generate/"+up.FileID, nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Upload not found"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, config.RetentionDurable)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/uploadFile", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, config.RetentionDurable)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "algonomic_http_requests_total")
}
