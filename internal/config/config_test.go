package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, RetentionDurable, cfg.RetentionPolicy)
	assert.Equal(t, time.Hour, cfg.RetentionTTL)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 2*time.Second, cfg.PhaseDwell)
	assert.Equal(t, time.Second, cfg.IntroOverlay)
	assert.Equal(t, 500*time.Millisecond, cfg.IntroOverlayTail)
	assert.Equal(t, 2*time.Second, cfg.MorphOverlay)
	assert.Equal(t, "disk", cfg.BlobBackend)
	assert.Equal(t, "memory", cfg.IndexBackend)
	assert.Equal(t, "memory", cfg.UserStore)
	assert.Contains(t, cfg.AllowedOrigins, "http://localhost:3000")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ALGONOMIC_RETENTION_POLICY", "ephemeral")
	t.Setenv("ALGONOMIC_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("ALGONOMIC_PHASE_DWELL", "150ms")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, RetentionEphemeral, cfg.RetentionPolicy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 150*time.Millisecond, cfg.PhaseDwell)
}

func TestLoadFromDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ALGONOMIC_UPLOAD_ROOT=/tmp/algonomic-test\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ALGONOMIC_UPLOAD_ROOT") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/algonomic-test", cfg.UploadRoot)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(missingEnvFile(t))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.RetentionPolicy = "forever"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.BlobBackend = "ftp"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.IndexBackend = "etcd"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.UserStore = "json"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.MaxUploadBytes = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RetentionTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RetentionPolicy = RetentionEphemeral
	cfg.RetentionTTL = 0
	assert.NoError(t, cfg.Validate())
}
