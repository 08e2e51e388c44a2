package infra

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, "us-west-2", cfg.AWSRegion)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9100")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("S3_BUCKET_NAME", "prod-bucket")
	t.Setenv("POLL_INTERVAL_SECONDS", "5")
	t.Setenv("MAX_CONCURRENT_JOBS", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "prod-bucket", cfg.S3Bucket)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 8, cfg.MaxConcurrentJobs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_IgnoresMalformedInt(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_JOBS", "many")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
}

func TestConfig_DerivedPaths(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/videoforge")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/videoforge/keyframes", cfg.KeyframesDir())
	assert.Equal(t, "/srv/videoforge/videos", cfg.VideosDir())
	assert.Equal(t, "/srv/videoforge/database.json", cfg.DatabaseFile())
}
