package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_ADDR", "DB_PATH", "DATA_DIR", "RECOMPUTE_INTERVAL", "RECOMPUTE_ON_START",
	"CORS_ORIGINS", "LOG_LEVEL", "MAX_UPLOAD_BYTES", "APP_ENV",
}

// clearEnv blanks every key for the test; t.Setenv restores them after.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "./casualpay.db", cfg.DBPath)
	assert.Empty(t, cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.RecomputeInterval)
	assert.True(t, cfg.RecomputeOnStart)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("RECOMPUTE_INTERVAL", "5m")
	t.Setenv("RECOMPUTE_ON_START", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://pay.example.com ,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.RecomputeInterval)
	assert.False(t, cfg.RecomputeOnStart)
	assert.Equal(t, []string{"http://localhost:5173", "https://pay.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECOMPUTE_INTERVAL", "soon")
	t.Setenv("LOG_LEVEL", "chatty")
	t.Setenv("MAX_UPLOAD_BYTES", "lots")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, 30*time.Second, cfg.RecomputeInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATA_DIR=./data\nDB_PATH=/tmp/pay.db\n"), 0o644))
	// godotenv never overrides a variable that is set, even to "".
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("DB_PATH")

	cfg := Load(path)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "/tmp/pay.db", cfg.DBPath)
}

func TestValidate(t *testing.T) {
	base := Config{Addr: ":8080", DBPath: "x.db", MaxUploadBytes: 1 << 20, CORSOrigins: []string{"*"}}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})
	t.Run("negative interval", func(t *testing.T) {
		c := base
		c.RecomputeInterval = -time.Second
		assert.Error(t, c.Validate())
	})
	t.Run("wildcard origin in production", func(t *testing.T) {
		c := base
		c.Environment = "production"
		assert.Error(t, c.Validate())
	})
	t.Run("tiny upload limit", func(t *testing.T) {
		c := base
		c.MaxUploadBytes = 10
		assert.Error(t, c.Validate())
	})
}
