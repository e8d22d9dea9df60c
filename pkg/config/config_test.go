package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CDIF_OUTDIR", "CDIF_FORMAT", "CDIF_CONCURRENCY",
		"CDIF_CACHE_SIZE", "CDIF_LOG_LEVEL", "CDIF_OMIT_UNUSED_RUNTIME",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg := Load()
	assert.Equal(t, Config{
		Outdir:      "dist",
		Format:      "esm",
		Concurrency: 8,
		CacheSize:   256,
		LogLevel:    "info",
	}, cfg)
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CDIF_OUTDIR", "build/out")
	t.Setenv("CDIF_CONCURRENCY", "3")
	t.Setenv("CDIF_CACHE_SIZE", "nope")
	t.Setenv("CDIF_OMIT_UNUSED_RUNTIME", "true")

	cfg := Load()
	assert.Equal(t, "build/out", cfg.Outdir)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.True(t, cfg.OmitUnused)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even empty.
	os.Unsetenv("CDIF_LOG_LEVEL")
	os.Unsetenv("CDIF_FORMAT")
	t.Cleanup(func() {
		os.Unsetenv("CDIF_LOG_LEVEL")
		os.Unsetenv("CDIF_FORMAT")
	})
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CDIF_LOG_LEVEL=debug\nCDIF_FORMAT=iife\n"), 0644))
	t.Chdir(dir)

	cfg := Load()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "iife", cfg.Format)
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoadMissingDotEnvIsQuiet(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	buf := captureLog(t)

	Load()
	assert.Empty(t, buf.String())
}

func TestLoadUnreadableDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0755))
	t.Chdir(dir)
	buf := captureLog(t)

	cfg := Load()
	assert.Equal(t, "dist", cfg.Outdir)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "could not read .env")
}
