package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Outdir      string
	Format      string
	Concurrency int
	CacheSize   int
	LogLevel    string
	OmitUnused  bool
}

// Load reads .env (if present) and the CDIF_* environment variables. An
// unreadable .env is logged and otherwise ignored.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config: could not read .env", "error", err)
	}

	return Config{
		Outdir:      envStr("CDIF_OUTDIR", "dist"),
		Format:      envStr("CDIF_FORMAT", "esm"),
		Concurrency: envInt("CDIF_CONCURRENCY", 8),
		CacheSize:   envInt("CDIF_CACHE_SIZE", 256),
		LogLevel:    envStr("CDIF_LOG_LEVEL", "info"),
		OmitUnused:  envBool("CDIF_OMIT_UNUSED_RUNTIME", false),
	}
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
