package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/text/language"
)

// Config holds runtime settings read from the environment (and .env).
type Config struct {
	Port              string
	MaxUploadBytes    int64
	MaxEntryBytes     int64
	Locale            language.Tag
	DecodeConcurrency int
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8888"),
		Locale:            language.Russian,
		DecodeConcurrency: 4,
	}

	uploadMB, err := getEnvInt("MAX_UPLOAD_MB", 25)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(uploadMB) * 1024 * 1024

	entryMB, err := getEnvInt("MAX_ENTRY_MB", 64)
	if err != nil {
		return nil, err
	}
	cfg.MaxEntryBytes = int64(entryMB) * 1024 * 1024

	if v := os.Getenv("GALLERY_LOCALE"); v != "" {
		tag, err := language.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GALLERY_LOCALE %q: %w", v, err)
		}
		cfg.Locale = tag
	}

	if cfg.DecodeConcurrency, err = getEnvInt("DECODE_CONCURRENCY", cfg.DecodeConcurrency); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"port", cfg.Port,
		"max_upload_bytes", cfg.MaxUploadBytes,
		"max_entry_bytes", cfg.MaxEntryBytes,
		"locale", cfg.Locale.String(),
		"decode_concurrency", cfg.DecodeConcurrency,
	)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}
