package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr         string
	ConverterURL string
	CORSOrigin   string
	// Session lifecycle
	SessionTTL  time.Duration
	MaxSessions int
	// Session snapshot backends - in-memory is used when both are blank
	RedisURL    string
	DatabaseURL string
	// Export archive store - disabled when endpoint is blank
	ArchiveEndpoint  string
	ArchiveBucket    string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:         getenv("WORKBENCH_ADDR", ":8790"),
		ConverterURL: getenv("CONVERTER_URL", "http://localhost:8000"),
		CORSOrigin:   getenv("WORKBENCH_CORS_ORIGIN", "*"),
		SessionTTL:   time.Duration(getenvInt("WORKBENCH_SESSION_TTL_HOURS", 24)) * time.Hour,
		MaxSessions:  getenvInt("WORKBENCH_MAX_SESSIONS", 5),
		// Snapshot backends - empty by default, sessions stay in memory
		RedisURL:    getenv("REDIS_URL", ""),
		DatabaseURL: getenv("DATABASE_URL", ""),
		// Archive uploads - empty by default, export archives only stream to the caller
		ArchiveEndpoint:  getenv("ARCHIVE_S3_ENDPOINT", ""),
		ArchiveBucket:    getenv("ARCHIVE_S3_BUCKET", "imdf-exports"),
		ArchiveAccessKey: getenv("ARCHIVE_S3_ACCESS_KEY", ""),
		ArchiveSecretKey: getenv("ARCHIVE_S3_SECRET_KEY", ""),
		ArchiveUseSSL:    getenvInt("ARCHIVE_S3_USE_SSL", 0) == 1,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
