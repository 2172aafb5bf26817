// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string
	DBPath            string
	DataDir           string // seed directory; empty disables seeding
	RecomputeInterval time.Duration
	RecomputeOnStart  bool
	CORSOrigins       []string
	LogLevel          slog.Level
	MaxUploadBytes    int64
	Environment       string
}

// Load reads .env files (when present) and then the process environment.
// Variables already set in the environment win over the files.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)

	return Config{
		Addr:              getEnv("APP_ADDR", ":8080"),
		DBPath:            getEnv("DB_PATH", "./casualpay.db"),
		DataDir:           getEnv("DATA_DIR", ""),
		RecomputeInterval: getEnvDuration("RECOMPUTE_INTERVAL", 30*time.Second),
		RecomputeOnStart:  getEnvBool("RECOMPUTE_ON_START", true),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"*"}),
		LogLevel:          getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		Environment:       getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback
	}
	return level
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("APP_ADDR is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.RecomputeInterval < 0 {
		return fmt.Errorf("RECOMPUTE_INTERVAL must not be negative")
	}
	if c.MaxUploadBytes < 1024 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1024")
	}
	if c.Environment == "production" {
		for _, o := range c.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must list explicit origins in production")
			}
		}
	}
	return nil
}
