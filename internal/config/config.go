package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBDatabase string

	PendingTTL time.Duration
	PaidTTL    time.Duration
}

func Load() *Config {
	return &Config{
		HTTPPort:   getEnv("HTTP_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBDatabase: getEnv("DB_DATABASE", "orderku"),
		PendingTTL: getEnvSeconds("PENDING_TTL_SECONDS", 600),
		PaidTTL:    getEnvSeconds("PAID_TTL_SECONDS", 3600),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int64) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.ParseInt(value, 10, 64); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return time.Duration(defaultValue) * time.Second
}
