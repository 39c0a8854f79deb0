// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Registry RegistryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// RegistryConfig holds thread registry configuration.
type RegistryConfig struct {
	// MaxThreads bounds how many threads the in-memory registry keeps.
	// Zero disables the bound; registry memory then grows for the
	// process lifetime.
	MaxThreads int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			MaxUploadBytes:  getInt64Env("MAX_UPLOAD_BYTES", 5*1024*1024),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		},
		Registry: RegistryConfig{
			MaxThreads: getIntEnv("REGISTRY_MAX_THREADS", 0),
		},
	}
}

// Addr returns the host:port the server listens on.
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
