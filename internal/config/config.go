package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend identifiers accepted in STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

const (
	baseURLEnvVar   = "AUTH_API_BASE_URL"
	timeoutEnvVar   = "AUTH_API_TIMEOUT_MS"
	logLevelEnvVar  = "LOG_LEVEL"
	backendEnvVar   = "STORAGE_BACKEND"
	namespaceEnvVar = "STORAGE_NAMESPACE"
	dataFolderVar   = "DATA_FOLDER"
	redisURLEnvVar  = "REDIS_URL"

	defaultBaseURL   = "http://localhost:8000/api/v1"
	defaultTimeout   = 10 * time.Second
	defaultLogLevel  = "info"
	defaultBackend   = BackendMemory
	defaultNamespace = "auth"
	defaultFolder    = "./data"
)

// Config captures client runtime configuration loaded from environment variables.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	LogLevel         string
	StorageBackend   string
	StorageNamespace string
	DataFolder       string
	RedisURL         string
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		BaseURL:          GetEnv(baseURLEnvVar, defaultBaseURL),
		Timeout:          defaultTimeout,
		LogLevel:         strings.ToLower(GetEnv(logLevelEnvVar, defaultLogLevel)),
		StorageBackend:   strings.ToLower(GetEnv(backendEnvVar, defaultBackend)),
		StorageNamespace: GetEnv(namespaceEnvVar, defaultNamespace),
		DataFolder:       GetEnv(dataFolderVar, defaultFolder),
		RedisURL:         os.Getenv(redisURLEnvVar),
	}

	if v := os.Getenv(timeoutEnvVar); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", timeoutEnvVar, v)
		}
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("%s must be set when %s=%s", redisURLEnvVar, backendEnvVar, BackendRedis)
		}
	default:
		return Config{}, fmt.Errorf("invalid %s: %q", backendEnvVar, cfg.StorageBackend)
	}

	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("%s must not be empty", baseURLEnvVar)
	}

	return cfg, nil
}

// GetEnv returns the value of envVar, or defaultValue when unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
