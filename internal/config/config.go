package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendCookie = "cookie"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Session  SessionConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	CSRFKey        string
}

// BackendConfig points at the LMS REST API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Key     string
	Backend string
	MaxAge  int // seconds
	Secure  bool
}

type RedisConfig struct {
	URL string
}

// DatabaseConfig is optional: an empty URL disables the activity log.
type DatabaseConfig struct {
	URL string
}

type CacheConfig struct {
	TTL time.Duration
}

func Load() (*Config, error) {
	// .env is a development convenience, real env vars win.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using environment variables")
	}

	timeout, err := positiveInt("API_TIMEOUT_SECONDS", "15")
	if err != nil {
		return nil, err
	}

	maxAgeDays, err := positiveInt("SESSION_MAX_AGE_DAYS", "7")
	if err != nil {
		return nil, err
	}

	ttlMinutes, err := positiveInt("CACHE_TTL_MINUTES", "30")
	if err != nil {
		return nil, err
	}

	sessionKey := getEnv("SESSION_KEY", "")
	if sessionKey == "" {
		sessionKey = "lms-portal-dev-session-key-change-me"
		log.Println("Warning: SESSION_KEY is not set, using the development key")
	}

	backend := strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendCookie))
	if backend != SessionBackendCookie && backend != SessionBackendRedis {
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q: want cookie or redis", backend)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
			CSRFKey:        getEnv("CSRF_KEY", ""),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://127.0.0.1:8000/api"), "/"),
			Timeout: time.Duration(timeout) * time.Second,
		},
		Session: SessionConfig{
			Key:     sessionKey,
			Backend: backend,
			MaxAge:  86400 * maxAgeDays,
			Secure:  getEnv("SESSION_SECURE", "false") == "true",
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Cache: CacheConfig{
			TTL: time.Duration(ttlMinutes) * time.Minute,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// positiveInt reads a whole number that must be greater than zero.
func positiveInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, n)
	}
	return n, nil
}
