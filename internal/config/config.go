package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// セッションストアの種類
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	APIBaseURL string
	APITimeout time.Duration

	// Session storage
	SessionStore  string
	DatabaseURL   string
	RedisURL      string
	SessionMaxAge time.Duration

	// Auth context
	ContextCacheSize   int
	ContextCacheTTL    time.Duration
	ProfileEmailDomain string

	// Lifecycle
	SubmissionAdvancesInternship bool
	SubmissionAdvancesProject    bool

	// Rate Limit
	RateLimitGeneral int // req/min/browser
	RateLimitLogin   int // req/min/browser

	// Worker
	CleanupSchedule string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// LoadDotEnv はpathsの.envファイルを読み込む。pathsが空の場合はカレントディレクトリの.envを読む。
// 既に設定されている環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", StorePostgres))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	switch cfg.SessionStore {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q (postgres, redis or memory)", cfg.SessionStore)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.APIBaseURL = strings.TrimRight(getEnvString("API_BASE_URL", "http://localhost:5000"), "/")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 15*time.Second)
	cfg.SessionMaxAge = time.Duration(getEnvInt("SESSION_MAX_AGE", 30*86400)) * time.Second
	cfg.ContextCacheSize = getEnvInt("CONTEXT_CACHE_SIZE", 10000)
	cfg.ContextCacheTTL = getEnvDuration("CONTEXT_CACHE_TTL", 30*time.Minute)
	cfg.ProfileEmailDomain = getEnvString("PROFILE_EMAIL_DOMAIN", "")
	cfg.SubmissionAdvancesInternship = getEnvBool("SUBMISSION_ADVANCES_INTERNSHIP", false)
	cfg.SubmissionAdvancesProject = getEnvBool("SUBMISSION_ADVANCES_PROJECT", true)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.CleanupSchedule = getEnvString("CLEANUP_SCHEDULE", "@every 1h")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
