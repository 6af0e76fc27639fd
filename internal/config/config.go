// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver は永続化バックエンドの種類。
type StorageDriver string

const (
	// StoragePostgres はPostgreSQLを使用する（デフォルト）。
	StoragePostgres StorageDriver = "postgres"
	// StorageMongo はMongoDBを使用する。
	StorageMongo StorageDriver = "mongo"
	// StorageMemory はインメモリストアを使用する。ローカル開発とテスト用。
	StorageMemory StorageDriver = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageDriver StorageDriver
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Session
	SessionMaxAge int
	BcryptCost    int

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitCreate  int

	// Worker
	CleanupInterval time.Duration

	// Freet
	FreetMaxLength int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// DATABASE_URL / MONGO_URI はSTORAGE_DRIVERに応じて必須になる。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.StorageDriver = StorageDriver(strings.ToLower(getEnvString("STORAGE_DRIVER", string(StoragePostgres))))
	switch cfg.StorageDriver {
	case StoragePostgres, StorageMongo, StorageMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER: %q", cfg.StorageDriver)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StorageDriver == StoragePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.MongoURI = os.Getenv("MONGO_URI")
	if cfg.StorageDriver == StorageMongo && cfg.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MongoDatabase = getEnvString("MONGO_DATABASE", "nestfeed")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCreate = getEnvInt("RATE_LIMIT_CREATE", 30)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", time.Hour)
	cfg.FreetMaxLength = getEnvInt("FREET_MAX_LENGTH", 140)
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
