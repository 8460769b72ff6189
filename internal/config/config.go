// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 各コンポーネントにはコンストラクタ経由で必要な値のみを渡す。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth (Yandex)
	YandexClientID     string
	YandexClientSecret string
	YandexRedirectURL  string

	// Token
	TokenSecret     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Admin
	AdminEmails []string

	// File upload
	FileStorageDir   string
	FileMaxSize      int64
	AllowedFileTypes []string

	// Rate Limit
	RateLimitGeneral int
	RateLimitUpload  int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.YandexClientID = os.Getenv("YANDEX_CLIENT_ID")
	if cfg.YandexClientID == "" {
		missing = append(missing, "YANDEX_CLIENT_ID")
	}

	cfg.YandexClientSecret = os.Getenv("YANDEX_CLIENT_SECRET")
	if cfg.YandexClientSecret == "" {
		missing = append(missing, "YANDEX_CLIENT_SECRET")
	}

	cfg.YandexRedirectURL = os.Getenv("YANDEX_REDIRECT_URL")
	if cfg.YandexRedirectURL == "" {
		missing = append(missing, "YANDEX_REDIRECT_URL")
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.AdminEmails = getEnvStringList("ADMIN_EMAILS", nil)
	cfg.FileStorageDir = getEnvString("FILE_STORAGE_DIR", "files")
	cfg.FileMaxSize = getEnvInt64("FILE_MAX_SIZE", 52428800)
	cfg.AllowedFileTypes = getEnvStringList("ALLOWED_FILE_TYPES", []string{
		"audio/mpeg",
		"audio/wave",
		"application/ogg",
		"audio/flac",
	})
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// 管理者メールは作成時の照合が大文字小文字を区別しないため、
	// 読み込み時点で小文字に正規化しておく
	for i, email := range cfg.AdminEmails {
		cfg.AdminEmails[i] = strings.ToLower(email)
	}

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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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

// getEnvStringList はカンマ区切りの環境変数を文字列スライスとして読み込む。
// 空要素は除去する。
func getEnvStringList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
