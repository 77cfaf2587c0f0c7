// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

// minSessionSecretLen はセッションCookie署名鍵の最小バイト数。
const minSessionSecretLen = 32

// argon2コストパラメータの上限。
const (
	maxArgon2MemoryKiB  = 1 << 21
	maxArgon2Iterations = 64
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// App
	AppName   string
	PublicDir string
	LogLevel  string

	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Session
	SessionSecret        string
	SessionEncryptionKey string
	SessionCookieName    string
	SessionMaxAge        int

	// Password hashing
	Argon2MemoryKiB   int
	Argon2Iterations  int
	Argon2Parallelism int
	HashMaxConcurrent int

	// Rate Limit
	SignInRateLimit int // 1分あたりのサインイン試行回数（IPごと）

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// LoadDotEnv は.envファイルが存在する場合に環境変数へ読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルがない場合は何もしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return oops.Code("CONFIG_INVALID").With("path", p).Wrapf(err, "failed to load env file")
		}
	}
	return nil
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

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.SessionSecret) < minSessionSecretLen {
		return nil, oops.Code("CONFIG_INVALID").Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}

	cfg.SessionEncryptionKey = os.Getenv("SESSION_ENCRYPTION_KEY")
	switch len(cfg.SessionEncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return nil, oops.Code("CONFIG_INVALID").Errorf("SESSION_ENCRYPTION_KEY must be 16, 24 or 32 bytes")
	}

	// Optional fields with defaults
	cfg.AppName = getEnvString("APP_NAME", "Keyhole")
	cfg.PublicDir = getEnvString("PUBLIC_DIR", "./dist")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.SessionCookieName = getEnvString("SESSION_COOKIE_NAME", "keyhole_session")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.Argon2MemoryKiB = getEnvInt("ARGON2_MEMORY_KIB", 19456)
	cfg.Argon2Iterations = getEnvInt("ARGON2_ITERATIONS", 2)
	cfg.Argon2Parallelism = getEnvInt("ARGON2_PARALLELISM", 1)
	cfg.HashMaxConcurrent = getEnvInt("HASH_MAX_CONCURRENT", 4)
	cfg.SignInRateLimit = getEnvInt("SIGNIN_RATE_LIMIT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	if cfg.Argon2Parallelism < 1 || cfg.Argon2Parallelism > 255 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("ARGON2_PARALLELISM must be between 1 and 255")
	}
	// 上限はauthパッケージが保存済みハッシュに許すコストと同じ
	if cfg.Argon2MemoryKiB < 8*cfg.Argon2Parallelism || cfg.Argon2MemoryKiB > maxArgon2MemoryKiB ||
		cfg.Argon2Iterations < 1 || cfg.Argon2Iterations > maxArgon2Iterations {
		return nil, oops.Code("CONFIG_INVALID").Errorf("argon2 parameters are out of range")
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
