package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ストアの種類
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreDriver    string
	DatabaseURL    string
	SQLitePath     string
	SQLitePoolSize int

	// Bot
	BotToken           string
	AllowedRegistrants []string

	// Rate Limit
	RateLimitIngest int

	// Stats
	StatsSchedule  string
	MetricsEnabled bool

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.StoreDriver = strings.ToLower(getEnvString("STORE_DRIVER", StoreDriverSQLite))
	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (want %q or %q)", cfg.StoreDriver, StoreDriverPostgres, StoreDriverSQLite)
	}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreDriver == StoreDriverPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SQLitePath = getEnvString("SQLITE_PATH", "salon.db")
	cfg.SQLitePoolSize = getEnvInt("SQLITE_POOL_SIZE", 0)
	cfg.AllowedRegistrants = getEnvList("ALLOWED_REGISTRANTS")
	cfg.RateLimitIngest = getEnvInt("RATE_LIMIT_INGEST", 30)
	cfg.StatsSchedule = getEnvString("STATS_SCHEDULE", "*/5 * * * *")
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

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

// getEnvList はカンマ区切りの値を空白除去して返す。空要素は捨てる。
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
