package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	ServiceToken   string
	AllowedOrigins string

	LogMode string
	LogFile string

	RedisAddr     string
	BadgeCacheTTL time.Duration

	MorningCutoffHour int
	EveningCutoffHour int
	StatsRefreshAt    string // "HH:MM", UTC

	CatalogSource       string // builtin, r2
	CloudflareAccountID string
	R2AccessKeyID       string
	R2AccessKeySecret   string
	R2BucketName        string
	CatalogKey          string
}

// Load reads a .env file when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:           getEnv("PORT", "5200"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServiceToken:   os.Getenv("SERVICE_TOKEN"),
		AllowedOrigins: normalizeOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		LogMode: getEnv("LOG_MODE", "dev"),
		LogFile: os.Getenv("LOG_FILE"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		BadgeCacheTTL: time.Duration(getEnvInt("BADGE_CACHE_TTL_SECONDS", 300)) * time.Second,

		MorningCutoffHour: getEnvInt("MORNING_CUTOFF_HOUR", 10),
		EveningCutoffHour: getEnvInt("EVENING_CUTOFF_HOUR", 18),
		StatsRefreshAt:    getEnv("STATS_REFRESH_AT", "00:05"),

		CatalogSource:       strings.ToLower(getEnv("BADGE_CATALOG_SOURCE", "builtin")),
		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:       os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:   os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2BucketName:        os.Getenv("R2_BUCKET_NAME"),
		CatalogKey:          getEnv("BADGE_CATALOG_KEY", "catalog/badges.json"),
	}
}

// RefreshTime parses StatsRefreshAt, falling back to 00:05.
func (c Config) RefreshTime() (hour, minute int) {
	t, err := time.Parse("15:04", c.StatsRefreshAt)
	if err != nil {
		return 0, 5
	}
	return t.Hour(), t.Minute()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// normalizeOrigins trims spaces around each comma-separated origin.
func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	for i, origin := range parts {
		parts[i] = strings.TrimSpace(origin)
	}
	return strings.Join(parts, ",")
}
