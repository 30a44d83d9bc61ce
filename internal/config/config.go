package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	JWTSecret           string
	JWTAccessTTLMinutes int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// optional bootstrap account created at startup
	SeedEmail    string
	SeedPassword string

	OTLPEndpoint string

	CORSOrigins []string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

func Load() Config {
	// best effort: a missing .env is fine, real env always wins
	_ = godotenv.Load()

	return Config{
		Env:                 getEnv("APP_ENV", "dev"),
		Port:                getEnvInt("PORT", 8080),
		DBURL:               buildDBURL(),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 30),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		SeedEmail:           getEnv("SEED_USER_EMAIL", ""),
		SeedPassword:        getEnv("SEED_USER_PASSWORD", ""),
		OTLPEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "")),
		AuthRateLimit:       getEnvInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:      time.Duration(getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskhub")
	pass := getEnv("DB_PASSWORD", "taskhub")
	name := getEnv("DB_NAME", "taskhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}
