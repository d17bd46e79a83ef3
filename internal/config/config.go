package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DBPath          string
	RedisAddr       string
	JWTIssuer       string
	JWTSigningKey   string
	SessionTTL      time.Duration
	FaceServiceURL  string
	FaceTimeout     time.Duration
	CORSOrigin      string
	RateLimitPerMin int
	RateLimitStore  string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "3000"),
		DBPath:          getEnv("DB_PATH", "./rollcall.db"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "rollcall"),
		JWTSigningKey:   getEnv("JWT_SECRET", "dev-signing-secret-change"),
		SessionTTL:      durationEnv("SESSION_TTL", 7*24*time.Hour),
		FaceServiceURL:  getEnv("FACE_SERVICE_URL", "http://localhost:8000"),
		FaceTimeout:     durationEnv("FACE_TIMEOUT", 30*time.Second),
		CORSOrigin:      getEnv("CORS_ORIGIN", "http://localhost:5173"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		RateLimitStore:  getEnv("RATE_LIMIT_STORE", "memory"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
