package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                string
	ServerAddr         string
	UpstreamBaseURL    string
	UpstreamTimeoutSec int
	HubURL             string
	FrontendOrigin     string
	PublicBaseURL      string
	PaymentReturnURL   string
	PaymentCancelURL   string
	PaymentResultURL   string
	RateLimitAuth      int
	RateLimitMutations int
	RateLimitWindowSec int
	RedisURL           string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheTTLSeconds    int
	Timezone           *time.Location
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

func Load() (*Config, error) {
	loadDotEnv(".env")
	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Ho_Chi_Minh"))
	if err != nil {
		return nil, err
	}

	upstream := strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:5000/api"), "/")
	if upstream == "" {
		return nil, errors.New("UPSTREAM_BASE_URL must not be empty")
	}

	frontend := getEnv("FRONTEND_ORIGIN", "http://localhost:3000")
	// The payment provider redirects browsers here, so this must be the
	// gateway's externally reachable address, not the frontend's.
	publicBase := strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		UpstreamBaseURL:    upstream,
		UpstreamTimeoutSec: getEnvInt("UPSTREAM_TIMEOUT_SEC", 10),
		HubURL:             getEnv("HUB_URL", "ws://localhost:5000/hubs/messages"),
		FrontendOrigin:     frontend,
		PublicBaseURL:      publicBase,
		PaymentReturnURL:   getEnv("PAYMENT_RETURN_URL", publicBase+"/api/v1/payments/return"),
		PaymentCancelURL:   getEnv("PAYMENT_CANCEL_URL", publicBase+"/api/v1/payments/cancel"),
		PaymentResultURL:   getEnv("PAYMENT_RESULT_URL", frontend+"/payments/result"),
		RateLimitAuth:      getEnvInt("RATE_LIMIT_AUTH", 10),
		RateLimitMutations: getEnvInt("RATE_LIMIT_MUTATIONS", 30),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 60),
		Timezone:           loc,
	}

	return cfg, nil
}

func loadDotEnv(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
}
