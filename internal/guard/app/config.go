package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Issuer         string   // Required: issuer claim for tokens
	Audience       []string // Optional: audience claim validated on tokens
	BootstrapToken string   // Optional: token required to perform bootstrap

	Algorithm  string        // Optional: JWT signing algorithm (ES256, EdDSA) (default: EdDSA)
	NumKeys    int           // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 168h)

	CookieMode bool   // Optional: issue credentials as HttpOnly cookies instead of JSON (default: false)
	CookieName string // Optional: access cookie name in cookie mode

	DatabaseFile string // Optional: path to SQLite database file (default: ./gatewarden.db)
	PepperFile   string // Optional: path to file containing pepper for secret hashing (default: ./pepper)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("GUARD_ISSUER", "gatewarden"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),
		Algorithm:      getEnvOrDefault("GUARD_ALGORITHM", "EdDSA"),
		NumKeys:        getEnvIntOrDefault("GUARD_NUM_KEYS", 0),
		AccessTTL:      getEnvDurationOrDefault("GUARD_ACCESS_TTL", 0),
		RefreshTTL:     getEnvDurationOrDefault("GUARD_REFRESH_TTL", 0),
		CookieMode:     os.Getenv("GUARD_COOKIE_MODE") == "true",
		CookieName:     os.Getenv("GUARD_COOKIE_NAME"),
		DatabaseFile:   getEnvOrDefault("GUARD_DATABASE_FILE", "gatewarden.db"),
		PepperFile:     getEnvOrDefault("GUARD_PEPPER_FILE", "pepper"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if aud := os.Getenv("GUARD_AUDIENCE"); aud != "" {
		cfg.Audience = splitCommaList(aud)
	}

	return cfg
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
