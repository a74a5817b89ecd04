package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverLocal    = "local"
)

// Microphone modes. Only one is active per deployment.
const (
	MicModeRecord = "record"
	MicModeLive   = "live"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort       string
	DatabaseURL    string
	StoreDriver    string
	LocalDBPath    string
	JWTSecret      string // empty disables bearer auth
	AllowedOrigins []string

	ChatBackendURL   string
	APIBaseURL       string
	GatewayRateLimit float64 // requests per second, 0 = unlimited
	MicMode          string

	LogLevel  string
	LogPretty bool
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Don't fail if .env is not present, might be in production
		log.Debug().Err(err).Msg("no .env file loaded, using environment variables only")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an env lookup function. Tests pass a map-backed lookup.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok {
			return value
		}
		return fallback
	}

	cfg := &Config{
		HTTPPort:       get("HTTP_PORT", "8080"),
		DatabaseURL:    get("DATABASE_URL", ""),
		LocalDBPath:    get("LOCAL_DB_PATH", "savvy.db"),
		JWTSecret:      get("JWT_SECRET", ""),
		ChatBackendURL: strings.TrimRight(get("CHAT_BACKEND_URL", "http://localhost:8000"), "/"),
		APIBaseURL:     strings.TrimRight(get("API_BASE_URL", "http://localhost:8080/api"), "/"),
		MicMode:        get("MIC_MODE", MicModeRecord),
		LogLevel:       get("LOG_LEVEL", "info"),
	}

	for _, origin := range strings.Split(get("ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	driver := get("STORE_DRIVER", "")
	if driver == "" {
		driver = StoreDriverLocal
		if cfg.DatabaseURL != "" {
			driver = StoreDriverPostgres
		}
	}
	switch driver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	case StoreDriverLocal:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (expected %q or %q)", driver, StoreDriverPostgres, StoreDriverLocal)
	}
	cfg.StoreDriver = driver

	switch cfg.MicMode {
	case MicModeRecord, MicModeLive:
	default:
		return nil, fmt.Errorf("invalid MIC_MODE %q (expected %q or %q)", cfg.MicMode, MicModeRecord, MicModeLive)
	}

	rateStr := get("GATEWAY_RATE_LIMIT", "0")
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil || rate < 0 {
		return nil, fmt.Errorf("invalid GATEWAY_RATE_LIMIT %q", rateStr)
	}
	cfg.GatewayRateLimit = rate

	prettyStr := get("LOG_PRETTY", "false")
	pretty, err := strconv.ParseBool(prettyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_PRETTY %q: %w", prettyStr, err)
	}
	cfg.LogPretty = pretty

	return cfg, nil
}
