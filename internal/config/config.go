// Package config loads and validates environment variables at startup.
// Fail-fast: a missing required variable or a malformed value is an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all runtime configuration for the matching service.
type Config struct {
	Port            string
	GRPCPort        string
	StoreBackend    string
	DatabaseURL     string
	RedisURL        string // optional; events are logged when empty
	LogLevel        string
	BidCancelPolicy string // "keep" or "revert"
	ServiceAreas    string // YAML file; built-in areas when empty
	Migrate         bool

	Places struct {
		APIKey  string
		BaseURL string
	}
	LLM struct {
		APIKey       string
		BaseURL      string
		Model        string
		HazardScreen bool // flag known hazard phrases before calling the model
	}
}

// DefaultPollInterval is the status poll period when POLL_INTERVAL_SECONDS
// is unset.
const DefaultPollInterval = 5 * time.Second

// PollInterval reads POLL_INTERVAL_SECONDS for helpr-watch.
func PollInterval() (time.Duration, error) {
	s := os.Getenv("POLL_INTERVAL_SECONDS")
	if s == "" {
		return DefaultPollInterval, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("POLL_INTERVAL_SECONDS must be a positive integer, got %q", s)
	}
	return time.Duration(v) * time.Second, nil
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            envOr("PORT", "8083"),
		GRPCPort:        envOr("GRPC_PORT", "9093"),
		StoreBackend:    strings.ToLower(envOr("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		BidCancelPolicy: strings.ToLower(envOr("BID_CANCEL_POLICY", "keep")),
		ServiceAreas:    os.Getenv("SERVICE_AREAS_FILE"),
	}
	cfg.Places.APIKey = os.Getenv("PLACES_API_KEY")
	cfg.Places.BaseURL = os.Getenv("PLACES_BASE_URL")
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.BaseURL = os.Getenv("LLM_BASE_URL")
	cfg.LLM.Model = os.Getenv("LLM_MODEL")

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", cfg.StoreBackend)
	}

	switch cfg.BidCancelPolicy {
	case "keep", "revert":
	default:
		return nil, fmt.Errorf("BID_CANCEL_POLICY must be keep or revert, got %q", cfg.BidCancelPolicy)
	}

	if s := os.Getenv("ESTIMATE_HAZARD_SCREEN"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("ESTIMATE_HAZARD_SCREEN must be a boolean, got %q", s)
		}
		cfg.LLM.HazardScreen = v
	}

	if s := os.Getenv("MIGRATE"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("MIGRATE must be a boolean, got %q", s)
		}
		cfg.Migrate = v
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
