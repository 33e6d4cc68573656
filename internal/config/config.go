package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ServiceVersion  string

	// Model artifacts.
	ModelManifests   []string
	DefaultModel     string
	LevelClusterPath string

	// Static lookup tables.
	ZoneDefaultsPath   string
	ZoneDefaultsDSN    string
	GlobalDefaultsPath string
	ZoneBiasPath       string

	// Interest signal.
	InterestCachePath    string
	InterestMemoSize     int
	InterestFallbackPath string
	TrendsEnabled        bool
	TrendsURL            string
	TrendsTimeframe      string
	TrendsGeo            string
	TrendsTimeout        time.Duration

	// Prediction event publishing.
	KafkaEnabled          bool
	KafkaBrokers          []string
	KafkaPredictionsTopic string

	TracingEnabled  bool
	TracingEndpoint string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present; real
// environment variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	trendsTimeout, err := parsePositiveDuration("TRENDS_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	memoSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("INTEREST_MEMO_SIZE", "1024"))
	if err != nil || memoSize < 0 {
		return nil, errors.New("invalid INTEREST_MEMO_SIZE")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		ServiceVersion:  sharedcfg.EnvOrDefault("SERVICE_VERSION", "dev"),

		ModelManifests:   parseList(sharedcfg.EnvOrDefault("MODEL_MANIFESTS", "models/xgb.json")),
		DefaultModel:     sharedcfg.EnvOrDefault("DEFAULT_MODEL", "xgb"),
		LevelClusterPath: os.Getenv("LEVEL_CLUSTER_PATH"),

		ZoneDefaultsPath:   sharedcfg.EnvOrDefault("ZONE_DEFAULTS_PATH", "data/zone_defaults.json"),
		ZoneDefaultsDSN:    os.Getenv("ZONE_DEFAULTS_DSN"),
		GlobalDefaultsPath: sharedcfg.EnvOrDefault("GLOBAL_DEFAULTS_PATH", "data/global_defaults.json"),
		ZoneBiasPath:       os.Getenv("ZONE_BIAS_PATH"),

		InterestCachePath:    sharedcfg.EnvOrDefault("INTEREST_CACHE_PATH", "data/interest_cache.json"),
		InterestMemoSize:     memoSize,
		InterestFallbackPath: sharedcfg.EnvOrDefault("INTEREST_FALLBACK_PATH", "data/default_interest.csv"),
		TrendsURL:            os.Getenv("TRENDS_URL"),
		TrendsTimeframe:      sharedcfg.EnvOrDefault("TRENDS_TIMEFRAME", "now 1-d"),
		TrendsGeo:            sharedcfg.EnvOrDefault("TRENDS_GEO", "US-NY-501"),
		TrendsTimeout:        trendsTimeout,

		KafkaBrokers:          sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaPredictionsTopic: sharedcfg.EnvOrDefault("KAFKA_PREDICTIONS_TOPIC", "busyness-predictions"),

		TracingEndpoint: sharedcfg.EnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}

	// Live trends default to on whenever a source URL is configured.
	if cfg.TrendsEnabled, err = parseBool("TRENDS_ENABLED", cfg.TrendsURL != ""); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.TracingEnabled, err = parseBool("TRACING_ENABLED", false); err != nil {
		return nil, err
	}

	if len(cfg.ModelManifests) == 0 {
		return nil, errors.New("MODEL_MANIFESTS is required")
	}
	if cfg.DefaultModel == "" {
		return nil, errors.New("DEFAULT_MODEL is required")
	}
	if cfg.TrendsEnabled && cfg.TrendsURL == "" {
		return nil, errors.New("TRENDS_ENABLED is true but TRENDS_URL is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaPredictionsTopic == "" {
		return nil, errors.New("KAFKA_PREDICTIONS_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
