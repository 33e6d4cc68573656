package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testTrendsURL = "http://trends.local/api/interest"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"models/xgb.json"}, cfg.ModelManifests)
	assert.Equal(t, "xgb", cfg.DefaultModel)
	assert.Empty(t, cfg.LevelClusterPath)
	assert.Equal(t, "data/zone_defaults.json", cfg.ZoneDefaultsPath)
	assert.Empty(t, cfg.ZoneDefaultsDSN)
	assert.Equal(t, "data/global_defaults.json", cfg.GlobalDefaultsPath)
	assert.Equal(t, "data/interest_cache.json", cfg.InterestCachePath)
	assert.Equal(t, 1024, cfg.InterestMemoSize)
	assert.Equal(t, "data/default_interest.csv", cfg.InterestFallbackPath)
	assert.False(t, cfg.TrendsEnabled)
	assert.Equal(t, "now 1-d", cfg.TrendsTimeframe)
	assert.Equal(t, "US-NY-501", cfg.TrendsGeo)
	assert.Equal(t, 5*time.Second, cfg.TrendsTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "busyness-predictions", cfg.KafkaPredictionsTopic)
	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, "localhost:4317", cfg.TracingEndpoint)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MODEL_MANIFESTS", "models/linear.json, models/rf.json,models/xgb.json")
	t.Setenv("DEFAULT_MODEL", "rf")
	t.Setenv("LEVEL_CLUSTER_PATH", "models/levels.json")
	t.Setenv("ZONE_DEFAULTS_DSN", "postgres://u:p@localhost/busyness?sslmode=disable")
	t.Setenv("ZONE_BIAS_PATH", "data/zone_bias.json")
	t.Setenv("TRENDS_URL", testTrendsURL)
	t.Setenv("TRENDS_TIMEOUT", "2s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_PREDICTIONS_TOPIC", "custom-predictions")
	t.Setenv("TRACING_ENABLED", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"models/linear.json", "models/rf.json", "models/xgb.json"}, cfg.ModelManifests)
	assert.Equal(t, "rf", cfg.DefaultModel)
	assert.Equal(t, "models/levels.json", cfg.LevelClusterPath)
	assert.NotEmpty(t, cfg.ZoneDefaultsDSN)
	assert.Equal(t, "data/zone_bias.json", cfg.ZoneBiasPath)
	assert.True(t, cfg.TrendsEnabled, "a trends URL implies enabled")
	assert.Equal(t, testTrendsURL, cfg.TrendsURL)
	assert.Equal(t, 2*time.Second, cfg.TrendsTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-predictions", cfg.KafkaPredictionsTopic)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidTrendsTimeout(t *testing.T) {
	for _, v := range []string{"bad", "0s", "-5s"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("TRENDS_TIMEOUT", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "TRENDS_TIMEOUT")
		})
	}
}

func TestLoad_InterestMemoSize(t *testing.T) {
	t.Setenv("INTEREST_MEMO_SIZE", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.InterestMemoSize)

	for _, v := range []string{"many", "-1"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("INTEREST_MEMO_SIZE", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "INTEREST_MEMO_SIZE")
		})
	}
}

func TestLoad_EmptyManifestList(t *testing.T) {
	t.Setenv("MODEL_MANIFESTS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODEL_MANIFESTS")
}

func TestLoad_TrendsEnabledWithoutURL(t *testing.T) {
	t.Setenv("TRENDS_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRENDS_URL")
}

func TestLoad_TrendsExplicitlyDisabled(t *testing.T) {
	t.Setenv("TRENDS_URL", testTrendsURL)
	t.Setenv("TRENDS_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.TrendsEnabled)
}

func TestLoad_InvalidBool(t *testing.T) {
	for _, key := range []string{"TRENDS_ENABLED", "KAFKA_ENABLED", "TRACING_ENABLED"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv("TRENDS_URL", testTrendsURL)
			t.Setenv(key, "yes")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_BoolForms(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "1")
	t.Setenv("TRACING_ENABLED", "TRUE")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.True(t, cfg.TracingEnabled)
}
