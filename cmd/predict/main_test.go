package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSampleEnv(t *testing.T) {
	t.Helper()
	root := filepath.Join("..", "..")
	t.Setenv("MODEL_MANIFESTS", filepath.Join(root, "models", "xgb.json")+","+filepath.Join(root, "models", "linear.json"))
	t.Setenv("DEFAULT_MODEL", "xgb")
	t.Setenv("LEVEL_CLUSTER_PATH", filepath.Join(root, "models", "level_cluster.json"))
	t.Setenv("ZONE_DEFAULTS_PATH", filepath.Join(root, "data", "zone_defaults.json"))
	t.Setenv("GLOBAL_DEFAULTS_PATH", filepath.Join(root, "data", "global_defaults.json"))
	t.Setenv("ZONE_BIAS_PATH", filepath.Join(root, "data", "zone_bias.json"))
	t.Setenv("INTEREST_CACHE_PATH", filepath.Join(t.TempDir(), "interest_cache.json"))
	t.Setenv("INTEREST_FALLBACK_PATH", filepath.Join(root, "data", "default_interest.csv"))
	t.Setenv("TRENDS_URL", "")
	t.Setenv("TRENDS_ENABLED", "")
	t.Setenv("KAFKA_ENABLED", "")
}

func TestRun_Flags(t *testing.T) {
	setSampleEnv(t)

	var out bytes.Buffer
	err := run([]string{"-zone", "230", "-timestamp", "2025-06-28 18:00:00"}, strings.NewReader(""), &out)
	require.NoError(t, err)

	var got output
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 153.66, got.BusynessScore)
	assert.Equal(t, "High", string(got.BusynessLevel))
	assert.Equal(t, "xgb", got.Model)
	assert.Equal(t, "fallback", got.InterestOrigin)
	require.NotNil(t, got.Interest)
	assert.Equal(t, 90.0, *got.Interest)
}

func TestRun_RequestFromStdinWithOverrides(t *testing.T) {
	setSampleEnv(t)

	stdin := strings.NewReader(`{"zone_id": 4, "timestamp": "2025-06-27 08:00:00", "weather": {"prcp": 6}}`)
	var out bytes.Buffer
	err := run([]string{"-request", "-", "-weather-code", "502", "-interest", "19", "-model", "xgb"}, stdin, &out)
	require.NoError(t, err)

	var got output
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 8.03, got.BusynessScore)
	assert.Equal(t, "request", got.InterestOrigin)
	assert.Empty(t, got.Degraded)
}

func TestRun_Errors(t *testing.T) {
	setSampleEnv(t)

	cases := map[string][]string{
		"bad flag value":  {"-temp", "warm"},
		"invalid request": {"-zone", "230", "-timestamp", "yesterday"},
		"unknown model":   {"-model", "rf", "-zone", "230", "-timestamp", "2025-06-28 18:00:00"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(args, strings.NewReader(""), &out))
			assert.Zero(t, out.Len())
		})
	}
}
