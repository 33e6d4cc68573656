package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/imyuanhui/COMP47360/internal/adapter/interestcache"
	"github.com/imyuanhui/COMP47360/internal/adapter/model"
	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/lookup"
	"github.com/imyuanhui/COMP47360/internal/observability"
	"github.com/imyuanhui/COMP47360/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoPath(parts ...string) string {
	return filepath.Join(append([]string{"..", ".."}, parts...)...)
}

// newSampleService wires the shipped sample data and models with live
// trends disabled, so interest always comes from the fallback table.
func newSampleService(t *testing.T) (*pipeline.Service, lookup.FallbackTable) {
	t.Helper()

	zones, err := lookup.LoadZoneDefaults(repoPath("data", "zone_defaults.json"))
	require.NoError(t, err)
	global, err := lookup.LoadGlobalDefaults(repoPath("data", "global_defaults.json"))
	require.NoError(t, err)
	bias, err := lookup.LoadBiasTable(repoPath("data", "zone_bias.json"))
	require.NoError(t, err)
	fallback, err := lookup.LoadFallbackTable(repoPath("data", "default_interest.csv"))
	require.NoError(t, err)

	registry, err := model.LoadRegistry([]string{
		repoPath("models", "xgb.json"),
		repoPath("models", "linear.json"),
		repoPath("models", "rf.json"),
	}, "xgb")
	require.NoError(t, err)
	clusterer, err := model.LoadClusterer(repoPath("models", "level_cluster.json"))
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	store := lookup.NewStore(zones, global, bias)
	cache := interestcache.New(interestcache.Options{
		Path: filepath.Join(t.TempDir(), "interest_cache.json"),
	}, nil, fallback, metrics, discardLogger())

	svc := pipeline.New(pipeline.Deps{
		Models:    registry,
		Zones:     store,
		Bias:      store,
		Interest:  cache,
		Clusterer: clusterer,
	}, discardLogger(), metrics)
	return svc, fallback
}

func TestSampleData_EveryZoneAndModel(t *testing.T) {
	svc, fallback := newSampleService(t)
	store, err := lookup.LoadZoneDefaults(repoPath("data", "zone_defaults.json"))
	require.NoError(t, err)
	require.Len(t, store, 5)

	timestamps := []string{"2025-06-27 08:00:00", "2025-06-28 18:00:00", "2025-06-30 12:00:00"}

	for _, name := range []string{"xgb", "linear", "rf"} {
		t.Run(name, func(t *testing.T) {
			for zoneID := range store {
				for _, ts := range timestamps {
					res, err := svc.Predict(context.Background(), name, domain.PredictionRequest{
						Timestamp: ts,
						ZoneID:    zoneID,
					})
					require.NoError(t, err, "zone %d at %s", zoneID, ts)

					assert.Equal(t, name, res.Model)
					assert.Positive(t, res.BusynessScore)
					assert.NotEmpty(t, res.BusynessLevel)
					assert.Equal(t, []string{domain.DegradedInterestFallback}, res.Degraded)

					zoneName := store[zoneID][domain.FieldZoneName].Label()
					want, ok := fallback.Lookup(zoneName)
					require.True(t, ok, zoneName)
					require.NotNil(t, res.Interest)
					assert.Equal(t, want, res.Interest.Value)
				}
			}
		})
	}
}

func TestSampleData_KnownScores(t *testing.T) {
	svc, _ := newSampleService(t)

	cases := []struct {
		name      string
		model     string
		req       domain.PredictionRequest
		wantScore float64
		wantLevel domain.Level
	}{
		{
			// 3.0 + 0.6 (interest 90) + 1.2 (tourists) + 0.2 (dry) = 5.0,
			// expm1(5.0) + 6.25 bias.
			name:      "times square saturday evening",
			req:       domain.PredictionRequest{Timestamp: "2025-06-28 18:00:00", ZoneID: 230},
			wantScore: 153.66,
			wantLevel: domain.LevelHigh,
		},
		{
			name:      "central park monday noon",
			req:       domain.PredictionRequest{Timestamp: "2025-06-30 12:00:00", ZoneID: 43},
			wantScore: 143.91,
			wantLevel: domain.LevelHigh,
		},
		{
			// 3.0 - 0.4 + 0.1 (weekday, few tourists) - 0.5 (wet) = 2.2.
			name: "alphabet city heavy rain",
			req: domain.PredictionRequest{
				Timestamp: "2025-06-27 08:00:00",
				ZoneID:    4,
				Weather:   domain.WeatherObservation{Prcp: ptr(6.0), WeatherCode: ptr(502)},
			},
			wantScore: 8.03,
			wantLevel: domain.LevelLow,
		},
		{
			// mean(5.0, 5.4, 5.2) = 5.2, expm1(5.2) + 6.25 bias.
			name:      "random forest times square saturday evening",
			model:     "rf",
			req:       domain.PredictionRequest{Timestamp: "2025-06-28 18:00:00", ZoneID: 230},
			wantScore: 186.52,
			wantLevel: domain.LevelHigh,
		},
		{
			// mean(4.0, 3.1, 3.8) = 3.6333, no bias for zone 4.
			name:  "random forest alphabet city heavy rain",
			model: "rf",
			req: domain.PredictionRequest{
				Timestamp: "2025-06-27 08:00:00",
				ZoneID:    4,
				Weather:   domain.WeatherObservation{Prcp: ptr(6.0), WeatherCode: ptr(502)},
			},
			wantScore: 36.84,
			wantLevel: domain.LevelMedium,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.Predict(context.Background(), tc.model, tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.wantScore, res.BusynessScore)
			assert.Equal(t, tc.wantLevel, res.BusynessLevel)
		})
	}
}
