// Package app assembles the prediction service from configuration. Both the
// long-running server and the one-shot CLI start from Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/imyuanhui/COMP47360/internal/adapter/interestcache"
	kafkaadapter "github.com/imyuanhui/COMP47360/internal/adapter/kafka"
	"github.com/imyuanhui/COMP47360/internal/adapter/model"
	"github.com/imyuanhui/COMP47360/internal/adapter/postgres"
	"github.com/imyuanhui/COMP47360/internal/adapter/trends"
	"github.com/imyuanhui/COMP47360/internal/config"
	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/lookup"
	"github.com/imyuanhui/COMP47360/internal/observability"
	"github.com/imyuanhui/COMP47360/internal/pipeline"
)

// App is a fully wired prediction service plus the resources it owns.
type App struct {
	Service  *pipeline.Service
	Models   *model.Registry
	Store    *lookup.Store
	Interest *interestcache.Cache

	closers []func() error
}

// Build loads every artifact and table named by cfg and wires the service.
// Load failures are fatal; optional inputs that are unset are skipped.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	registry, err := model.LoadRegistry(cfg.ModelManifests, cfg.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	for _, info := range registry.List() {
		logger.Info("model loaded", "name", info.Name, "version", info.Version, "kind", info.Kind, "features", info.Features, "default", info.Default)
	}

	store, err := loadStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Models: registry,
		Zones:  store,
		Bias:   store,
	}

	if cfg.LevelClusterPath != "" {
		clusterer, err := model.LoadClusterer(cfg.LevelClusterPath)
		if err != nil {
			return nil, err
		}
		deps.Clusterer = clusterer
	} else {
		logger.Info("level clustering disabled")
	}

	a := &App{Models: registry, Store: store}

	a.Interest, err = newInterestCache(cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	deps.Interest = a.Interest

	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		deps.Publisher = w
		a.closers = append(a.closers, func() error {
			stats := w.Stats()
			logger.Info("kafka writer stats", "messages", stats.Messages, "errors", stats.Errors)
			return w.Close()
		})
		logger.Info("prediction events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaPredictionsTopic)
	}

	a.Service = pipeline.New(deps, logger, metrics)
	return a, nil
}

// Close releases owned resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func loadStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*lookup.Store, error) {
	var (
		zones map[int]domain.Attributes
		err   error
	)
	if cfg.ZoneDefaultsDSN != "" {
		zones, err = loadZonesFromDB(ctx, cfg.ZoneDefaultsDSN)
	} else {
		zones, err = lookup.LoadZoneDefaults(cfg.ZoneDefaultsPath)
	}
	if err != nil {
		return nil, err
	}

	global, err := lookup.LoadGlobalDefaults(cfg.GlobalDefaultsPath)
	if err != nil {
		return nil, err
	}

	var bias lookup.BiasTable
	if cfg.ZoneBiasPath != "" {
		bias, err = lookup.LoadBiasTable(cfg.ZoneBiasPath)
		if err != nil {
			return nil, err
		}
	}

	store := lookup.NewStore(zones, global, bias)
	logger.Info("lookup tables loaded", "zones", store.ZoneCount(), "global_fields", len(global), "bias_zones", len(bias))
	return store, nil
}

func loadZonesFromDB(ctx context.Context, dsn string) (map[int]domain.Attributes, error) {
	repo, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return repo.LoadAll(ctx)
}

func newInterestCache(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*interestcache.Cache, error) {
	var fallback interestcache.Fallback
	if cfg.InterestFallbackPath != "" {
		table, err := lookup.LoadFallbackTable(cfg.InterestFallbackPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("interest fallback table missing", "path", cfg.InterestFallbackPath)
		case err != nil:
			return nil, err
		default:
			fallback = table
		}
	}

	var fetcher interestcache.Fetcher
	if cfg.TrendsEnabled {
		fetcher = trends.NewClient(cfg.TrendsURL, cfg.TrendsTimeframe, cfg.TrendsGeo, cfg.TrendsTimeout, metrics, logger)
		metrics.TrendsEnabled.Set(1)
		logger.Info("live interest enabled", "url", cfg.TrendsURL, "timeframe", cfg.TrendsTimeframe, "geo", cfg.TrendsGeo, "timeout", cfg.TrendsTimeout)
	} else {
		metrics.TrendsEnabled.Set(0)
		logger.Info("live interest disabled, using cache and fallback table")
	}

	return interestcache.New(interestcache.Options{
		Path:     cfg.InterestCachePath,
		Timeout:  cfg.TrendsTimeout,
		MemoSize: cfg.InterestMemoSize,
	}, fetcher, fallback, metrics, logger), nil
}
