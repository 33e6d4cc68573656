package pipeline

import (
	"context"
	"log/slog"

	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ZoneDirectory is the static lookup store as seen by the pipeline.
type ZoneDirectory interface {
	domain.DefaultsSource
	ZoneName(zoneID int) (string, bool)
}

// FeatureTransformer turns a validated request into a model-ready vector:
// interest enrichment, three-tier defaulting, then schema alignment.
type FeatureTransformer struct {
	zones    ZoneDirectory
	interest domain.InterestProvider
	logger   *slog.Logger
}

// NewTransformer creates a FeatureTransformer. Pass a nil interest provider
// to disable interest lookups; the global default then applies.
func NewTransformer(zones ZoneDirectory, interest domain.InterestProvider, logger *slog.Logger) *FeatureTransformer {
	return &FeatureTransformer{
		zones:    zones,
		interest: interest,
		logger:   logger,
	}
}

// Materialized is the output of Transform.
type Materialized struct {
	Features domain.Features
	Vector   []float64
	Interest *domain.InterestReading
	Degraded []string
}

// Transform enriches req and aligns it to schema. The only error is a
// malformed request.
func (t *FeatureTransformer) Transform(ctx context.Context, req domain.PredictionRequest, schema domain.FeatureSchema) (Materialized, error) {
	var out Materialized

	reading := t.resolveInterest(ctx, req)
	if reading != nil {
		v := reading.Value
		req.Interest = &v
		out.Interest = reading
		switch reading.Origin {
		case domain.InterestFromFallback:
			out.Degraded = append(out.Degraded, domain.DegradedInterestFallback)
		case domain.InterestFromDefault:
			out.Degraded = append(out.Degraded, domain.DegradedInterestDefault)
		}
	}

	features, err := domain.BuildFeatures(req, t.zones)
	if err != nil {
		return Materialized{}, err
	}
	out.Features = features
	out.Vector = domain.Align(features.Record, schema)
	return out, nil
}

// resolveInterest picks the interest source: the request value wins, then a
// lookup by zone name. With no name to look up it returns nil and the
// defaults chain supplies the feature.
func (t *FeatureTransformer) resolveInterest(ctx context.Context, req domain.PredictionRequest) *domain.InterestReading {
	if req.Interest != nil {
		return &domain.InterestReading{Value: *req.Interest, Origin: domain.InterestFromRequest}
	}
	if t.interest == nil {
		return nil
	}

	name := req.ZoneName
	if name == "" && t.zones != nil {
		name, _ = t.zones.ZoneName(req.ZoneID)
	}
	if name == "" {
		t.logger.Debug("no zone name for interest lookup", "zone_id", req.ZoneID)
		return nil
	}

	ctx, span := observability.Tracer("pipeline").Start(ctx, "InterestLookup")
	defer span.End()

	r := t.interest.Interest(ctx, name)
	span.SetAttributes(
		attribute.String("zone.name", name),
		attribute.String("interest.origin", string(r.Origin)),
	)
	return &r
}
