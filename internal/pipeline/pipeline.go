package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ModelCatalog resolves a model name to a loaded artifact. An empty name
// selects the default model; an unknown one yields domain.ErrUnknownModel.
type ModelCatalog interface {
	Resolve(name string) (domain.ModelArtifact, error)
}

// EventPublisher emits a record of each successful prediction.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.PredictionEvent) error
}

// Deps are the process-wide collaborators. They are built once at startup
// and shared read-only by every request.
type Deps struct {
	Models    ModelCatalog
	Zones     ZoneDirectory
	Bias      domain.BiasLookup
	Interest  domain.InterestProvider
	Clusterer domain.LevelClusterer
	Publisher EventPublisher
}

// Result is a prediction plus the provenance the caller may want to report.
type Result struct {
	domain.Prediction
	Model        string
	ModelVersion string
	Interest     *domain.InterestReading
}

// Service runs one prediction end to end: validate, enrich, build, align,
// invoke. It holds no per-request state.
type Service struct {
	deps        Deps
	transformer *FeatureTransformer
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// New creates a Service and marks it ready.
func New(deps Deps, logger *slog.Logger, metrics *observability.Metrics) *Service {
	s := &Service{
		deps:        deps,
		transformer: NewTransformer(deps.Zones, deps.Interest, logger),
		logger:      logger,
		metrics:     metrics,
	}
	s.ready.Store(true)
	metrics.ServiceReady.Set(1)
	return s
}

// CheckReadiness returns nil while the service accepts predictions.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("prediction service is shutting down")
	}
	return nil
}

// Drain marks the service not ready so load balancers stop routing to it.
func (s *Service) Drain() {
	s.ready.Store(false)
	s.metrics.ServiceReady.Set(0)
}

// Predict runs model (empty for the default) over req.
func (s *Service) Predict(ctx context.Context, model string, req domain.PredictionRequest) (Result, error) {
	start := time.Now()
	ctx, span := observability.Tracer("pipeline").Start(ctx, "Service.Predict")
	defer span.End()
	span.SetAttributes(attribute.Int("zone.id", req.ZoneID))

	res, err := s.predict(ctx, model, req)

	// Unresolved names are not used as labels; they are caller-controlled.
	label := res.Model
	if label == "" {
		label = "unknown"
	}
	s.metrics.PredictionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	s.metrics.PredictionsTotal.WithLabelValues(label, outcome(res, err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("model.name", res.Model),
		attribute.Float64("busyness.score", res.BusynessScore),
	)
	if res.BusynessLevel != "" {
		s.metrics.Levels.WithLabelValues(string(res.BusynessLevel)).Inc()
	}

	s.publish(ctx, req, res)
	return res, nil
}

func (s *Service) predict(ctx context.Context, model string, req domain.PredictionRequest) (Result, error) {
	art, err := s.deps.Models.Resolve(model)
	if err != nil {
		return Result{}, err
	}
	res := Result{Model: art.Name, ModelVersion: art.Version}

	if err := req.Validate(); err != nil {
		return res, err
	}

	m, err := s.transformer.Transform(ctx, req, art.Schema)
	if err != nil {
		return res, err
	}
	res.Interest = m.Interest

	invoker := domain.NewInvoker(art.Name, art.Model, art.Transform, s.deps.Bias, s.deps.Clusterer, s.logger)
	p, err := invoker.Invoke(ctx, m.Vector, req.ZoneID, m.Features.At.Hour())
	if err != nil {
		s.logger.Error("model invocation failed", "model", art.Name, "zone_id", req.ZoneID, "error", err)
		return res, err
	}

	p.Degraded = append(m.Degraded, p.Degraded...)
	res.Prediction = p
	return res, nil
}

func (s *Service) publish(ctx context.Context, req domain.PredictionRequest, res Result) {
	if s.deps.Publisher == nil {
		return
	}
	var reading domain.InterestReading
	if res.Interest != nil {
		reading = *res.Interest
	}
	event := domain.NewPredictionEvent(res.Model, res.ModelVersion, req, reading, res.Prediction)
	if err := s.deps.Publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish prediction event failed", "event_id", event.ID, "error", err)
		s.metrics.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	s.metrics.EventsPublished.WithLabelValues("success").Inc()
}

func outcome(res Result, err error) string {
	var me *domain.ModelError
	switch {
	case errors.As(err, &me):
		return "model_error"
	case domain.IsValidation(err), errors.Is(err, domain.ErrUnknownModel):
		return "rejected"
	case err != nil:
		return "error"
	case len(res.Degraded) > 0:
		return "degraded"
	default:
		return "success"
	}
}
