package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// Transform is the target transform a model was trained with.
type Transform string

const (
	TransformLog   Transform = "log"
	TransformLog1p Transform = "log1p"
)

// ParseTransform validates a declared transform kind.
func ParseTransform(s string) (Transform, error) {
	switch t := Transform(s); t {
	case TransformLog, TransformLog1p:
		return t, nil
	default:
		return "", fmt.Errorf("unknown output transform %q (want log or log1p)", s)
	}
}

// Invert maps a raw model output back to flow magnitude.
func (t Transform) Invert(raw float64) float64 {
	if t == TransformLog1p {
		return math.Expm1(raw)
	}
	return math.Exp(raw)
}

// Level is the discrete busyness label.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// ParseLevel validates a level label.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelLow, LevelMedium, LevelHigh:
		return l, nil
	default:
		return "", fmt.Errorf("unknown busyness level %q", s)
	}
}

// Model is an opaque trained regressor over an aligned vector.
type Model interface {
	Predict(ctx context.Context, vector []float64) (float64, error)
}

// LevelClusterer assigns a level to the point
// {score, 0, sin(2*pi*hour/24), cos(2*pi*hour/24)}.
type LevelClusterer interface {
	Level(ctx context.Context, point [4]float64) (Level, error)
}

// BiasLookup returns the additive correction for a zone, 0 if none.
type BiasLookup interface {
	Bias(zoneID int) float64
}

// Degradation markers attached to a successful prediction.
const (
	DegradedInterestFallback = "interest_fallback"
	DegradedInterestDefault  = "interest_default"
	DegradedLevelUnavailable = "level_unavailable"
)

// Prediction is the presentable result of one request.
type Prediction struct {
	BusynessScore float64 `json:"busyness_score"`
	BusynessLevel Level   `json:"busyness_level,omitempty"`

	// Degraded lists best-effort substitutions made while answering.
	Degraded []string `json:"-"`
}

// Invoker runs a model over an aligned vector and post-processes the output.
type Invoker struct {
	name      string
	model     Model
	transform Transform
	bias      BiasLookup
	clusterer LevelClusterer
	logger    *slog.Logger
}

// NewInvoker builds an invoker. bias and clusterer may be nil.
func NewInvoker(name string, model Model, transform Transform, bias BiasLookup, clusterer LevelClusterer, logger *slog.Logger) *Invoker {
	return &Invoker{
		name:      name,
		model:     model,
		transform: transform,
		bias:      bias,
		clusterer: clusterer,
		logger:    logger,
	}
}

// Invoke predicts, inverts the transform, adds the zone bias, assigns a level
// and rounds the score to two decimals. Only a failed or non-finite model
// output is an error; a clustering failure drops the level.
func (iv *Invoker) Invoke(ctx context.Context, vector []float64, zoneID, hour int) (Prediction, error) {
	raw, err := iv.model.Predict(ctx, vector)
	if err != nil {
		return Prediction{}, &ModelError{Model: iv.name, Err: err}
	}

	score := iv.transform.Invert(raw)
	if iv.bias != nil {
		score += iv.bias.Bias(zoneID)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Prediction{}, &ModelError{Model: iv.name, Err: errors.New("non-finite prediction")}
	}

	p := Prediction{BusynessScore: RoundScore(score)}
	if iv.clusterer == nil {
		return p, nil
	}

	level, err := iv.clusterer.Level(ctx, LevelPoint(score, hour))
	if err != nil {
		iv.logger.Warn("level clustering failed", "model", iv.name, "zone_id", zoneID, "error", err)
		p.Degraded = append(p.Degraded, DegradedLevelUnavailable)
		return p, nil
	}
	p.BusynessLevel = level
	return p, nil
}

// LevelPoint encodes a score and a cyclic hour of day for clustering.
func LevelPoint(score float64, hour int) [4]float64 {
	angle := 2 * math.Pi * float64(hour) / 24
	return [4]float64{score, 0, math.Sin(angle), math.Cos(angle)}
}

// RoundScore rounds to two decimal places for presentation.
func RoundScore(x float64) float64 {
	return math.Round(x*100) / 100
}

// ModelArtifact pairs a trained model with the schema and transform it was
// trained with. The schema ships with the artifact and is never inferred.
type ModelArtifact struct {
	Name      string
	Version   string
	Transform Transform
	Schema    FeatureSchema
	Model     Model
}
