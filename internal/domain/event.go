package domain

import (
	"time"

	"github.com/google/uuid"
)

// PredictionEvent records one successful prediction for downstream consumers.
type PredictionEvent struct {
	ID             string         `json:"id"`
	Model          string         `json:"model"`
	ModelVersion   string         `json:"model_version"`
	ZoneID         int            `json:"zone_id"`
	Timestamp      string         `json:"timestamp"`
	BusynessScore  float64        `json:"busyness_score"`
	BusynessLevel  Level          `json:"busyness_level,omitempty"`
	Interest       float64        `json:"interest"`
	InterestOrigin InterestOrigin `json:"interest_origin,omitempty"`
	Degraded       []string       `json:"degraded,omitempty"`
	PredictedAt    time.Time      `json:"predicted_at"`
}

// NewPredictionEvent stamps a prediction with a fresh id and the current time.
func NewPredictionEvent(model, version string, req PredictionRequest, interest InterestReading, p Prediction) PredictionEvent {
	return PredictionEvent{
		ID:             uuid.NewString(),
		Model:          model,
		ModelVersion:   version,
		ZoneID:         req.ZoneID,
		Timestamp:      req.Timestamp,
		BusynessScore:  p.BusynessScore,
		BusynessLevel:  p.BusynessLevel,
		Interest:       interest.Value,
		InterestOrigin: interest.Origin,
		Degraded:       p.Degraded,
		PredictedAt:    Now().UTC(),
	}
}
