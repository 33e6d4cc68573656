package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/imyuanhui/COMP47360/internal/domain"
)

type linearFile struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// LinearModel is intercept + w·x with weights laid out in schema order.
type LinearModel struct {
	intercept float64
	weights   []float64
}

// LoadLinear reads coefficients keyed by column name. Every key must be a
// schema column; schema columns without a coefficient weigh 0.
func LoadLinear(path string, schema domain.FeatureSchema) (*LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read linear artifact: %w", err)
	}
	var f linearFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode linear artifact %s: %w", path, err)
	}
	return NewLinearModel(f.Intercept, f.Coefficients, schema)
}

// NewLinearModel lays coefficients out in schema order.
func NewLinearModel(intercept float64, coefficients map[string]float64, schema domain.FeatureSchema) (*LinearModel, error) {
	weights := make([]float64, schema.Len())
	for col, w := range coefficients {
		i := schema.Index(col)
		if i < 0 {
			return nil, fmt.Errorf("coefficient for unknown column %q", col)
		}
		weights[i] = w
	}
	return &LinearModel{intercept: intercept, weights: weights}, nil
}

// Predict implements domain.Model.
func (m *LinearModel) Predict(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(m.weights) {
		return 0, fmt.Errorf("vector length %d, model expects %d", len(x), len(m.weights))
	}
	y := m.intercept
	for i, w := range m.weights {
		y += w * x[i]
	}
	return y, nil
}
