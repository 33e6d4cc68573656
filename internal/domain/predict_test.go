package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constModel struct {
	raw   float64
	err   error
	calls int
	got   []float64
}

func (m *constModel) Predict(_ context.Context, v []float64) (float64, error) {
	m.calls++
	m.got = v
	return m.raw, m.err
}

type mapBias map[int]float64

func (b mapBias) Bias(zoneID int) float64 { return b[zoneID] }

type stubClusterer struct {
	level Level
	err   error
	point [4]float64
}

func (c *stubClusterer) Level(_ context.Context, p [4]float64) (Level, error) {
	c.point = p
	return c.level, c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInvoker_Expm1EndToEndExample(t *testing.T) {
	m := &constModel{raw: 5.2}
	iv := NewInvoker("xgb", m, TransformLog1p, mapBias{}, nil, discardLogger())

	p, err := iv.Invoke(context.Background(), []float64{1, 2}, 33, 18)
	require.NoError(t, err)
	assert.Equal(t, 180.27, p.BusynessScore)
	assert.Empty(t, p.BusynessLevel)
	assert.Empty(t, p.Degraded)
	assert.Equal(t, []float64{1, 2}, m.got)
}

func TestInvoker_LogTransform(t *testing.T) {
	iv := NewInvoker("linear", &constModel{raw: 4}, TransformLog, nil, nil, discardLogger())
	p, err := iv.Invoke(context.Background(), nil, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 54.6, p.BusynessScore)
}

func TestInvoker_AddsZoneBias(t *testing.T) {
	iv := NewInvoker("xgb", &constModel{raw: 0}, TransformLog1p, mapBias{7: 12.3456}, nil, discardLogger())

	p, err := iv.Invoke(context.Background(), nil, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 12.35, p.BusynessScore)

	p, err = iv.Invoke(context.Background(), nil, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.BusynessScore, "absent bias is zero")
}

func TestInvoker_Level(t *testing.T) {
	c := &stubClusterer{level: LevelHigh}
	iv := NewInvoker("xgb", &constModel{raw: math.Log1p(500)}, TransformLog1p, nil, c, discardLogger())

	p, err := iv.Invoke(context.Background(), nil, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, p.BusynessLevel)
	assert.InDelta(t, 500, c.point[0], 1e-9)
	assert.Equal(t, 0.0, c.point[1])
	assert.InDelta(t, 1, c.point[2], 1e-12, "sin at 06:00")
	assert.InDelta(t, 0, c.point[3], 1e-12, "cos at 06:00")
}

func TestInvoker_ClusterFailureKeepsScore(t *testing.T) {
	c := &stubClusterer{err: errors.New("boom")}
	iv := NewInvoker("xgb", &constModel{raw: 1}, TransformLog1p, nil, c, discardLogger())

	p, err := iv.Invoke(context.Background(), nil, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, 1.72, p.BusynessScore)
	assert.Empty(t, p.BusynessLevel)
	assert.Equal(t, []string{DegradedLevelUnavailable}, p.Degraded)
}

func TestInvoker_ModelFailure(t *testing.T) {
	iv := NewInvoker("rf", &constModel{err: errors.New("timeout")}, TransformLog1p, nil, nil, discardLogger())

	_, err := iv.Invoke(context.Background(), nil, 1, 6)
	require.Error(t, err)
	var me *ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "rf", me.Model)
	assert.False(t, IsValidation(err))
}

func TestInvoker_NonFiniteOutput(t *testing.T) {
	iv := NewInvoker("rf", &constModel{raw: math.NaN()}, TransformLog, nil, nil, discardLogger())
	_, err := iv.Invoke(context.Background(), nil, 1, 6)
	var me *ModelError
	require.ErrorAs(t, err, &me)
}

func TestParseTransform(t *testing.T) {
	tr, err := ParseTransform("log1p")
	require.NoError(t, err)
	assert.Equal(t, TransformLog1p, tr)

	_, err = ParseTransform("sqrt")
	require.Error(t, err)
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 1.0, RoundScore(0.999))
	assert.Equal(t, 2.35, RoundScore(2.345000001))
	assert.Equal(t, -0.5, RoundScore(-0.5))
}
