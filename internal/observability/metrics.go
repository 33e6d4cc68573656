package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "busyness"

// Metrics holds the Prometheus counters, histograms, and gauges for the prediction service.
type Metrics struct {
	PredictionsTotal   *prometheus.CounterVec   // labels: model, outcome={success,degraded,rejected,model_error}
	PredictionDuration *prometheus.HistogramVec // labels: model
	Levels             *prometheus.CounterVec   // labels: level
	ServiceReady       prometheus.Gauge

	// Interest signal metrics.
	InterestLookups       *prometheus.CounterVec // labels: origin={request,cache,live,fallback,default}
	InterestFetches       *prometheus.CounterVec // labels: outcome={success,no_data,error}
	InterestFetchDuration prometheus.Histogram
	TrendsEnabled         prometheus.Gauge

	// Event publishing metrics.
	EventsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

// NewMetricsWithRegistry registers the metrics with reg. One-shot tools use
// a private registry that is never scraped.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by model and outcome.",
		}, []string{"model", "outcome"}),
		PredictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end prediction latency including the interest lookup.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"model"}),
		Levels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "levels_total",
			Help:      "Assigned busyness levels.",
		}, []string{"level"}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_ready",
			Help:      "1 when models and lookup tables are loaded, 0 when shut down.",
		}),
		InterestLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interest_lookups_total",
			Help:      "Interest values resolved, by origin.",
		}, []string{"origin"}),
		InterestFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interest_fetches_total",
			Help:      "Calls to the trend source by outcome.",
		}, []string{"outcome"}),
		InterestFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interest_fetch_duration_seconds",
			Help:      "Trend source request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TrendsEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trends_enabled",
			Help:      "1 when live interest fetching is enabled, 0 otherwise.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Prediction events written to Kafka by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.PredictionsTotal,
		m.PredictionDuration,
		m.Levels,
		m.ServiceReady,
		m.InterestLookups,
		m.InterestFetches,
		m.InterestFetchDuration,
		m.TrendsEnabled,
		m.EventsPublished,
	)

	return m
}

// CounterValue reads the current value of a counter. Intended for tests.
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
