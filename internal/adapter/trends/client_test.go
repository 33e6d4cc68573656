package trends

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imyuanhui/COMP47360/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) (*Client, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewClient(baseURL, "now 1-d", "US-NY-501", 5*time.Second, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func serveTimeline(t *testing.T, points []point) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Timeline: points}))
	}))
}

func TestClient_Fetch_AveragesCompletePoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Apollo Theater", q.Get("keyword"))
		assert.Equal(t, "now 1-d", q.Get("timeframe"))
		assert.Equal(t, "US-NY-501", q.Get("geo"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Timeline: []point{
			{Time: "2025-06-26T18:00:00Z", Value: 40},
			{Time: "2025-06-26T19:00:00Z", Value: 60},
			{Time: "2025-06-26T20:00:00Z", Value: 5, Partial: true},
		}}))
	}))
	defer srv.Close()

	c, m := testClient(srv.URL)
	v, err := c.Fetch(context.Background(), "Apollo Theater")
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)
	assert.Equal(t, 1.0, observability.CounterValue(m.InterestFetches.WithLabelValues("success")))
}

func TestClient_Fetch_ZeroIsRealData(t *testing.T) {
	srv := serveTimeline(t, []point{{Value: 0}, {Value: 0}})
	defer srv.Close()

	c, _ := testClient(srv.URL)
	v, err := c.Fetch(context.Background(), "Quiet Zone")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestClient_Fetch_OnlyPartialPointsIsNoData(t *testing.T) {
	srv := serveTimeline(t, []point{{Value: 12, Partial: true}})
	defer srv.Close()

	c, m := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "Harlem")
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 1.0, observability.CounterValue(m.InterestFetches.WithLabelValues("no_data")))
}

func TestClient_Fetch_EmptyTimelineIsNoData(t *testing.T) {
	srv := serveTimeline(t, nil)
	defer srv.Close()

	c, _ := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "Harlem")
	require.ErrorIs(t, err, ErrNoData)
}

func TestClient_Fetch_NotFoundIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "Nowhere")
	require.ErrorIs(t, err, ErrNoData)
}

func TestClient_Fetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	c, m := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "Harlem")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 1.0, observability.CounterValue(m.InterestFetches.WithLabelValues("error")))
}

func TestClient_Fetch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "Harlem")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, _ := testClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, "Harlem")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
