// Package trends fetches the zone interest signal from an HTTP trend source.
package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/imyuanhui/COMP47360/internal/observability"
)

// ErrNoData means the source had no complete points for the keyword in the
// window. It is distinct from a genuine average of 0.
var ErrNoData = errors.New("trends: no data")

// Client queries the trend source for the average interest of a keyword over
// a fixed window and region.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeframe  string
	geo        string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a trend source client.
func NewClient(baseURL, timeframe, geo string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		timeframe: timeframe,
		geo:       geo,
		metrics:   metrics,
		logger:    logger,
	}
}

// Fetch returns the mean of the non-partial timeline points for keyword.
// It returns ErrNoData when no such point exists.
func (c *Client) Fetch(ctx context.Context, keyword string) (float64, error) {
	params := url.Values{
		"keyword":   {keyword},
		"timeframe": {c.timeframe},
		"geo":       {c.geo},
	}

	start := time.Now()
	v, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.InterestFetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrNoData):
		c.metrics.InterestFetches.WithLabelValues("no_data").Inc()
	case err != nil:
		c.metrics.InterestFetches.WithLabelValues("error").Inc()
	default:
		c.metrics.InterestFetches.WithLabelValues("success").Inc()
	}
	return v, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("trends request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("trends API error: status %d: %s", resp.StatusCode, body)
	}

	var tr response
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return tr.average()
}

// Trend source response types.

type response struct {
	Timeline []point `json:"timeline"`
}

type point struct {
	Time    string  `json:"time"`
	Value   float64 `json:"value"`
	Partial bool    `json:"is_partial"`
}

// average drops the trailing partial bucket(s) and averages the rest.
func (r response) average() (float64, error) {
	var sum float64
	var n int
	for _, p := range r.Timeline {
		if p.Partial {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return 0, ErrNoData
	}
	return sum / float64(n), nil
}
