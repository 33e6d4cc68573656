package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteModel delegates prediction to an HTTP model server.
type RemoteModel struct {
	endpoint string
	name     string
	columns  []string
	client   *http.Client
}

// NewRemoteModel creates a client for endpoint.
func NewRemoteModel(endpoint, name string, columns []string, timeout time.Duration) *RemoteModel {
	return &RemoteModel{
		endpoint: endpoint,
		name:     name,
		columns:  columns,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type remoteRequest struct {
	Model   string    `json:"model"`
	Columns []string  `json:"columns"`
	Vector  []float64 `json:"vector"`
}

type remoteResponse struct {
	Prediction float64 `json:"prediction"`
}

// Predict implements domain.Model.
func (m *RemoteModel) Predict(ctx context.Context, x []float64) (float64, error) {
	body, err := json.Marshal(remoteRequest{Model: m.name, Columns: m.columns, Vector: x})
	if err != nil {
		return 0, fmt.Errorf("marshal model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model server request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model server returned status: %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode model response: %w", err)
	}
	return out.Prediction, nil
}
