package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/imyuanhui/COMP47360/internal/adapter/model"
	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps a prediction request body.
const maxBodyBytes = 1 << 20

// Predictor runs predictions and reports readiness.
type Predictor interface {
	sharedobs.ReadinessChecker
	Predict(ctx context.Context, model string, req domain.PredictionRequest) (pipeline.Result, error)
}

// ModelLister describes the loaded models.
type ModelLister interface {
	List() []model.Info
}

// Server exposes the prediction API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	models     ModelLister
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /predict, /predict/{model}, /models,
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, predictor Predictor, models ModelLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		predictor: predictor,
		models:    models,
		logger:    logger,
	}

	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /predict/{model}", s.handlePredict)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(predictor))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type predictResponse struct {
	BusynessScore float64      `json:"busyness_score"`
	BusynessLevel domain.Level `json:"busyness_level,omitempty"`
	Model         string       `json:"model"`
	ModelVersion  string       `json:"model_version,omitempty"`
	Degraded      []string     `json:"degraded,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req domain.PredictionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.predictor.Predict(r.Context(), r.PathValue("model"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		BusynessScore: res.BusynessScore,
		BusynessLevel: res.BusynessLevel,
		Model:         res.Model,
		ModelVersion:  res.ModelVersion,
		Degraded:      res.Degraded,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.models.List()})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ve *domain.ValidationError
		me *domain.ModelError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Reason, Field: ve.Field})
	case errors.Is(err, domain.ErrUnknownModel):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &me):
		// Model internals stay in the log.
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "model " + me.Model + " failed"})
	default:
		s.logger.Error("prediction failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must be a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
