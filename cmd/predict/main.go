// Command predict runs one prediction through the full service wiring and
// prints the result as JSON. Configuration comes from the environment (and
// .env) exactly as for the server; request fields come from flags.
//
// Usage:
//
//	go run ./cmd/predict -zone 33 -timestamp "2025-06-27 18:00:00" \
//	  -temp 29.4 -prcp 0 -weather-code 800 -interest 0.72
//
//	echo '{"zone_id":43,"timestamp":"2025-06-30 12:00:00"}' | go run ./cmd/predict -request -
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/imyuanhui/COMP47360/internal/app"
	"github.com/imyuanhui/COMP47360/internal/config"
	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type output struct {
	BusynessScore  float64      `json:"busyness_score"`
	BusynessLevel  domain.Level `json:"busyness_level,omitempty"`
	Model          string       `json:"model"`
	ModelVersion   string       `json:"model_version,omitempty"`
	Interest       *float64     `json:"interest,omitempty"`
	InterestOrigin string       `json:"interest_origin,omitempty"`
	Degraded       []string     `json:"degraded,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "predict:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	modelName := fs.String("model", "", "model name (default model when empty)")
	requestPath := fs.String("request", "", "read the request JSON from this file, or - for stdin")
	timestamp := fs.String("timestamp", "", "request time, YYYY-MM-DD HH:MM:SS")
	zoneID := fs.Int("zone", 0, "zone id")
	zoneName := fs.String("zone-name", "", "interest keyword override")
	temp := optionalFloat(fs, "temp", "temperature")
	prcp := optionalFloat(fs, "prcp", "precipitation")
	interest := optionalFloat(fs, "interest", "interest value, bypasses the interest cache")
	weatherCode := optionalInt(fs, "weather-code", "provider weather condition code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req domain.PredictionRequest
	if *requestPath != "" {
		if err := readRequest(*requestPath, stdin, &req); err != nil {
			return err
		}
	}
	if *timestamp != "" {
		req.Timestamp = *timestamp
	}
	if *zoneID != 0 {
		req.ZoneID = *zoneID
	}
	if *zoneName != "" {
		req.ZoneName = *zoneName
	}
	if *temp != nil {
		req.Weather.Temp = *temp
	}
	if *prcp != nil {
		req.Weather.Prcp = *prcp
	}
	if *weatherCode != nil {
		req.Weather.WeatherCode = *weatherCode
	}
	if *interest != nil {
		req.Interest = *interest
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Diagnostics go to stderr so stdout stays machine-readable.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Service.Predict(ctx, *modelName, req)
	if err != nil {
		return err
	}

	out := output{
		BusynessScore: res.BusynessScore,
		BusynessLevel: res.BusynessLevel,
		Model:         res.Model,
		ModelVersion:  res.ModelVersion,
		Degraded:      res.Degraded,
	}
	if res.Interest != nil {
		out.Interest = &res.Interest.Value
		out.InterestOrigin = string(res.Interest.Origin)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readRequest(path string, stdin io.Reader, req *domain.PredictionRequest) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// optionalFloat registers a flag whose absence is distinguishable from 0.
func optionalFloat(fs *flag.FlagSet, name, usage string) **float64 {
	var p *float64
	fs.Func(name, usage, func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		p = &v
		return nil
	})
	return &p
}

func optionalInt(fs *flag.FlagSet, name, usage string) **int {
	var p *int
	fs.Func(name, usage, func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		p = &v
		return nil
	})
	return &p
}
