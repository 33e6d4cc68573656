package domain

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TimestampLayout is the fixed request timestamp format ("YYYY-MM-DD HH:MM:SS").
const TimestampLayout = "2006-01-02 15:04:05"

// PredictionRequest is the minimum contract accepted by the feature builder.
type PredictionRequest struct {
	Timestamp        string             `json:"timestamp" validate:"required"`
	ZoneID           int                `json:"zone_id" validate:"required,gt=0"`
	ZoneName         string             `json:"zone_name,omitempty"`
	Weather          WeatherObservation `json:"weather"`
	FlowFeatures     map[string]any     `json:"flow_features,omitempty"`
	ZoneTouristCount any                `json:"zone_tourist_count,omitempty"`
	TouristRatio     any                `json:"tourist_ratio,omitempty"`
	CategoryTop      string             `json:"category_top,omitempty"`

	// Interest bypasses the interest cache when set.
	Interest *float64 `json:"interest,omitempty" validate:"omitempty,gte=0"`
}

// WeatherObservation carries the request-time weather. Providers send the
// condition code as either weather_code or weather_id.
type WeatherObservation struct {
	Temp        *float64 `json:"temp,omitempty"`
	Prcp        *float64 `json:"prcp,omitempty" validate:"omitempty,gte=0"`
	WeatherCode *int     `json:"weather_code,omitempty"`
	WeatherID   *int     `json:"weather_id,omitempty"`
}

// Code returns the provider weather code, preferring weather_code.
func (w WeatherObservation) Code() (int, bool) {
	switch {
	case w.WeatherCode != nil:
		return *w.WeatherCode, true
	case w.WeatherID != nil:
		return *w.WeatherID, true
	default:
		return 0, false
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks required fields and the timestamp format. The returned
// error is always a *ValidationError.
func (r PredictionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Field: fieldPath(fe.Namespace()), Reason: "failed " + fe.Tag() + " check"}
		}
		return &ValidationError{Field: "request", Reason: err.Error()}
	}
	if _, err := ParseTimestamp(r.Timestamp); err != nil {
		return err
	}
	return nil
}

// fieldPath drops the struct name prefix from a validator namespace,
// "PredictionRequest.weather.prcp" -> "weather.prcp".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// ParseTimestamp parses a request timestamp. A malformed value is a
// *ValidationError, never silently defaulted.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "timestamp", Reason: "must be 'YYYY-MM-DD HH:MM:SS'"}
	}
	return t, nil
}
