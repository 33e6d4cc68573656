package domain

import "context"

// InterestOrigin records where an interest value came from.
type InterestOrigin string

const (
	InterestFromRequest  InterestOrigin = "request"
	InterestFromCache    InterestOrigin = "cache"
	InterestFromLive     InterestOrigin = "live"
	InterestFromFallback InterestOrigin = "fallback"
	InterestFromDefault  InterestOrigin = "default"
)

// InterestReading is an interest value with its origin.
type InterestReading struct {
	Value  float64
	Origin InterestOrigin
}

// Degraded reports whether the value is a stand-in for live data.
func (r InterestReading) Degraded() bool {
	return r.Origin == InterestFromFallback || r.Origin == InterestFromDefault
}

// InterestProvider resolves the interest signal for a zone name. It never
// fails; outages degrade to fallback or default values.
type InterestProvider interface {
	Interest(ctx context.Context, zoneName string) InterestReading
}
