// Package lookup loads the static tables consulted on every prediction:
// per-zone defaults, global defaults, per-zone bias corrections and the
// interest fallback table. Tables are loaded once and never mutated, so
// concurrent reads need no locking.
package lookup

import (
	"github.com/imyuanhui/COMP47360/internal/domain"
)

// Store holds the read-only tables. It implements domain.DefaultsSource and
// domain.BiasLookup.
type Store struct {
	zones  map[int]domain.Attributes
	global domain.Attributes
	bias   BiasTable
}

// NewStore wraps already-loaded tables. Any argument may be nil.
func NewStore(zones map[int]domain.Attributes, global domain.Attributes, bias BiasTable) *Store {
	if zones == nil {
		zones = map[int]domain.Attributes{}
	}
	if global == nil {
		global = domain.Attributes{}
	}
	return &Store{zones: zones, global: global, bias: bias}
}

// ZoneDefaults returns the zone's constant attributes.
func (s *Store) ZoneDefaults(zoneID int) (domain.Attributes, bool) {
	a, ok := s.zones[zoneID]
	return a, ok
}

// GlobalDefaults returns the global fallback record.
func (s *Store) GlobalDefaults() domain.Attributes {
	return s.global
}

// Bias returns the additive correction for a zone, 0 if none.
func (s *Store) Bias(zoneID int) float64 {
	return s.bias.Bias(zoneID)
}

// ZoneName returns the zone's display name, used as the interest keyword.
func (s *Store) ZoneName(zoneID int) (string, bool) {
	a, ok := s.zones[zoneID]
	if !ok {
		return "", false
	}
	v, ok := a[domain.FieldZoneName]
	if !ok || !v.IsCategory() || v.Label() == "" {
		return "", false
	}
	return v.Label(), true
}

// ZoneCount returns the number of zones with defaults.
func (s *Store) ZoneCount() int { return len(s.zones) }
