package domain

import (
	"sort"
	"time"
)

// Feature names produced by the builder.
const (
	FieldZoneID           = "zone_id"
	FieldHour             = "hour"
	FieldWeekday          = "weekday"
	FieldMonth            = "month"
	FieldDay              = "day"
	FieldIsWeekend        = "is_weekend"
	FieldTemp             = "temp"
	FieldPrcp             = "prcp"
	FieldCocoGroup        = "coco_group"
	FieldInterest         = "interest"
	FieldZoneTouristCount = "zone_tourist_count"
	FieldTouristRatio     = "tourist_ratio"
	FieldCategoryTop      = "category_top"
	FieldZoneName         = "zone_name"
)

// numericFields arrive as free-form strings in some feeds; they are coerced to
// numbers after merging, with unparseable values becoming 0.
var numericFields = []string{FieldZoneTouristCount, FieldTouristRatio}

// DefaultsSource supplies the tier-2 and tier-3 records of the defaulting chain.
type DefaultsSource interface {
	ZoneDefaults(zoneID int) (Attributes, bool)
	GlobalDefaults() Attributes
}

// Features is the builder output: the flat record plus the parsed timestamp.
type Features struct {
	Record *FeatureRecord
	At     time.Time
}

// BuildFeatures merges request fields, the zone's defaults and the global
// defaults into one flat record. Precedence is request > zone > global; later
// tiers only fill gaps. The only error is a malformed timestamp.
func BuildFeatures(req PredictionRequest, defaults DefaultsSource) (Features, error) {
	at, err := ParseTimestamp(req.Timestamp)
	if err != nil {
		return Features{}, err
	}

	rec := NewFeatureRecord()
	applyRequest(rec, req, at)

	if defaults != nil {
		if zone, ok := defaults.ZoneDefaults(req.ZoneID); ok {
			fillFrom(rec, zone)
		}
		fillFrom(rec, defaults.GlobalDefaults())
	}

	for _, name := range numericFields {
		if v, ok := rec.Get(name); ok && v.IsCategory() {
			rec.Set(name, Number(v.FloatOrZero()))
		}
	}

	return Features{Record: rec, At: at}, nil
}

// applyRequest writes tier 1: explicit request fields and time-derived fields.
func applyRequest(rec *FeatureRecord, req PredictionRequest, at time.Time) {
	weekday := mondayFirst(at.Weekday())

	rec.Set(FieldZoneID, Number(float64(req.ZoneID)))
	rec.Set(FieldHour, Number(float64(at.Hour())))
	rec.Set(FieldWeekday, Number(float64(weekday)))
	rec.Set(FieldMonth, Number(float64(at.Month())))
	rec.Set(FieldDay, Number(float64(at.Day())))
	rec.Set(FieldIsWeekend, Flag(weekday >= 5))

	if req.Weather.Temp != nil {
		rec.Set(FieldTemp, Number(*req.Weather.Temp))
	}
	if req.Weather.Prcp != nil {
		rec.Set(FieldPrcp, Number(*req.Weather.Prcp))
	}
	if code, ok := req.Weather.Code(); ok {
		rec.Set(FieldCocoGroup, Category(string(CategorizeWeather(code))))
	}
	if req.Interest != nil {
		rec.Set(FieldInterest, Number(*req.Interest))
	}
	if v, ok := ValueOf(req.ZoneTouristCount); ok {
		rec.Set(FieldZoneTouristCount, v)
	}
	if v, ok := ValueOf(req.TouristRatio); ok {
		rec.Set(FieldTouristRatio, v)
	}
	if req.CategoryTop != "" {
		rec.Set(FieldCategoryTop, Category(req.CategoryTop))
	}

	keys := make([]string, 0, len(req.FlowFeatures))
	for k := range req.FlowFeatures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, ok := ValueOf(req.FlowFeatures[k]); ok {
			rec.Fill(k, v)
		}
	}
}

// fillFrom fills gaps from attrs in name order so record order is reproducible.
func fillFrom(rec *FeatureRecord, attrs Attributes) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.Fill(k, attrs[k])
	}
}

// mondayFirst converts time.Weekday (Sunday = 0) to Monday = 0 numbering.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
