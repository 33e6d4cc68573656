package lookup

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/imyuanhui/COMP47360/internal/domain"
)

// BiasTable maps zone id to an additive score correction.
type BiasTable map[int]float64

// Bias returns the correction for zoneID, 0 if absent.
func (b BiasTable) Bias(zoneID int) float64 {
	return b[zoneID]
}

// LoadZoneDefaults reads a JSON array of zone records, each carrying a
// "zone_id" plus arbitrary scalar attributes.
func LoadZoneDefaults(path string) (map[int]domain.Attributes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone defaults: %w", err)
	}
	var rows []map[string]any
	if err := decodeJSON(data, &rows); err != nil {
		return nil, fmt.Errorf("decode zone defaults %s: %w", path, err)
	}

	zones := make(map[int]domain.Attributes, len(rows))
	for i, row := range rows {
		id, attrs, err := ParseZoneRecord(row)
		if err != nil {
			return nil, fmt.Errorf("zone defaults %s row %d: %w", path, i, err)
		}
		zones[id] = attrs
	}
	return zones, nil
}

// ParseZoneRecord splits a decoded zone row into its id and attributes.
// The zone_id attribute itself is kept so it can backfill like any other field.
func ParseZoneRecord(row map[string]any) (int, domain.Attributes, error) {
	rawID, ok := row[domain.FieldZoneID]
	if !ok {
		return 0, nil, errors.New("missing zone_id")
	}
	idVal, ok := domain.ValueOf(rawID)
	if !ok {
		return 0, nil, errors.New("zone_id is not a scalar")
	}
	f, ok := idVal.Float()
	if !ok || f != float64(int(f)) {
		return 0, nil, fmt.Errorf("zone_id %q is not an integer", idVal.Label())
	}
	return int(f), toAttributes(row), nil
}

// LoadGlobalDefaults reads a flat JSON object of attribute defaults.
func LoadGlobalDefaults(path string) (domain.Attributes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read global defaults: %w", err)
	}
	attrs, err := AttributesFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode global defaults %s: %w", path, err)
	}
	return attrs, nil
}

// LoadBiasTable reads a JSON object keyed by zone id string.
func LoadBiasTable(path string) (BiasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bias table: %w", err)
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode bias table %s: %w", path, err)
	}
	table := make(BiasTable, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("bias table %s: zone key %q is not an integer", path, k)
		}
		table[id] = v
	}
	return table, nil
}

// FallbackTable maps an interest keyword to its static default interest.
type FallbackTable map[string]float64

// Lookup returns the default interest for keyword.
func (f FallbackTable) Lookup(keyword string) (float64, bool) {
	v, ok := f[keyword]
	return v, ok
}

// LoadFallbackTable reads a CSV with "keyword" and "interest" columns.
// Rows whose interest does not parse are skipped.
func LoadFallbackTable(path string) (FallbackTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fallback table: %w", err)
	}
	defer f.Close()
	return ReadFallbackTable(f)
}

// ReadFallbackTable parses the fallback CSV from r.
func ReadFallbackTable(r io.Reader) (FallbackTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read fallback header: %w", err)
	}
	kwCol, interestCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "keyword":
			kwCol = i
		case "interest":
			interestCol = i
		}
	}
	if kwCol < 0 || interestCol < 0 {
		return nil, errors.New("fallback table needs keyword and interest columns")
	}

	table := FallbackTable{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read fallback row: %w", err)
		}
		if kwCol >= len(rec) || interestCol >= len(rec) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[interestCol]), 64)
		if err != nil {
			continue
		}
		table[rec[kwCol]] = v
	}
	return table, nil
}

// AttributesFromJSON decodes one flat JSON object of scalar attributes.
// Nested and null values are dropped.
func AttributesFromJSON(data []byte) (domain.Attributes, error) {
	var obj map[string]any
	if err := decodeJSON(data, &obj); err != nil {
		return nil, err
	}
	return toAttributes(obj), nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func toAttributes(obj map[string]any) domain.Attributes {
	attrs := make(domain.Attributes, len(obj))
	for k, raw := range obj {
		if v, ok := domain.ValueOf(raw); ok {
			attrs[k] = v
		}
	}
	return attrs
}
