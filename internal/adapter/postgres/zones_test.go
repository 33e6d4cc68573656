package postgres

import (
	"testing"

	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToZones(t *testing.T) {
	zones, err := toZones([]zoneRow{
		{ZoneID: 33, Attributes: []byte(`{"zone_name": "Brooklyn Heights", "zone_tourist_count": "1200", "lat": 40.69}`)},
		{ZoneID: 4, Attributes: []byte(`{}`)},
	})
	require.NoError(t, err)
	require.Len(t, zones, 2)

	assert.Equal(t, domain.Category("Brooklyn Heights"), zones[33]["zone_name"])
	assert.Equal(t, domain.Category("1200"), zones[33]["zone_tourist_count"])
	assert.Equal(t, domain.Number(40.69), zones[33]["lat"])
	assert.Equal(t, domain.Number(33), zones[33][domain.FieldZoneID])
	assert.Equal(t, domain.Attributes{domain.FieldZoneID: domain.Number(4)}, zones[4])
}

func TestToZones_NullAttributes(t *testing.T) {
	zones, err := toZones([]zoneRow{{ZoneID: 7, Attributes: []byte(`null`)}})
	require.NoError(t, err)
	assert.Equal(t, domain.Attributes{domain.FieldZoneID: domain.Number(7)}, zones[7])
}

func TestToZones_BadJSON(t *testing.T) {
	_, err := toZones([]zoneRow{{ZoneID: 1, Attributes: []byte(`{`)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zone 1")
}
