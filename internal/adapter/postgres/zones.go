// Package postgres reads zone defaults from a Postgres table as an
// alternative to the JSON file.
package postgres

import (
	"context"
	"fmt"

	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/lookup"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Schema creates the zone defaults table. attributes holds one flat JSON
// object per zone.
const Schema = `
CREATE TABLE IF NOT EXISTS zone_defaults (
	zone_id    INTEGER PRIMARY KEY,
	attributes JSONB   NOT NULL DEFAULT '{}'::jsonb
)`

type zoneRow struct {
	ZoneID     int    `db:"zone_id"`
	Attributes []byte `db:"attributes"`
}

// ZoneDefaultsRepository loads the zone defaults table.
type ZoneDefaultsRepository struct {
	db *sqlx.DB
}

// Open connects to dsn with the lib/pq driver.
func Open(ctx context.Context, dsn string) (*ZoneDefaultsRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect zone defaults db: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *ZoneDefaultsRepository {
	return &ZoneDefaultsRepository{db: db}
}

// EnsureSchema creates the table if it is missing.
func (r *ZoneDefaultsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create zone_defaults: %w", err)
	}
	return nil
}

// Upsert writes one zone record. Used by seeding tools and tests.
func (r *ZoneDefaultsRepository) Upsert(ctx context.Context, zoneID int, attributes []byte) error {
	const query = `
		INSERT INTO zone_defaults (zone_id, attributes)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (zone_id) DO UPDATE SET attributes = EXCLUDED.attributes`
	if _, err := r.db.ExecContext(ctx, query, zoneID, string(attributes)); err != nil {
		return fmt.Errorf("upsert zone %d: %w", zoneID, err)
	}
	return nil
}

// LoadAll reads every zone. The result has the same shape as
// lookup.LoadZoneDefaults.
func (r *ZoneDefaultsRepository) LoadAll(ctx context.Context) (map[int]domain.Attributes, error) {
	const query = `
		SELECT
			zone_id,
			attributes
		FROM zone_defaults
		ORDER BY zone_id`

	var rows []zoneRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query zone defaults: %w", err)
	}
	return toZones(rows)
}

// Close releases the connection pool.
func (r *ZoneDefaultsRepository) Close() error {
	return r.db.Close()
}

func toZones(rows []zoneRow) (map[int]domain.Attributes, error) {
	zones := make(map[int]domain.Attributes, len(rows))
	for _, row := range rows {
		attrs, err := lookup.AttributesFromJSON(row.Attributes)
		if err != nil {
			return nil, fmt.Errorf("zone %d attributes: %w", row.ZoneID, err)
		}
		if attrs == nil {
			attrs = domain.Attributes{}
		}
		attrs[domain.FieldZoneID] = domain.Number(float64(row.ZoneID))
		zones[row.ZoneID] = attrs
	}
	return zones, nil
}
