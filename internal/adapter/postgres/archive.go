// Package postgres archives the latest state of every weather event in
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	_ "github.com/lib/pq"
)

// Schema creates the archive table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS weather_events (
	event_id           TEXT PRIMARY KEY,
	type               TEXT NOT NULL,
	ai_algorithm       TEXT NOT NULL,
	unique_name        TEXT NOT NULL,
	city               TEXT NOT NULL,
	country            TEXT NOT NULL,
	lat                DOUBLE PRECISION NOT NULL,
	lng                DOUBLE PRECISION NOT NULL,
	severity           TEXT NOT NULL,
	rarity             TEXT NOT NULL,
	capture_slots      INTEGER NOT NULL,
	captured_count     INTEGER NOT NULL,
	active             BOOLEAN NOT NULL,
	deactivated_reason TEXT NOT NULL DEFAULT '',
	price              NUMERIC(12, 2) NOT NULL,
	weather_data       JSONB NOT NULL,
	ai_prediction      JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	expires_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS weather_events_rarity_idx ON weather_events (rarity);
CREATE INDEX IF NOT EXISTS weather_events_active_idx ON weather_events (active, expires_at);
`

const upsertEvent = `
INSERT INTO weather_events (
	event_id, type, ai_algorithm, unique_name, city, country, lat, lng,
	severity, rarity, capture_slots, captured_count, active, deactivated_reason,
	price, weather_data, ai_prediction, created_at, expires_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
ON CONFLICT (event_id) DO UPDATE SET
	captured_count     = EXCLUDED.captured_count,
	active             = EXCLUDED.active,
	deactivated_reason = EXCLUDED.deactivated_reason,
	price              = EXCLUDED.price,
	updated_at         = EXCLUDED.updated_at`

// DBTX is the subset of *sql.DB the archive uses.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Archive implements engine.EventArchive.
type Archive struct {
	db  DBTX
	now func() time.Time
}

func NewArchive(db DBTX) *Archive {
	return &Archive{db: db, now: time.Now}
}

// Migrate creates the schema.
func (a *Archive) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate weather_events: %w", err)
	}
	return nil
}

// SaveEvent inserts the event or refreshes its mutable columns.
func (a *Archive) SaveEvent(ctx context.Context, ev domain.WeatherEvent) error {
	args, err := eventArgs(ev, a.now().UTC())
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, upsertEvent, args...); err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.EventID, err)
	}
	return nil
}

// CheckReadiness pings the database.
func (a *Archive) CheckReadiness(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func eventArgs(ev domain.WeatherEvent, updatedAt time.Time) ([]any, error) {
	weather, err := json.Marshal(ev.WeatherData)
	if err != nil {
		return nil, fmt.Errorf("marshal weather data: %w", err)
	}
	prediction, err := json.Marshal(ev.AIPrediction)
	if err != nil {
		return nil, fmt.Errorf("marshal ai prediction: %w", err)
	}
	return []any{
		ev.EventID,
		ev.Type,
		ev.AIAlgorithm,
		ev.UniqueName,
		ev.Location.City,
		ev.Location.Country,
		ev.Location.Lat,
		ev.Location.Lng,
		string(ev.Severity),
		string(ev.Rarity),
		ev.CaptureSlots,
		ev.CapturedCount,
		ev.Active,
		ev.DeactivatedReason,
		ev.Price,
		string(weather),
		string(prediction),
		ev.CreatedAt,
		ev.ExpiresAt,
		updatedAt,
	}, nil
}
