package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/airqmon/internal/domain"
	"github.com/hamed0406/airqmon/internal/repo"
)

var _ repo.MeasurementStore = (*Store)(nil)

// Store persists measurements in Postgres, one row per (sensor_path,
// observed_at). Appends are idempotent on that key.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS measurements (
  sensor_path TEXT             NOT NULL,
  observed_at TIMESTAMPTZ      NOT NULL,
  temperature DOUBLE PRECISION NULL,
  humidity    DOUBLE PRECISION NULL,
  co2         DOUBLE PRECISION NULL,
  pressure    DOUBLE PRECISION NULL,
  no2         DOUBLE PRECISION NULL,
  tvoc        DOUBLE PRECISION NULL,
  pm1         DOUBLE PRECISION NULL,
  pm2_5       DOUBLE PRECISION NULL,
  pm10        DOUBLE PRECISION NULL,
  sound       DOUBLE PRECISION NULL,
  health      DOUBLE PRECISION NULL,
  PRIMARY KEY (sensor_path, observed_at)
);

CREATE INDEX IF NOT EXISTS idx_measurements_observed_at ON measurements (observed_at DESC);
`

// EnsureSchema creates the measurements table on a fresh database.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, m *domain.Measurement) error {
	if m.ObservedAt.IsZero() {
		m.ObservedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO measurements
		   (sensor_path, observed_at, temperature, humidity, co2, pressure,
		    no2, tvoc, pm1, pm2_5, pm10, sound, health)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (sensor_path, observed_at) DO NOTHING`,
		string(m.SensorPath), m.ObservedAt,
		m.Temperature, m.Humidity, m.CO2, m.Pressure,
		m.NO2, m.TVOC, m.PM1, m.PM25, m.PM10, m.Sound, m.Health,
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

const selectCols = `sensor_path, observed_at, temperature, humidity, co2, pressure,
no2, tvoc, pm1, pm2_5, pm10, sound, health`

func (s *Store) Latest(ctx context.Context) ([]*domain.Measurement, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT DISTINCT ON (sensor_path) %s
		   FROM measurements
		  ORDER BY sensor_path, observed_at DESC`, selectCols))
	if err != nil {
		return nil, fmt.Errorf("latest measurements: %w", err)
	}
	defer rows.Close()
	return scanMeasurements(rows)
}

func (s *Store) ListBySensor(ctx context.Context, path domain.SensorPath, limit int) ([]*domain.Measurement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s
		   FROM measurements
		  WHERE sensor_path = $1
		  ORDER BY observed_at DESC
		  LIMIT $2`, selectCols),
		string(path), limit)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()
	return scanMeasurements(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMeasurements(rows pgxRows) ([]*domain.Measurement, error) {
	var out []*domain.Measurement
	for rows.Next() {
		var (
			m    domain.Measurement
			path string
		)
		if err := rows.Scan(
			&path, &m.ObservedAt, &m.Temperature, &m.Humidity, &m.CO2, &m.Pressure,
			&m.NO2, &m.TVOC, &m.PM1, &m.PM25, &m.PM10, &m.Sound, &m.Health,
		); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		m.SensorPath = domain.SensorPath(path)
		out = append(out, &m)
	}
	return out, rows.Err()
}
