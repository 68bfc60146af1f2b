package repo

import (
	"context"

	"github.com/hamed0406/airqmon/internal/domain"
)

// MeasurementStore is the persistence port; swap in any DB adapter.
// Append is idempotent on (sensor_path, observed_at): a duplicate key never
// errors the caller.
type MeasurementStore interface {
	Append(ctx context.Context, m *domain.Measurement) error
	Latest(ctx context.Context) ([]*domain.Measurement, error)
	ListBySensor(ctx context.Context, path domain.SensorPath, limit int) ([]*domain.Measurement, error)
}
