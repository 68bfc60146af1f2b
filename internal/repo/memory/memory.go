package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/airqmon/internal/domain"
	"github.com/hamed0406/airqmon/internal/repo"
)

var _ repo.MeasurementStore = (*Store)(nil)

// Store keeps measurements in memory. Default when DATABASE_URL is unset.
type Store struct {
	mu   sync.RWMutex
	rows []*domain.Measurement
	max  int
}

const defaultMaxRows = 100_000

func New() *Store {
	return &Store{
		rows: make([]*domain.Measurement, 0, 128),
		max:  defaultMaxRows,
	}
}

func (s *Store) Append(ctx context.Context, m *domain.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// idempotent on (sensor_path, observed_at): newest-first scan because
	// duplicates come from adjacent ticks
	for i := len(s.rows) - 1; i >= 0; i-- {
		r := s.rows[i]
		if r.SensorPath == m.SensorPath && r.ObservedAt.Equal(m.ObservedAt) {
			return nil
		}
	}

	cp := *m
	s.rows = append(s.rows, &cp)
	if len(s.rows) > s.max {
		s.rows = s.rows[len(s.rows)-s.max:]
	}
	return nil
}

func (s *Store) Latest(ctx context.Context) ([]*domain.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[domain.SensorPath]*domain.Measurement)
	for _, r := range s.rows {
		cur := latest[r.SensorPath]
		if cur == nil || r.ObservedAt.After(cur.ObservedAt) {
			latest[r.SensorPath] = r
		}
	}

	out := make([]*domain.Measurement, 0, len(latest))
	for _, r := range latest {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ListBySensor(ctx context.Context, path domain.SensorPath, limit int) ([]*domain.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	// the capacity hint comes from the caller; never trust it past what the
	// store can actually hold
	hint := limit
	if hint > len(s.rows) {
		hint = len(s.rows)
	}
	out := make([]*domain.Measurement, 0, hint)
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if s.rows[i].SensorPath == path {
			cp := *s.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
