package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hamed0406/airqmon/internal/domain"
)

func sample(path domain.SensorPath, at time.Time, health float64) *domain.Measurement {
	m := &domain.Measurement{SensorPath: path, ObservedAt: at}
	m.Set(domain.MetricHealth, health)
	return m
}

func TestStore_AppendAndLatest(t *testing.T) {
	ctx := context.Background()
	s := New()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Append(ctx, sample("/a", t0, 700)); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, sample("/a", t0.Add(time.Second), 650)); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, sample("/b", t0, 900)); err != nil {
		t.Fatal(err)
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 {
		t.Fatalf("want one row per sensor, got %d", len(latest))
	}
	for _, m := range latest {
		if m.SensorPath == "/a" {
			if h, _ := m.Value(domain.MetricHealth); h != 650 {
				t.Fatalf("latest /a should be the newer row, got health=%v", h)
			}
		}
	}
}

func TestStore_AppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Append(ctx, sample("/a", at, 700)); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, sample("/a", at, 700)); err != nil {
		t.Fatalf("duplicate key must not error: %v", err)
	}

	rows, _ := s.ListBySensor(ctx, "/a", 10)
	if len(rows) != 1 {
		t.Fatalf("want 1 row after duplicate append, got %d", len(rows))
	}
}

func TestStore_ListBySensor_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_ = s.Append(ctx, sample("/a", t0.Add(time.Duration(i)*time.Second), float64(i)))
	}
	_ = s.Append(ctx, sample("/b", t0, 1))

	rows, err := s.ListBySensor(ctx, "/a", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("want 3 rows, got %d", len(rows))
	}
	if h, _ := rows[0].Value(domain.MetricHealth); h != 4 {
		t.Fatalf("want newest first, got health=%v", h)
	}
}
