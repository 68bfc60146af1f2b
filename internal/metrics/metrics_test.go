package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hamed0406/airqmon/internal/domain"
)

func TestRecorder_ObserveMeasurement(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	m := &domain.Measurement{SensorPath: "/livingroom", ObservedAt: time.Now().UTC()}
	m.Set(domain.MetricHealth, 612)
	m.Set(domain.MetricCO2, 950)
	rec.ObserveMeasurement(m)
	rec.IncProcessed(m.SensorPath)

	g := rec.gauges[domain.MetricHealth].WithLabelValues("/livingroom")
	if got := testutil.ToFloat64(g); got != 612 {
		t.Fatalf("health gauge = %v", got)
	}
	c := rec.processed.WithLabelValues("/livingroom")
	if got := testutil.ToFloat64(c); got != 1 {
		t.Fatalf("processed counter = %v", got)
	}
	// absent metrics leave their gauge untouched
	pm := rec.gauges[domain.MetricPM25].WithLabelValues("/livingroom")
	if got := testutil.ToFloat64(pm); got != 0 {
		t.Fatalf("pm2_5 gauge should be untouched, got %v", got)
	}
}

func TestRecorder_FailureAndAlertCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.IncFailure("/a", "fetch_timeout")
	rec.IncFailure("/a", "fetch_timeout")
	rec.IncFailure("/a", "decrypt_bad_padding")
	rec.IncAlert(string(domain.AlertRaised))

	if got := testutil.ToFloat64(rec.failures.WithLabelValues("/a", "fetch_timeout")); got != 2 {
		t.Fatalf("fetch_timeout = %v", got)
	}
	if got := testutil.ToFloat64(rec.alerts.WithLabelValues("raised")); got != 1 {
		t.Fatalf("alerts raised = %v", got)
	}
}
