package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMeasurement_SetAndValue(t *testing.T) {
	m := &Measurement{SensorPath: "/livingroom", ObservedAt: time.Now().UTC()}

	if !m.Set(MetricCO2, 612.5) {
		t.Fatal("co2 should be a known metric")
	}
	v, ok := m.Value(MetricCO2)
	if !ok || v != 612.5 {
		t.Fatalf("got %v %v", v, ok)
	}

	// absent metric reports false, not zero
	if _, ok := m.Value(MetricHealth); ok {
		t.Fatal("health was never set")
	}

	if m.Set("dewpoint_rate", 1) {
		t.Fatal("unknown metric must be rejected")
	}
}

func TestMeasurement_JSONOmitsAbsentMetrics(t *testing.T) {
	m := &Measurement{SensorPath: "/kitchen"}
	m.Set(MetricTemperature, 21.3)

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["temperature"]; !ok {
		t.Fatalf("temperature missing: %s", b)
	}
	if _, ok := out["health"]; ok {
		t.Fatalf("absent health must be omitted: %s", b)
	}
}

func TestMetricNames_CoverSchema(t *testing.T) {
	m := &Measurement{}
	for _, name := range MetricNames {
		if !m.Set(name, 1) {
			t.Fatalf("metric %q not settable", name)
		}
	}
}
