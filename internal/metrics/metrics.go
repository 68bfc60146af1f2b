// Package metrics exposes the collector's telemetry as Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamed0406/airqmon/internal/domain"
)

type gaugeDef struct {
	metric string
	name   string
	help   string
}

// One gauge per metric in the measurement schema, labelled by sensor_path.
var gaugeDefs = []gaugeDef{
	{domain.MetricTemperature, "airq_temperature_celsius", "Temperature in Celsius"},
	{domain.MetricHumidity, "airq_humidity_percent", "Relative humidity in percent"},
	{domain.MetricCO2, "airq_co2_ppm", "CO2 concentration in ppm"},
	{domain.MetricPressure, "airq_pressure_hpa", "Air pressure in hPa"},
	{domain.MetricNO2, "airq_no2_ppm", "NO2 concentration in ppm"},
	{domain.MetricTVOC, "airq_tvoc_ppb", "TVOC concentration in ppb"},
	{domain.MetricPM1, "airq_pm1_ugm3", "PM1 particulate matter in µg/m³"},
	{domain.MetricPM25, "airq_pm25_ugm3", "PM2.5 particulate matter in µg/m³"},
	{domain.MetricPM10, "airq_pm10_ugm3", "PM10 particulate matter in µg/m³"},
	{domain.MetricSound, "airq_sound_db", "Sound level in dB"},
	{domain.MetricHealth, "airq_health_index", "Vendor health index, 0-1000, lower is worse"},
}

// Recorder is the metrics sink: fire-and-forget gauges and counters scraped
// through the /metrics endpoint.
type Recorder struct {
	gauges        map[string]*prometheus.GaugeVec
	fetchLatency  *prometheus.GaugeVec
	processed     *prometheus.CounterVec
	failures      *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	healthMissing *prometheus.CounterVec
	alerts        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		gauges: make(map[string]*prometheus.GaugeVec, len(gaugeDefs)),
		fetchLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airq_fetch_latency_ms",
			Help: "Latency of the last device fetch in milliseconds",
		}, []string{"sensor_path"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airq_sensor_data_total",
			Help: "Total processed sensor samples",
		}, []string{"sensor_path"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airq_poll_failures_total",
			Help: "Total per-sensor poll failures by reason",
		}, []string{"sensor_path", "reason"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airq_ticks_skipped_total",
			Help: "Ticks skipped because the previous poll was still in flight",
		}, []string{"sensor_path"}),
		healthMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airq_health_missing_total",
			Help: "Well-formed payloads that carried no health index",
		}, []string{"sensor_path"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airq_alerts_total",
			Help: "Alert events by kind",
		}, []string{"kind"}),
	}
	for _, d := range gaugeDefs {
		r.gauges[d.metric] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: d.name,
			Help: d.help,
		}, []string{"sensor_path"})
	}

	reg.MustRegister(r.fetchLatency, r.processed, r.failures, r.skipped, r.healthMissing, r.alerts)
	for _, g := range r.gauges {
		reg.MustRegister(g)
	}
	return r
}

func (r *Recorder) ObserveMeasurement(m *domain.Measurement) {
	path := string(m.SensorPath)
	for _, d := range gaugeDefs {
		if v, ok := m.Value(d.metric); ok {
			r.gauges[d.metric].WithLabelValues(path).Set(v)
		}
	}
}

func (r *Recorder) ObserveFetchLatency(path domain.SensorPath, ms float64) {
	r.fetchLatency.WithLabelValues(string(path)).Set(ms)
}

func (r *Recorder) IncProcessed(path domain.SensorPath) {
	r.processed.WithLabelValues(string(path)).Inc()
}

func (r *Recorder) IncFailure(path domain.SensorPath, reason string) {
	r.failures.WithLabelValues(string(path), reason).Inc()
}

func (r *Recorder) IncSkipped(path domain.SensorPath) {
	r.skipped.WithLabelValues(string(path)).Inc()
}

func (r *Recorder) IncHealthMissing(path domain.SensorPath) {
	r.healthMissing.WithLabelValues(string(path)).Inc()
}

func (r *Recorder) IncAlert(kind string) {
	r.alerts.WithLabelValues(kind).Inc()
}
