package domain

import "time"

// SensorPath is the logical name of a device (e.g. "/livingroom"). It is the
// stable key for persistence, metrics labels and alert state.
type SensorPath string

// SensorEndpoint identifies one physical air-Q device. Immutable after
// configuration load.
type SensorEndpoint struct {
	Host   string     `json:"host"`
	Path   SensorPath `json:"path"`
	Secret string     `json:"-"`
}

// RawResponse is the encrypted device answer plus transport metadata.
// Discarded after decryption.
type RawResponse struct {
	Content   string    `json:"content"` // base64 payload from the device envelope
	Status    int       `json:"status"`
	LatencyMS float64   `json:"latency_ms"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Metric names as they appear in the decrypted payload.
const (
	MetricTemperature = "temperature"
	MetricHumidity    = "humidity"
	MetricCO2         = "co2"
	MetricPressure    = "pressure"
	MetricNO2         = "no2"
	MetricTVOC        = "tvoc"
	MetricPM1         = "pm1"
	MetricPM25        = "pm2_5"
	MetricPM10        = "pm10"
	MetricSound       = "sound"
	MetricHealth      = "health"
)

// MetricNames lists every metric in the fixed measurement schema.
var MetricNames = []string{
	MetricTemperature,
	MetricHumidity,
	MetricCO2,
	MetricPressure,
	MetricNO2,
	MetricTVOC,
	MetricPM1,
	MetricPM25,
	MetricPM10,
	MetricSound,
	MetricHealth,
}

// Measurement is one decrypted sample from one sensor. A nil field means the
// device did not report that metric (pointer to allow nil, never zero).
// Immutable once produced.
type Measurement struct {
	SensorPath  SensorPath `json:"sensor_path"`
	ObservedAt  time.Time  `json:"observed_at"`
	Temperature *float64   `json:"temperature,omitempty"`
	Humidity    *float64   `json:"humidity,omitempty"`
	CO2         *float64   `json:"co2,omitempty"`
	Pressure    *float64   `json:"pressure,omitempty"`
	NO2         *float64   `json:"no2,omitempty"`
	TVOC        *float64   `json:"tvoc,omitempty"`
	PM1         *float64   `json:"pm1,omitempty"`
	PM25        *float64   `json:"pm2_5,omitempty"`
	PM10        *float64   `json:"pm10,omitempty"`
	Sound       *float64   `json:"sound,omitempty"`
	Health      *float64   `json:"health,omitempty"`
}

func (m *Measurement) field(name string) **float64 {
	switch name {
	case MetricTemperature:
		return &m.Temperature
	case MetricHumidity:
		return &m.Humidity
	case MetricCO2:
		return &m.CO2
	case MetricPressure:
		return &m.Pressure
	case MetricNO2:
		return &m.NO2
	case MetricTVOC:
		return &m.TVOC
	case MetricPM1:
		return &m.PM1
	case MetricPM25:
		return &m.PM25
	case MetricPM10:
		return &m.PM10
	case MetricSound:
		return &m.Sound
	case MetricHealth:
		return &m.Health
	default:
		return nil
	}
}

// Value returns the named metric and whether the device reported it.
func (m *Measurement) Value(name string) (float64, bool) {
	f := m.field(name)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// Set stores a metric value. Unknown names are ignored and reported false.
func (m *Measurement) Set(name string, v float64) bool {
	f := m.field(name)
	if f == nil {
		return false
	}
	val := v
	*f = &val
	return true
}
