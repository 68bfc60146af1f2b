package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/airqmon/internal/alerting"
	"github.com/hamed0406/airqmon/internal/domain"
	"github.com/hamed0406/airqmon/internal/httpapi/middleware"
	"github.com/hamed0406/airqmon/internal/repo"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Server exposes a read-only view of the collector: configured sensors,
// their alert state, and stored measurements.
type Server struct {
	Logger    *zap.Logger
	Store     repo.MeasurementStore
	Alerts    *alerting.Engine
	Endpoints []domain.SensorEndpoint
	Metrics   http.Handler

	// RateLimitPerMin guards the open API per caller IP; <= 0 disables.
	RateLimitPerMin int
	RateLimitBurst  int
}

func NewServer(l *zap.Logger, store repo.MeasurementStore, alerts *alerting.Engine,
	eps []domain.SensorEndpoint, metrics http.Handler) *Server {
	return &Server{
		Logger:          l,
		Store:           store,
		Alerts:          alerts,
		Endpoints:       eps,
		Metrics:         metrics,
		RateLimitPerMin: 240,
		RateLimitBurst:  60,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(s.RateLimitPerMin, s.RateLimitBurst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/sensors", s.handleListSensors)
	r.Get("/api/measurements/latest", s.handleLatest)
	r.Get("/api/measurements/summary", s.handleSummary)
	r.Get("/api/measurements", s.handleListBySensor)

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	return r
}

type sensorView struct {
	Path   domain.SensorPath   `json:"path"`
	Host   string              `json:"host"`
	Alerts *alerting.StateView `json:"alerts,omitempty"`
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	states := s.Alerts.Snapshot()

	out := make([]sensorView, 0, len(s.Endpoints))
	for _, ep := range s.Endpoints {
		v := sensorView{Path: ep.Path, Host: ep.Host}
		if st, ok := states[ep.Path]; ok {
			st := st
			v.Alerts = &st
		}
		out = append(out, v)
	}
	writeJSON(w, out)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Store.Latest(r.Context())
	if err != nil {
		s.Logger.Error("latest_failed", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, ms)
}

func (s *Server) handleListBySensor(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("sensor")
	if path == "" {
		http.Error(w, "missing sensor parameter", http.StatusBadRequest)
		return
	}

	limit, ok := listLimit(r)
	if !ok {
		http.Error(w, "bad limit", http.StatusBadRequest)
		return
	}

	ms, err := s.Store.ListBySensor(r.Context(), domain.SensorPath(path), limit)
	if err != nil {
		s.Logger.Error("list_failed", zap.String("sensor", path), zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, ms)
}

type summaryView struct {
	Data        []*domain.Measurement `json:"data"`
	Count       int                   `json:"count"`
	SensorPaths []domain.SensorPath   `json:"sensor_paths"`
	TimeRange   *timeRange            `json:"time_range,omitempty"`
}

type timeRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// handleSummary returns stored rows plus metadata: row count, the distinct
// sensors present, and the observed-at range. With a sensor parameter it
// covers that sensor's recent rows, otherwise the newest row per sensor.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	limit, ok := listLimit(r)
	if !ok {
		http.Error(w, "bad limit", http.StatusBadRequest)
		return
	}

	var ms []*domain.Measurement
	var err error
	if path := r.URL.Query().Get("sensor"); path != "" {
		ms, err = s.Store.ListBySensor(r.Context(), domain.SensorPath(path), limit)
	} else {
		ms, err = s.Store.Latest(r.Context())
	}
	if err != nil {
		s.Logger.Error("summary_failed", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}

	out := summaryView{Data: ms, Count: len(ms), SensorPaths: []domain.SensorPath{}}
	seen := map[domain.SensorPath]bool{}
	for _, m := range ms {
		if !seen[m.SensorPath] {
			seen[m.SensorPath] = true
			out.SensorPaths = append(out.SensorPaths, m.SensorPath)
		}
		if out.TimeRange == nil {
			out.TimeRange = &timeRange{Earliest: m.ObservedAt, Latest: m.ObservedAt}
			continue
		}
		if m.ObservedAt.Before(out.TimeRange.Earliest) {
			out.TimeRange.Earliest = m.ObservedAt
		}
		if m.ObservedAt.After(out.TimeRange.Latest) {
			out.TimeRange.Latest = m.ObservedAt
		}
	}
	writeJSON(w, out)
}

// listLimit parses the limit query parameter, clamped so one request cannot
// ask the store for an unbounded allocation.
func listLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
