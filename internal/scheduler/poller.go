// Package scheduler drives the acquisition pipeline: every tick it fans out
// over the configured sensors, fetches and decrypts their payloads, persists
// the measurements and feeds the alert engine.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/airqmon/internal/airq"
	"github.com/hamed0406/airqmon/internal/alerting"
	"github.com/hamed0406/airqmon/internal/domain"
	"github.com/hamed0406/airqmon/internal/notify"
	"github.com/hamed0406/airqmon/internal/repo"
)

// Fetcher grabs the encrypted document from one device.
type Fetcher interface {
	Fetch(ctx context.Context, ep domain.SensorEndpoint) (*domain.RawResponse, error)
}

// Decoder turns one encrypted payload into a measurement.
type Decoder interface {
	DecodeMeasurement(path domain.SensorPath, msgb64 string, fetchedAt time.Time) (*domain.Measurement, error)
}

// Recorder is the metrics sink as the poller sees it.
type Recorder interface {
	ObserveMeasurement(m *domain.Measurement)
	ObserveFetchLatency(path domain.SensorPath, ms float64)
	IncProcessed(path domain.SensorPath)
	IncFailure(path domain.SensorPath, reason string)
	IncSkipped(path domain.SensorPath)
	IncHealthMissing(path domain.SensorPath)
	IncAlert(kind string)
}

// Sensor pairs an endpoint with the decoder holding its secret.
type Sensor struct {
	Endpoint domain.SensorEndpoint
	Decoder  Decoder
}

type Poller struct {
	Logger       *zap.Logger
	Fetcher      Fetcher
	Store        repo.MeasurementStore
	Alerts       *alerting.Engine
	Notifier     notify.Notifier
	Metrics      Recorder
	Sensors      []Sensor
	Interval     time.Duration
	FetchTimeout time.Duration
	StoreTimeout time.Duration
	Concurrency  int

	// busy holds one token per sensor; a tick that cannot take the token
	// skips that sensor instead of queueing behind the outstanding poll.
	busy map[domain.SensorPath]chan struct{}
	// sem bounds total in-flight pipelines across ticks; wg tracks them so
	// shutdown can drain.
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewPoller(
	logger *zap.Logger,
	fetcher Fetcher,
	store repo.MeasurementStore,
	alerts *alerting.Engine,
	notifier notify.Notifier,
	metrics Recorder,
	sensors []Sensor,
	interval time.Duration,
	fetchTimeout time.Duration,
	storeTimeout time.Duration,
	concurrency int,
) *Poller {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 3 * time.Second
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	if concurrency < 1 {
		concurrency = 1
	}
	busy := make(map[domain.SensorPath]chan struct{}, len(sensors))
	for _, s := range sensors {
		ch := make(chan struct{}, 1)
		ch <- struct{}{}
		busy[s.Endpoint.Path] = ch
	}
	return &Poller{
		Logger:       logger,
		Fetcher:      fetcher,
		Store:        store,
		Alerts:       alerts,
		Notifier:     notifier,
		Metrics:      metrics,
		Sensors:      sensors,
		Interval:     interval,
		FetchTimeout: fetchTimeout,
		StoreTimeout: storeTimeout,
		Concurrency:  concurrency,
		busy:         busy,
		sem:          make(chan struct{}, concurrency),
	}
}

// Run starts the loop. It does an immediate pass, then one per tick, until
// ctx is cancelled. In-flight polls finish (bounded by their timeouts)
// before Run returns.
func (p *Poller) Run(ctx context.Context) {
	p.Logger.Info("poller_started",
		zap.Int("sensors", len(p.Sensors)),
		zap.Duration("interval", p.Interval),
	)

	t := time.NewTicker(p.Interval)
	defer t.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.Logger.Info("poller_stopped")
			return
		case <-t.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce launches one tick and returns without waiting for it: each sensor
// gets its own goroutine, so a slow or dead device never delays the others
// or the next tick. A sensor whose previous poll is still in flight is
// skipped, not queued.
func (p *Poller) runOnce(ctx context.Context) {
	for _, sensor := range p.Sensors {
		s := sensor
		token := p.busy[s.Endpoint.Path]

		select {
		case <-token:
		default:
			// previous poll for this sensor is still in flight
			p.Metrics.IncSkipped(s.Endpoint.Path)
			p.Logger.Debug("poll_tick_skipped", zap.String("sensor_path", string(s.Endpoint.Path)))
			continue
		}

		p.wg.Add(1)
		go func() {
			defer func() {
				token <- struct{}{}
				p.wg.Done()
			}()
			p.sem <- struct{}{}
			defer func() { <-p.sem }()
			p.pollSensor(ctx, s)
		}()
	}
}

// pollSensor runs the full per-sensor pipeline for one tick. Every error is
// converted into "skip this sensor this tick"; the next tick is the retry.
func (p *Poller) pollSensor(ctx context.Context, s Sensor) {
	path := s.Endpoint.Path

	fctx, cancel := context.WithTimeout(ctx, p.FetchTimeout)
	raw, err := p.Fetcher.Fetch(fctx, s.Endpoint)
	cancel()
	if err != nil {
		p.Metrics.IncFailure(path, failureReason(err))
		p.Logger.Warn("poll_fetch_error",
			zap.String("sensor_path", string(path)),
			zap.Error(err),
		)
		return
	}

	m, err := s.Decoder.DecodeMeasurement(path, raw.Content, raw.FetchedAt)
	if err != nil {
		p.Metrics.IncFailure(path, failureReason(err))
		p.Logger.Warn("poll_decrypt_error",
			zap.String("sensor_path", string(path)),
			zap.Error(err),
		)
		return
	}

	// Persistence and alerting are independent consumers of the same
	// measurement: a store failure must not suppress alert evaluation.
	sctx, cancel := context.WithTimeout(ctx, p.StoreTimeout)
	if err := p.Store.Append(sctx, m); err != nil {
		p.Metrics.IncFailure(path, "store")
		p.Logger.Warn("poll_store_error",
			zap.String("sensor_path", string(path)),
			zap.Error(err),
		)
	}
	cancel()

	p.evaluateAlert(ctx, m)

	p.Metrics.ObserveMeasurement(m)
	p.Metrics.ObserveFetchLatency(path, raw.LatencyMS)
	p.Metrics.IncProcessed(path)

	p.Logger.Debug("poll_sensor_ok",
		zap.String("sensor_path", string(path)),
		zap.Float64("latency_ms", raw.LatencyMS),
		zap.Time("observed_at", m.ObservedAt),
	)
}

func (p *Poller) evaluateAlert(ctx context.Context, m *domain.Measurement) {
	var health *float64
	if v, ok := m.Value(domain.MetricHealth); ok {
		health = &v
	} else {
		p.Metrics.IncHealthMissing(m.SensorPath)
	}

	ev := p.Alerts.Evaluate(m.SensorPath, health, time.Now().UTC())
	if ev == nil {
		return
	}

	p.Metrics.IncAlert(string(ev.Kind))
	p.Logger.Info("alert_event",
		zap.String("kind", string(ev.Kind)),
		zap.String("sensor_path", string(ev.SensorPath)),
		zap.Float64("health_index", ev.HealthIndex),
		zap.Float64("threshold", ev.Threshold),
		zap.Int("consecutive", ev.Consecutive),
	)

	title, text := notify.FormatAlertEvent(ev)
	if err := p.Notifier.Send(ctx, title, text); err != nil {
		// best effort: never retried synchronously, never fatal
		p.Logger.Warn("alert_notify_error",
			zap.String("sensor_path", string(ev.SensorPath)),
			zap.Error(err),
		)
	}
}

// failureReason labels an error for the failure counter.
func failureReason(err error) string {
	var fe *airq.FetchError
	if errors.As(err, &fe) {
		return "fetch_" + string(fe.Kind)
	}
	var de *airq.DecryptError
	if errors.As(err, &de) {
		return "decrypt_" + string(de.Reason)
	}
	return "unknown"
}
