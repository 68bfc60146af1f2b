// Package alerting holds the per-sensor health alert state machine.
package alerting

import (
	"sync"
	"time"

	"github.com/hamed0406/airqmon/internal/domain"
)

type Config struct {
	Threshold      float64       // health index at/below this is a breach
	MinConsecutive int           // breaches in a row before a raise
	Cooldown       time.Duration // minimum gap between two raises per sensor
}

// state is the per-sensor record. Lives in memory only; a restart resets it,
// which is why the cooldown gate also checks the last send time.
type state struct {
	consecutive int
	alerting    bool
	lastSentAt  time.Time // zero = never sent
}

// Engine owns all alert state, keyed by sensor path, behind one mutex.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	states map[domain.SensorPath]*state
}

func NewEngine(cfg Config) *Engine {
	if cfg.MinConsecutive < 1 {
		cfg.MinConsecutive = 1
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	return &Engine{
		cfg:    cfg,
		states: make(map[domain.SensorPath]*state),
	}
}

// Evaluate feeds one health index sample into the machine and returns the
// resulting event, if any. A nil health (metric absent) never changes state:
// missing data is not a breach.
//
// A Raised event fires on exactly the MinConsecutive-th unbroken breach,
// provided no alert is active and the cooldown since the previous send has
// elapsed. Recovery emits exactly one Cleared per alert episode.
func (e *Engine) Evaluate(path domain.SensorPath, health *float64, now time.Time) *domain.AlertEvent {
	if health == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.states[path]
	if st == nil {
		st = &state{}
		e.states[path] = st
	}

	h := *health
	if h <= e.cfg.Threshold {
		st.consecutive++
		cooled := st.lastSentAt.IsZero() || now.Sub(st.lastSentAt) >= e.cfg.Cooldown
		if st.consecutive == e.cfg.MinConsecutive && !st.alerting && cooled {
			st.alerting = true
			st.lastSentAt = now
			return &domain.AlertEvent{
				Kind:        domain.AlertRaised,
				SensorPath:  path,
				HealthIndex: h,
				Threshold:   e.cfg.Threshold,
				Consecutive: st.consecutive,
				At:          now,
			}
		}
		return nil
	}

	st.consecutive = 0
	if st.alerting {
		st.alerting = false
		return &domain.AlertEvent{
			Kind:        domain.AlertCleared,
			SensorPath:  path,
			HealthIndex: h,
			Threshold:   e.cfg.Threshold,
			At:          now,
		}
	}
	return nil
}

// StateView is a read-only snapshot of one sensor's alert state.
type StateView struct {
	ConsecutiveBreaches int        `json:"consecutive_breaches"`
	Alerting            bool       `json:"is_alerting"`
	LastAlertSentAt     *time.Time `json:"last_alert_sent_at,omitempty"`
}

// Snapshot copies the current state of every known sensor.
func (e *Engine) Snapshot() map[domain.SensorPath]StateView {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[domain.SensorPath]StateView, len(e.states))
	for path, st := range e.states {
		v := StateView{
			ConsecutiveBreaches: st.consecutive,
			Alerting:            st.alerting,
		}
		if !st.lastSentAt.IsZero() {
			t := st.lastSentAt
			v.LastAlertSentAt = &t
		}
		out[path] = v
	}
	return out
}
