package notify

import (
	"context"
	"fmt"

	"github.com/hamed0406/airqmon/internal/domain"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, title, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FormatAlertEvent renders an alert event as a human-readable message.
func FormatAlertEvent(ev *domain.AlertEvent) (title, text string) {
	switch ev.Kind {
	case domain.AlertCleared:
		title = "✅ Air quality recovered"
		text = fmt.Sprintf(
			"Sensor: %s\nHealth index: %.0f/1000\nThreshold: %.0f\n\nThe air quality is back to normal.",
			ev.SensorPath, ev.HealthIndex, ev.Threshold,
		)
	default:
		title = "🚨 Air quality alert"
		text = fmt.Sprintf(
			"Sensor: %s\nHealth index: %.0f/1000\nThreshold: %.0f\nConsecutive breaches: %d\n\nThe air quality dropped below the critical level.",
			ev.SensorPath, ev.HealthIndex, ev.Threshold, ev.Consecutive,
		)
	}
	return title, text
}
