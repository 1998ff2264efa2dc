// Package service implements the weather alert evaluator: inspectors working
// a region under an active alert get notified, at most once per cooldown
// window unless conditions turn severe.
package service

import (
	"context"
	"time"

	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/weather/repository"
	"inspect_portal_backend/platform/config"
	"inspect_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Alert severities, mildest first. SeveritySevere bypasses the cooldown.
const (
	SeverityAdvisory = "advisory"
	SeverityWarning  = "warning"
	SeveritySevere   = "severe"
)

// Alert is one active weather condition for a region.
type Alert struct {
	Region     string
	Severity   string
	Headline   string
	ObservedAt time.Time
}

// ConditionSource supplies the currently active weather alerts.
type ConditionSource interface {
	CurrentAlerts(ctx context.Context) ([]Alert, error)
}

// NoopSource is a ConditionSource that never reports alerts. Used when no
// weather provider is configured.
type NoopSource struct{}

func (NoopSource) CurrentAlerts(context.Context) ([]Alert, error) { return nil, nil }

// WeatherStore is the persistence surface the evaluator needs.
type WeatherStore interface {
	GetState(ctx context.Context, inspectorID uuid.UUID) (*repository.AlertState, error)
	MarkAlerted(ctx context.Context, inspectorID uuid.UUID, at time.Time, severity string) error
	InspectorsInRegion(ctx context.Context, region string) ([]repository.Inspector, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Summary reports what one weather pass did.
type Summary struct {
	Alerts     int
	Notified   int
	Suppressed int
	Failed     int
}

// Evaluator pushes weather alerts to affected inspectors.
type Evaluator struct {
	store      WeatherStore
	source     ConditionSource
	dispatcher notification.Dispatcher
	cfg        config.WeatherConfig
	log        *logger.Logger
	clock      Clock
}

func NewEvaluator(store WeatherStore, source ConditionSource, dispatcher notification.Dispatcher, cfg config.WeatherConfig, log *logger.Logger) *Evaluator {
	return &Evaluator{
		store:      store,
		source:     source,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
		clock:      realClock{},
	}
}

// WithClock replaces the evaluator clock. Test hook.
func (e *Evaluator) WithClock(c Clock) *Evaluator {
	e.clock = c
	return e
}

// EvaluateAll fetches the active alerts and notifies every inspector in an
// affected region, honoring the per-inspector cooldown. Severe alerts always
// go out. The state row is written before the notification is queued, so a
// crashed pass cannot double-notify.
func (e *Evaluator) EvaluateAll(ctx context.Context) (Summary, error) {
	alerts, err := e.source.CurrentAlerts(ctx)
	if err != nil {
		return Summary{}, err
	}

	now := e.clock.Now()
	summary := Summary{Alerts: len(alerts)}

	for _, alert := range alerts {
		inspectors, err := e.store.InspectorsInRegion(ctx, alert.Region)
		if err != nil {
			e.log.Error("failed to resolve inspectors for weather alert",
				"region", alert.Region, "error", err)
			summary.Failed++
			continue
		}

		for _, insp := range inspectors {
			notified, err := e.notifyInspector(ctx, insp, alert, now)
			switch {
			case err != nil:
				e.log.Error("weather notification failed",
					"inspector_id", insp.ID, "region", alert.Region, "error", err)
				summary.Failed++
			case notified:
				summary.Notified++
			default:
				summary.Suppressed++
			}
		}
	}

	e.log.Info("weather evaluation complete",
		"alerts", summary.Alerts, "notified", summary.Notified,
		"suppressed", summary.Suppressed, "failed", summary.Failed)

	return summary, nil
}

func (e *Evaluator) notifyInspector(ctx context.Context, insp repository.Inspector, alert Alert, now time.Time) (bool, error) {
	state, err := e.store.GetState(ctx, insp.ID)
	if err != nil {
		return false, err
	}

	if state != nil && alert.Severity != SeveritySevere {
		if now.Sub(state.LastAlertedAt) < e.cfg.GetWeatherAlertCooldown() {
			return false, nil
		}
	}

	if err := e.store.MarkAlerted(ctx, insp.ID, now, alert.Severity); err != nil {
		return false, err
	}

	err = e.dispatcher.Send(ctx, notification.Notification{
		Template: notification.TemplateWeatherAlert,
		Recipient: notification.Recipient{
			Name:  insp.Name,
			Email: insp.Email,
			Phone: insp.Phone,
		},
		Payload: map[string]any{
			"region":   alert.Region,
			"severity": alert.Severity,
			"headline": alert.Headline,
		},
	})
	if err != nil {
		return false, err
	}

	return true, nil
}
