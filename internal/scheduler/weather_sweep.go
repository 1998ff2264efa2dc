package scheduler

import (
	"context"
	"time"

	weatherservice "inspect_portal_backend/internal/weather/service"
	"inspect_portal_backend/platform/logger"
)

const defaultWeatherSweepInterval = time.Hour

// WeatherSweepRunner drives weather alert evaluation on a fixed interval.
type WeatherSweepRunner struct {
	eval     *weatherservice.Evaluator
	log      *logger.Logger
	interval time.Duration
}

func NewWeatherSweepRunner(eval *weatherservice.Evaluator, log *logger.Logger, interval time.Duration) *WeatherSweepRunner {
	if interval <= 0 {
		interval = defaultWeatherSweepInterval
	}
	return &WeatherSweepRunner{eval: eval, log: log, interval: interval}
}

func (r *WeatherSweepRunner) Run(ctx context.Context) {
	if r == nil || r.eval == nil {
		return
	}

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *WeatherSweepRunner) sweep(ctx context.Context) {
	if _, err := r.eval.EvaluateAll(ctx); err != nil {
		r.log.Warn("weather sweep failed", "error", err)
	}
}
