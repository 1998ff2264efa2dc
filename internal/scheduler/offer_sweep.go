package scheduler

import (
	"context"
	"time"

	offerservice "inspect_portal_backend/internal/offers/service"
	"inspect_portal_backend/platform/logger"
)

const defaultOfferSweepInterval = 15 * time.Minute

// OfferSweepRunner drives the temporal offer evaluation on a fixed interval.
// One pass runs immediately on startup so a restarted scheduler does not
// wait a full interval before catching up.
type OfferSweepRunner struct {
	svc      *offerservice.Service
	log      *logger.Logger
	interval time.Duration
}

func NewOfferSweepRunner(svc *offerservice.Service, log *logger.Logger, interval time.Duration) *OfferSweepRunner {
	if interval <= 0 {
		interval = defaultOfferSweepInterval
	}
	return &OfferSweepRunner{svc: svc, log: log, interval: interval}
}

func (r *OfferSweepRunner) Run(ctx context.Context) {
	if r == nil || r.svc == nil {
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

func (r *OfferSweepRunner) sweep(ctx context.Context) {
	if _, err := r.svc.EvaluateAll(ctx); err != nil {
		r.log.Warn("offer sweep failed", "error", err)
	}
}
