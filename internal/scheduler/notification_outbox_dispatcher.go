package scheduler

import (
	"context"
	"time"

	"inspect_portal_backend/internal/notification/outbox"
	"inspect_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const outboxPollInterval = 2 * time.Second

// NotificationOutboxDispatcher moves due pending outbox rows onto the
// delivery queue. It is the safety net behind the direct enqueue path: rows
// whose enqueue failed, or that were inserted while Redis was down, get
// picked up here.
type NotificationOutboxDispatcher struct {
	client *Client
	repo   *outbox.Repository
	log    *logger.Logger
}

func NewNotificationOutboxDispatcher(client *Client, pool *pgxpool.Pool, log *logger.Logger) *NotificationOutboxDispatcher {
	return &NotificationOutboxDispatcher{
		client: client,
		repo:   outbox.New(pool),
		log:    log,
	}
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		records, err := d.repo.ClaimPending(ctx, 50)
		if err != nil {
			d.log.Warn("outbox claim failed", "error", err)
			continue
		}

		for _, rec := range records {
			if err := d.client.EnqueueNotification(ctx, rec.ID); err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			}
		}
	}
}
