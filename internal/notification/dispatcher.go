package notification

import (
	"context"
	"fmt"

	"inspect_portal_backend/internal/notification/outbox"
	"inspect_portal_backend/platform/logger"
)

// OutboxDispatcher persists every notification to the outbox before handing
// it to the delivery queue. If enqueueing fails the row stays pending and the
// scheduler's dispatch loop picks it up later, so an accepted Send survives a
// queue outage.
type OutboxDispatcher struct {
	outbox   *outbox.Repository
	enqueuer Enqueuer
	log      *logger.Logger
}

func NewOutboxDispatcher(repo *outbox.Repository, enqueuer Enqueuer, log *logger.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{outbox: repo, enqueuer: enqueuer, log: log}
}

func (d *OutboxDispatcher) Send(ctx context.Context, n Notification) error {
	status := outbox.StatusEnqueued
	if d.enqueuer == nil {
		status = outbox.StatusPending
	}

	id, err := d.outbox.Insert(ctx, outbox.InsertParams{
		Template:       n.Template,
		RecipientName:  n.Recipient.Name,
		RecipientEmail: n.Recipient.Email,
		RecipientPhone: n.Recipient.Phone,
		OfferID:        n.OfferID,
		Payload:        n.Payload,
		Status:         status,
	})
	if err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}

	if d.enqueuer == nil {
		d.log.Debug("delivery queue not configured; notification left for dispatch loop",
			"message_id", id, "template", n.Template)
		return nil
	}

	if err := d.enqueuer.EnqueueNotification(ctx, id); err != nil {
		// The row is durable; fall back to the dispatch loop.
		msg := err.Error()
		if markErr := d.outbox.MarkPending(ctx, id, &msg); markErr != nil {
			d.log.Error("failed to return outbox message to pending",
				"message_id", id, "error", markErr)
		}
		d.log.Warn("notification enqueue deferred to dispatch loop",
			"message_id", id, "template", n.Template, "error", err)
	}

	return nil
}
