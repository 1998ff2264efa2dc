// Package notification defines how lifecycle events reach people. Sends are
// durable: a dispatch writes an outbox row first and delivery happens
// asynchronously with bounded retries.
package notification

import (
	"context"

	"github.com/google/uuid"
)

// Template names for outbound messages.
const (
	TemplateOfferDispatched = "offer_dispatched"
	TemplateOfferReminder   = "offer_reminder"
	TemplateOfferEscalation = "offer_escalation"
	TemplateWeatherAlert    = "weather_alert"
)

// Recipient is a resolved delivery target.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Notification is one message to be delivered.
type Notification struct {
	Template  string
	Recipient Recipient
	OfferID   *uuid.UUID
	Payload   map[string]any
}

// Dispatcher accepts a notification for asynchronous delivery. A nil error
// means the message is durably queued, not that it was delivered.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// Enqueuer schedules delivery of a queued outbox message.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, messageID uuid.UUID) error
}

// FailureRecorder is notified when delivery of a message has permanently
// failed, after all retries were exhausted.
type FailureRecorder interface {
	RecordNotificationFailure(ctx context.Context, offerID uuid.UUID, template string, reason string) error
}
