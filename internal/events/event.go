package events

import (
	"time"

	"github.com/google/uuid"
)

// Event names for offer lifecycle events.
const (
	EventOfferDispatched   = "offers.dispatched"
	EventOfferAccepted     = "offers.accepted"
	EventOfferRejected     = "offers.rejected"
	EventOfferEscalated    = "offers.escalated"
	EventOfferExpired      = "offers.expired"
	EventOfferReminderSent = "offers.reminder_sent"

	EventAppointmentScheduled = "appointments.scheduled"
	EventAppointmentCancelled = "appointments.cancelled"
)

// OfferDispatched fires when an offer is sent to the customer and enters the
// automated lifecycle.
type OfferDispatched struct {
	BaseEvent
	OfferID     uuid.UUID
	BranchID    uuid.UUID
	InspectorID uuid.UUID
	CustomerID  uuid.UUID
	TotalCents  int64
	ValidUntil  time.Time
}

func (OfferDispatched) EventName() string { return EventOfferDispatched }

// OfferAccepted fires when the customer accepts an offer.
type OfferAccepted struct {
	BaseEvent
	OfferID     uuid.UUID
	BranchID    uuid.UUID
	InspectorID uuid.UUID
	CustomerID  uuid.UUID
	TotalCents  int64
}

func (OfferAccepted) EventName() string { return EventOfferAccepted }

// OfferRejected fires when the customer rejects an offer.
type OfferRejected struct {
	BaseEvent
	OfferID     uuid.UUID
	BranchID    uuid.UUID
	InspectorID uuid.UUID
	CustomerID  uuid.UUID
	Reason      string
}

func (OfferRejected) EventName() string { return EventOfferRejected }

// OfferEscalated fires when the evaluator escalates an unanswered offer to the
// branch admin.
type OfferEscalated struct {
	BaseEvent
	OfferID     uuid.UUID
	BranchID    uuid.UUID
	InspectorID uuid.UUID
	DaysOpen    int
}

func (OfferEscalated) EventName() string { return EventOfferEscalated }

// OfferExpired fires when an offer passes its validity window.
type OfferExpired struct {
	BaseEvent
	OfferID  uuid.UUID
	BranchID uuid.UUID
}

func (OfferExpired) EventName() string { return EventOfferExpired }

// OfferReminderSent fires when the evaluator sends a follow-up reminder to the
// assigned inspector.
type OfferReminderSent struct {
	BaseEvent
	OfferID     uuid.UUID
	InspectorID uuid.UUID
	Attempt     int
}

func (OfferReminderSent) EventName() string { return EventOfferReminderSent }

// AppointmentScheduled fires when a new appointment is booked.
type AppointmentScheduled struct {
	BaseEvent
	AppointmentID uuid.UUID
	ResourceID    uuid.UUID
	StartTime     time.Time
	Conflicts     int
}

func (AppointmentScheduled) EventName() string { return EventAppointmentScheduled }

// AppointmentCancelled fires when an appointment is cancelled.
type AppointmentCancelled struct {
	BaseEvent
	AppointmentID uuid.UUID
	ResourceID    uuid.UUID
}

func (AppointmentCancelled) EventName() string { return EventAppointmentCancelled }
