// Package domain holds the appointment model and the pure scheduling rules:
// overlap detection and travel-gap warnings.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether the appointment still occupies its time slot.
// Completed, cancelled and no-show appointments free the slot.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// CanTransition reports whether an appointment may move from s to next.
// Cancellation is a status change, never a delete, so the audit trail stays.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusInProgress || next == StatusCompleted ||
			next == StatusCancelled || next == StatusNoShow
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// Appointment is a booked inspection visit. The interval is half-open:
// [Start, End), so back-to-back bookings do not overlap.
type Appointment struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	InspectorID uuid.UUID
	CustomerID  uuid.UUID
	OfferID     *uuid.UUID
	Start       time.Time
	End         time.Time
	Status      Status
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
