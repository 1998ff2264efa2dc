package transport

import (
	"time"

	"inspect_portal_backend/internal/appointments/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// ScheduleRequest is the request body for booking an appointment.
type ScheduleRequest struct {
	InspectorID uuid.UUID  `json:"inspectorId" validate:"required"`
	CustomerID  uuid.UUID  `json:"customerId" validate:"required"`
	OfferID     *uuid.UUID `json:"offerId"`
	Start       time.Time  `json:"start" validate:"required"`
	End         time.Time  `json:"end" validate:"required"`
	Location    string     `json:"location" validate:"omitempty,max=500"`
}

// CheckSlotRequest previews a candidate slot without booking it. ExcludeID
// lets an edit form check a new slot against the rest of the calendar.
type CheckSlotRequest struct {
	InspectorID uuid.UUID  `json:"inspectorId" validate:"required"`
	Start       time.Time  `json:"start" validate:"required"`
	End         time.Time  `json:"end" validate:"required"`
	ExcludeID   *uuid.UUID `json:"excludeId"`
}

// RescheduleRequest moves an existing appointment to a new slot.
type RescheduleRequest struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// AppointmentResponse is the API shape of an appointment.
type AppointmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	BranchID    uuid.UUID  `json:"branchId"`
	InspectorID uuid.UUID  `json:"inspectorId"`
	CustomerID  uuid.UUID  `json:"customerId"`
	OfferID     *uuid.UUID `json:"offerId,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Status      string     `json:"status"`
	Location    string     `json:"location,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ConflictResponse is one overlapping appointment.
type ConflictResponse struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

// GapWarningResponse is one tight-gap neighbor.
type GapWarningResponse struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	GapMinutes    int       `json:"gapMinutes"`
}

// ScheduleResponse is a booked appointment plus its planner advisories.
type ScheduleResponse struct {
	Appointment AppointmentResponse  `json:"appointment"`
	Conflicts   []ConflictResponse   `json:"conflicts"`
	GapWarnings []GapWarningResponse `json:"gapWarnings"`
}

// SlotCheckResponse is the preview result for a candidate slot.
type SlotCheckResponse struct {
	Conflicts   []ConflictResponse   `json:"conflicts"`
	GapWarnings []GapWarningResponse `json:"gapWarnings"`
}

// FromAppointment maps a stored appointment to its API shape.
func FromAppointment(a domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		BranchID:    a.BranchID,
		InspectorID: a.InspectorID,
		CustomerID:  a.CustomerID,
		OfferID:     a.OfferID,
		Start:       a.Start,
		End:         a.End,
		Status:      string(a.Status),
		Location:    a.Location,
		CreatedAt:   a.CreatedAt,
	}
}

// FromAppointments maps a slice of stored appointments.
func FromAppointments(appts []domain.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, FromAppointment(a))
	}
	return out
}

// FromConflicts maps conflict advisories.
func FromConflicts(conflicts []domain.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, ConflictResponse{AppointmentID: c.AppointmentID, Start: c.Start, End: c.End})
	}
	return out
}

// FromGapWarnings maps gap advisories.
func FromGapWarnings(warnings []domain.GapWarning) []GapWarningResponse {
	out := make([]GapWarningResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, GapWarningResponse{AppointmentID: w.AppointmentID, GapMinutes: int(w.Gap.Minutes())})
	}
	return out
}
