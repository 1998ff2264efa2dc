// Package service implements appointment scheduling with informational
// conflict detection. Overlaps never block a booking; the planner sees them
// in the response and decides.
package service

import (
	"context"
	"time"

	"inspect_portal_backend/internal/appointments/domain"
	"inspect_portal_backend/internal/events"
	"inspect_portal_backend/platform/apperr"
	"inspect_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// conflictWindow bounds how far around a candidate slot existing
// appointments are loaded for conflict detection.
const conflictWindow = 24 * time.Hour

// AppointmentStore is the persistence surface the service needs.
type AppointmentStore interface {
	Create(ctx context.Context, a domain.Appointment) (domain.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListByInspectorBetween(ctx context.Context, inspectorID uuid.UUID, from, to time.Time) ([]domain.Appointment, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error)
	UpdateInterval(ctx context.Context, id uuid.UUID, start, end time.Time) (domain.Appointment, error)
}

// Service coordinates appointment operations.
type Service struct {
	store AppointmentStore
	bus   events.Bus
	log   *logger.Logger
}

func NewService(store AppointmentStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// ScheduleParams are the inputs for booking a visit.
type ScheduleParams struct {
	BranchID    uuid.UUID
	InspectorID uuid.UUID
	CustomerID  uuid.UUID
	OfferID     *uuid.UUID
	Start       time.Time
	End         time.Time
	Location    string
}

// ScheduleResult is the booked appointment plus everything the planner
// should know about it.
type ScheduleResult struct {
	Appointment domain.Appointment
	Conflicts   []domain.Conflict
	GapWarnings []domain.GapWarning
}

// Schedule books the slot and reports conflicts and tight gaps against the
// inspector's surrounding calendar. A double booking succeeds; the response
// carries the overlaps.
func (s *Service) Schedule(ctx context.Context, params ScheduleParams) (ScheduleResult, error) {
	if !params.End.After(params.Start) {
		return ScheduleResult{}, apperr.Validation("appointment end must be after start")
	}

	neighbors, err := s.store.ListByInspectorBetween(ctx,
		params.InspectorID,
		params.Start.Add(-conflictWindow),
		params.End.Add(conflictWindow),
	)
	if err != nil {
		return ScheduleResult{}, err
	}

	conflicts := domain.FindConflicts(neighbors, params.Start, params.End, uuid.Nil)
	warnings := domain.GapWarnings(neighbors, params.Start, params.End, uuid.Nil)

	appt, err := s.store.Create(ctx, domain.Appointment{
		BranchID:    params.BranchID,
		InspectorID: params.InspectorID,
		CustomerID:  params.CustomerID,
		OfferID:     params.OfferID,
		Start:       params.Start,
		End:         params.End,
		Location:    params.Location,
	})
	if err != nil {
		return ScheduleResult{}, err
	}

	if len(conflicts) > 0 {
		s.log.Warn("appointment booked with conflicts",
			"appointment_id", appt.ID, "inspector_id", appt.InspectorID, "conflicts", len(conflicts))
	}

	s.bus.Publish(ctx, events.AppointmentScheduled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		ResourceID:    appt.InspectorID,
		StartTime:     appt.Start,
		Conflicts:     len(conflicts),
	})

	return ScheduleResult{Appointment: appt, Conflicts: conflicts, GapWarnings: warnings}, nil
}

// CheckSlot previews conflicts and gap warnings for a candidate slot without
// booking anything. excludeID drops one appointment from consideration so an
// edit can be checked against the rest of the calendar; uuid.Nil for none.
func (s *Service) CheckSlot(ctx context.Context, inspectorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Conflict, []domain.GapWarning, error) {
	if !end.After(start) {
		return nil, nil, apperr.Validation("slot end must be after start")
	}

	neighbors, err := s.store.ListByInspectorBetween(ctx, inspectorID,
		start.Add(-conflictWindow), end.Add(conflictWindow))
	if err != nil {
		return nil, nil, err
	}

	return domain.FindConflicts(neighbors, start, end, excludeID),
		domain.GapWarnings(neighbors, start, end, excludeID), nil
}

// Reschedule moves an active appointment to a new slot. Like Schedule, the
// move always succeeds; conflicts against the rest of the inspector's
// calendar are reported, with the appointment itself excluded.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (ScheduleResult, error) {
	if !end.After(start) {
		return ScheduleResult{}, apperr.Validation("appointment end must be after start")
	}

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return ScheduleResult{}, err
	}
	if !appt.Status.Active() {
		return ScheduleResult{}, apperr.Validation("only active appointments can be rescheduled")
	}

	conflicts, warnings, err := s.CheckSlot(ctx, appt.InspectorID, start, end, appt.ID)
	if err != nil {
		return ScheduleResult{}, err
	}

	moved, err := s.store.UpdateInterval(ctx, id, start, end)
	if err != nil {
		return ScheduleResult{}, err
	}

	if len(conflicts) > 0 {
		s.log.Warn("appointment rescheduled with conflicts",
			"appointment_id", moved.ID, "inspector_id", moved.InspectorID, "conflicts", len(conflicts))
	}

	return ScheduleResult{Appointment: moved, Conflicts: conflicts, GapWarnings: warnings}, nil
}

// Start marks the inspector as on site.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusInProgress)
}

// Complete marks a visit as done.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusCompleted)
}

// NoShow records that the customer was not present.
func (s *Service) NoShow(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusNoShow)
}

// Cancel frees the slot. Cancellation keeps the record for the audit trail.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	cancelled, err := s.transition(ctx, id, domain.StatusCancelled)
	if err != nil {
		return domain.Appointment{}, err
	}

	s.bus.Publish(ctx, events.AppointmentCancelled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: cancelled.ID,
		ResourceID:    cancelled.InspectorID,
	})

	return cancelled, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next domain.Status) (domain.Appointment, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !appt.Status.CanTransition(next) {
		return domain.Appointment{}, apperr.Validation(
			"appointment cannot move from " + string(appt.Status) + " to " + string(next))
	}

	return s.store.UpdateStatus(ctx, id, next)
}

// Get returns a single appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// List returns a branch's appointments.
func (s *Service) List(ctx context.Context, branchID uuid.UUID) ([]domain.Appointment, error) {
	return s.store.ListByBranch(ctx, branchID)
}
