// Package service implements the offer lifecycle: creation, dispatch, manual
// accept/reject, validity extension, and the temporal evaluation that expires,
// escalates, and reminds on open offers.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inspect_portal_backend/internal/events"
	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/offers/domain"
	"inspect_portal_backend/internal/offers/repository"
	"inspect_portal_backend/platform/apperr"
	"inspect_portal_backend/platform/config"
	"inspect_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// OfferStore is the persistence surface the service needs. Satisfied by
// *repository.Repository.
type OfferStore interface {
	Create(ctx context.Context, offer repository.Offer) (repository.Offer, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Offer, error)
	GetOpenOffers(ctx context.Context) ([]repository.Offer, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]repository.Offer, error)
	SaveTransition(ctx context.Context, offerID uuid.UUID, expectedVersion int64, update repository.TransitionUpdate) (repository.Offer, error)
	SaveReminderState(ctx context.Context, offerID uuid.UUID, expectedVersion int64, attempts int, lastNotifiedAt time.Time) (repository.Offer, error)
	AppendHistory(ctx context.Context, entry repository.HistoryEntry) error
	ListHistory(ctx context.Context, offerID uuid.UUID) ([]repository.HistoryEntry, error)
	InspectorRecipient(ctx context.Context, inspectorID uuid.UUID) (repository.Recipient, error)
	CustomerRecipient(ctx context.Context, customerID uuid.UUID) (repository.Recipient, error)
	BranchAdminRecipient(ctx context.Context, branchID uuid.UUID) (repository.Recipient, error)
}

// Clock abstracts time for the evaluator tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Service coordinates offer lifecycle operations.
type Service struct {
	store      OfferStore
	dispatcher notification.Dispatcher
	bus        events.Bus
	cfg        config.OfferAutomationConfig
	log        *logger.Logger
	clock      Clock
}

func NewService(store OfferStore, dispatcher notification.Dispatcher, bus events.Bus, cfg config.OfferAutomationConfig, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		bus:        bus,
		cfg:        cfg,
		log:        log,
		clock:      realClock{},
	}
}

// WithClock replaces the service clock. Test hook.
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

// CreateParams are the inputs for a new offer. Cost inputs are in cents;
// overhead and profit are derived via Quote.
type CreateParams struct {
	BranchID      uuid.UUID
	CustomerID    uuid.UUID
	InspectorID   uuid.UUID
	LaborCents    int64
	MaterialCents int64
	TravelCents   int64
	ValidityDays  int
}

// Create stores a new pending offer with its price breakdown. The offer is
// invisible to the evaluator until dispatched.
func (s *Service) Create(ctx context.Context, params CreateParams) (repository.Offer, error) {
	if params.LaborCents < 0 || params.MaterialCents < 0 || params.TravelCents < 0 {
		return repository.Offer{}, apperr.Validation("cost components must not be negative")
	}

	validityDays := params.ValidityDays
	if validityDays <= 0 {
		validityDays = int(s.cfg.GetExpireAfter().Hours() / 24)
	}

	breakdown := Quote(params.LaborCents, params.MaterialCents, params.TravelCents)

	offer, err := s.store.Create(ctx, repository.Offer{
		BranchID:      params.BranchID,
		CustomerID:    params.CustomerID,
		InspectorID:   params.InspectorID,
		ValidUntil:    s.clock.Now().AddDate(0, 0, validityDays),
		LaborCents:    breakdown.LaborCents,
		MaterialCents: breakdown.MaterialCents,
		TravelCents:   breakdown.TravelCents,
		OverheadCents: breakdown.OverheadCents,
		ProfitCents:   breakdown.ProfitCents,
		TotalCents:    breakdown.TotalCents,
	})
	if err != nil {
		return repository.Offer{}, err
	}

	return offer, nil
}

// Dispatch sends a pending offer to its customer: stamps sent_at, moves the
// offer to awaiting_response, and queues the customer notification. From this
// point the temporal evaluator governs the offer.
func (s *Service) Dispatch(ctx context.Context, offerID uuid.UUID, actor string) (repository.Offer, error) {
	offer, err := s.store.GetByID(ctx, offerID)
	if err != nil {
		return repository.Offer{}, err
	}
	if offer.Status != domain.StatusPending {
		return repository.Offer{}, domain.InvalidTransition(offer.Status, domain.StatusAwaitingResponse)
	}

	now := s.clock.Now()
	reason := domain.ReasonDispatched
	updated, applied, err := s.applyTransition(ctx, offer, repository.TransitionUpdate{
		Status:      domain.StatusAwaitingResponse,
		SentAt:      &now,
		RespondedAt: offer.RespondedAt,
		EscalatedAt: offer.EscalatedAt,
		ValidUntil:  offer.ValidUntil,
		ChangedBy:   actor,
		Reason:      &reason,
	})
	if err != nil {
		return repository.Offer{}, err
	}
	if !applied {
		return repository.Offer{}, domain.ConcurrentModification()
	}

	if rec, err := s.store.CustomerRecipient(ctx, offer.CustomerID); err != nil {
		s.log.Warn("dispatch notification skipped", "offer_id", offerID, "error", err)
	} else if err := s.dispatcher.Send(ctx, notification.Notification{
		Template:  notification.TemplateOfferDispatched,
		Recipient: recipient(rec),
		OfferID:   &offerID,
		Payload: map[string]any{
			"total_cents": updated.TotalCents,
			"valid_until": updated.ValidUntil,
		},
	}); err != nil {
		s.log.Warn("dispatch notification failed to queue", "offer_id", offerID, "error", err)
	}

	s.bus.Publish(ctx, events.OfferDispatched{
		BaseEvent:   events.NewBaseEvent(),
		OfferID:     updated.ID,
		BranchID:    updated.BranchID,
		InspectorID: updated.InspectorID,
		CustomerID:  updated.CustomerID,
		TotalCents:  updated.TotalCents,
		ValidUntil:  updated.ValidUntil,
	})

	return updated, nil
}

// Accept records the customer's acceptance.
func (s *Service) Accept(ctx context.Context, offerID uuid.UUID, actor string) (repository.Offer, error) {
	offer, err := s.Transition(ctx, offerID, domain.StatusAccepted, actor, nil)
	if err != nil {
		return repository.Offer{}, err
	}

	s.bus.Publish(ctx, events.OfferAccepted{
		BaseEvent:   events.NewBaseEvent(),
		OfferID:     offer.ID,
		BranchID:    offer.BranchID,
		InspectorID: offer.InspectorID,
		CustomerID:  offer.CustomerID,
		TotalCents:  offer.TotalCents,
	})

	return offer, nil
}

// Reject records the customer's rejection with an optional reason.
func (s *Service) Reject(ctx context.Context, offerID uuid.UUID, actor string, reason *string) (repository.Offer, error) {
	offer, err := s.Transition(ctx, offerID, domain.StatusRejected, actor, reason)
	if err != nil {
		return repository.Offer{}, err
	}

	rejectionReason := ""
	if reason != nil {
		rejectionReason = *reason
	}
	s.bus.Publish(ctx, events.OfferRejected{
		BaseEvent:   events.NewBaseEvent(),
		OfferID:     offer.ID,
		BranchID:    offer.BranchID,
		InspectorID: offer.InspectorID,
		CustomerID:  offer.CustomerID,
		Reason:      rejectionReason,
	})

	return offer, nil
}

// Transition applies a manually requested status change. Invalid moves are
// rejected with the full current state in the error details; a concurrent
// write triggers one re-read and retry before giving up.
func (s *Service) Transition(ctx context.Context, offerID uuid.UUID, target domain.Status, actor string, reason *string) (repository.Offer, error) {
	offer, err := s.store.GetByID(ctx, offerID)
	if err != nil {
		return repository.Offer{}, err
	}
	if !domain.CanTransition(offer.Status, target) {
		return repository.Offer{}, domain.InvalidTransition(offer.Status, target)
	}

	now := s.clock.Now()
	update := repository.TransitionUpdate{
		Status:      target,
		SentAt:      offer.SentAt,
		RespondedAt: offer.RespondedAt,
		EscalatedAt: offer.EscalatedAt,
		ValidUntil:  offer.ValidUntil,
		ChangedBy:   actor,
		Reason:      reason,
	}
	if target == domain.StatusAccepted || target == domain.StatusRejected {
		update.RespondedAt = &now
	}

	updated, applied, err := s.applyTransition(ctx, offer, update)
	if err != nil {
		return repository.Offer{}, err
	}
	if !applied {
		return repository.Offer{}, domain.ConcurrentModification()
	}

	return updated, nil
}

// ExtendValidity pushes an open offer's expiry out to newValidUntil. Expired
// and otherwise resolved offers cannot be extended; the deadline can only
// move forward.
func (s *Service) ExtendValidity(ctx context.Context, offerID uuid.UUID, newValidUntil time.Time, actor string) (repository.Offer, error) {
	offer, err := s.store.GetByID(ctx, offerID)
	if err != nil {
		return repository.Offer{}, err
	}
	if domain.IsTerminal(offer.Status) {
		return repository.Offer{}, apperr.Validation(
			fmt.Sprintf("cannot extend validity of %s offer", offer.Status))
	}
	if !newValidUntil.After(offer.ValidUntil) {
		return repository.Offer{}, apperr.Validation("new validity deadline must be later than the current one")
	}

	reason := domain.ReasonValidityExtended
	update := repository.TransitionUpdate{
		Status:      offer.Status,
		SentAt:      offer.SentAt,
		RespondedAt: offer.RespondedAt,
		EscalatedAt: offer.EscalatedAt,
		ValidUntil:  newValidUntil,
		ChangedBy:   actor,
		Reason:      &reason,
	}

	updated, applied, err := s.applyTransition(ctx, offer, update)
	if err != nil {
		return repository.Offer{}, err
	}
	if !applied {
		return repository.Offer{}, domain.ConcurrentModification()
	}

	return updated, nil
}

// Get returns a single offer.
func (s *Service) Get(ctx context.Context, offerID uuid.UUID) (repository.Offer, error) {
	return s.store.GetByID(ctx, offerID)
}

// List returns a branch's offers.
func (s *Service) List(ctx context.Context, branchID uuid.UUID) ([]repository.Offer, error) {
	return s.store.ListByBranch(ctx, branchID)
}

// History returns an offer's status history, oldest first.
func (s *Service) History(ctx context.Context, offerID uuid.UUID) ([]repository.HistoryEntry, error) {
	if _, err := s.store.GetByID(ctx, offerID); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, offerID)
}

// RecordNotificationFailure annotates an offer's history when a notification
// could not be delivered after all retries. The offer itself is untouched.
func (s *Service) RecordNotificationFailure(ctx context.Context, offerID uuid.UUID, template string, cause string) error {
	offer, err := s.store.GetByID(ctx, offerID)
	if err != nil {
		return err
	}

	reason := domain.ReasonNotificationFailed
	s.log.Warn("recording permanent notification failure",
		"offer_id", offerID, "template", template, "cause", cause)

	return s.store.AppendHistory(ctx, repository.HistoryEntry{
		OfferID:   offerID,
		Status:    offer.Status,
		ChangedBy: domain.ActorSystem,
		Reason:    &reason,
	})
}

// applyTransition performs the versioned write with conflict handling. On a
// version conflict it re-reads once: a system actor drops its write silently
// (the offer changed under it, the next sweep re-decides); a manual actor
// retries against the fresh state when the move is still legal.
//
// Returns applied=false only for dropped system writes.
func (s *Service) applyTransition(ctx context.Context, offer repository.Offer, update repository.TransitionUpdate) (repository.Offer, bool, error) {
	updated, err := s.store.SaveTransition(ctx, offer.ID, offer.Version, update)
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, repository.ErrVersionConflict) {
		return repository.Offer{}, false, err
	}

	fresh, err := s.store.GetByID(ctx, offer.ID)
	if err != nil {
		return repository.Offer{}, false, err
	}

	if update.ChangedBy == domain.ActorSystem {
		s.log.Debug("system transition dropped after concurrent write",
			"offer_id", offer.ID, "target", string(update.Status), "status", string(fresh.Status))
		return fresh, false, nil
	}

	// Same-status updates are annotations (e.g. validity extension), not
	// transitions, and stay legal as long as the offer is still in that state.
	if fresh.Status != update.Status && !domain.CanTransition(fresh.Status, update.Status) {
		return repository.Offer{}, false, domain.InvalidTransition(fresh.Status, update.Status)
	}

	updated, err = s.store.SaveTransition(ctx, fresh.ID, fresh.Version, update)
	if errors.Is(err, repository.ErrVersionConflict) {
		return repository.Offer{}, false, domain.ConcurrentModification()
	}
	if err != nil {
		return repository.Offer{}, false, err
	}

	return updated, true, nil
}

func recipient(r repository.Recipient) notification.Recipient {
	return notification.Recipient{Name: r.Name, Email: r.Email, Phone: r.Phone}
}
