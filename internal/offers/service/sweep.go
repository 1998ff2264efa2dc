package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"inspect_portal_backend/internal/events"
	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/offers/domain"
	"inspect_portal_backend/internal/offers/repository"

	"golang.org/x/sync/errgroup"
)

// sweepConcurrency bounds how many offers one sweep evaluates in parallel.
const sweepConcurrency = 8

// SweepSummary reports what one evaluation pass did.
type SweepSummary struct {
	Evaluated     int
	Transitions   int
	Notifications int
	Skipped       int
	Failed        int
}

type sweepAction int

const (
	actionNone sweepAction = iota
	actionRemind
	actionEscalate
	actionExpire
)

// decide picks the single most severe due rung for an offer at the given
// instant. Expiry beats escalation beats reminder; at most one action per
// offer per sweep.
func (s *Service) decide(offer repository.Offer, now time.Time) sweepAction {
	if domain.IsTerminal(offer.Status) || offer.SentAt == nil {
		return actionNone
	}

	if !now.Before(offer.ValidUntil) {
		return actionExpire
	}

	elapsed := now.Sub(*offer.SentAt)

	if elapsed >= s.cfg.GetEscalateAfter() && offer.EscalatedAt == nil {
		return actionEscalate
	}

	if elapsed >= s.cfg.GetReminderAfter() {
		if offer.FollowUpAttempts >= s.cfg.GetMaxReminders() {
			return actionNone
		}
		if offer.LastNotifiedAt != nil && now.Sub(*offer.LastNotifiedAt) < s.cfg.GetReminderCooldown() {
			return actionNone
		}
		return actionRemind
	}

	return actionNone
}

// EvaluateAll runs one evaluation pass over every open dispatched offer.
// Offers are processed concurrently; a failure on one offer is logged and
// counted, never aborts the pass. Running the same pass twice in a row is a
// no-op: every action writes its marker state before any side effect.
func (s *Service) EvaluateAll(ctx context.Context) (SweepSummary, error) {
	now := s.clock.Now()

	offers, err := s.store.GetOpenOffers(ctx)
	if err != nil {
		return SweepSummary{}, err
	}

	var transitions, notifications, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, offer := range offers {
		g.Go(func() error {
			action := s.decide(offer, now)

			var (
				notified bool
				applied  bool
				err      error
			)
			switch action {
			case actionExpire:
				applied, err = s.expireOffer(gctx, offer)
			case actionEscalate:
				applied, notified, err = s.escalateOffer(gctx, offer, now)
			case actionRemind:
				applied, notified, err = s.remindOffer(gctx, offer, now)
			case actionNone:
				skipped.Add(1)
				return nil
			}

			if err != nil {
				s.log.Error("offer evaluation failed",
					"offer_id", offer.ID, "status", string(offer.Status), "error", err)
				failed.Add(1)
				return nil
			}
			if !applied {
				skipped.Add(1)
				return nil
			}
			transitions.Add(1)
			if notified {
				notifications.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()

	summary := SweepSummary{
		Evaluated:     len(offers),
		Transitions:   int(transitions.Load()),
		Notifications: int(notifications.Load()),
		Skipped:       int(skipped.Load()),
		Failed:        int(failed.Load()),
	}
	s.log.SweepSummary("offers", summary.Evaluated, summary.Transitions, summary.Notifications, summary.Skipped, summary.Failed)

	return summary, nil
}

// expireOffer closes an offer whose validity elapsed. Expiry is silent: no
// notification goes out for an offer nobody acted on in a month.
func (s *Service) expireOffer(ctx context.Context, offer repository.Offer) (bool, error) {
	reason := domain.ReasonValidityElapsed
	updated, applied, err := s.applyTransition(ctx, offer, repository.TransitionUpdate{
		Status:      domain.StatusExpired,
		SentAt:      offer.SentAt,
		RespondedAt: offer.RespondedAt,
		EscalatedAt: offer.EscalatedAt,
		ValidUntil:  offer.ValidUntil,
		ChangedBy:   domain.ActorSystem,
		Reason:      &reason,
	})
	if err != nil || !applied {
		return false, err
	}

	s.bus.Publish(ctx, events.OfferExpired{
		BaseEvent: events.NewBaseEvent(),
		OfferID:   updated.ID,
		BranchID:  updated.BranchID,
	})

	return true, nil
}

// escalateOffer stamps escalated_at and notifies the branch admin. The stamp
// is written first so a notification failure cannot cause a second
// escalation on the next pass. An offer still sitting in pending moves to
// awaiting_response: after two weeks it is demonstrably with the customer.
func (s *Service) escalateOffer(ctx context.Context, offer repository.Offer, now time.Time) (bool, bool, error) {
	newStatus := offer.Status
	if newStatus == domain.StatusPending {
		newStatus = domain.StatusAwaitingResponse
	}

	reason := domain.ReasonEscalated
	updated, applied, err := s.applyTransition(ctx, offer, repository.TransitionUpdate{
		Status:      newStatus,
		SentAt:      offer.SentAt,
		RespondedAt: offer.RespondedAt,
		EscalatedAt: &now,
		ValidUntil:  offer.ValidUntil,
		ChangedBy:   domain.ActorSystem,
		Reason:      &reason,
	})
	if err != nil || !applied {
		return false, false, err
	}

	notified := false
	if rec, err := s.store.BranchAdminRecipient(ctx, offer.BranchID); err != nil {
		s.log.Warn("escalation notification skipped", "offer_id", offer.ID, "error", err)
	} else if err := s.dispatcher.Send(ctx, notification.Notification{
		Template:  notification.TemplateOfferEscalation,
		Recipient: recipient(rec),
		OfferID:   &offer.ID,
		Payload: map[string]any{
			"days_open":   daysOpen(offer, now),
			"total_cents": offer.TotalCents,
		},
	}); err != nil {
		s.log.Warn("escalation notification failed to queue", "offer_id", offer.ID, "error", err)
	} else {
		notified = true
	}

	s.bus.Publish(ctx, events.OfferEscalated{
		BaseEvent:   events.NewBaseEvent(),
		OfferID:     updated.ID,
		BranchID:    updated.BranchID,
		InspectorID: updated.InspectorID,
		DaysOpen:    daysOpen(offer, now),
	})

	return true, notified, nil
}

// remindOffer bumps the follow-up counter and nudges the assigned inspector
// to chase the customer. The counter write is CAS-guarded: if another sweep
// got there first this one drops out and no duplicate reminder is sent.
func (s *Service) remindOffer(ctx context.Context, offer repository.Offer, now time.Time) (bool, bool, error) {
	updated, err := s.store.SaveReminderState(ctx, offer.ID, offer.Version, offer.FollowUpAttempts+1, now)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.log.Debug("reminder dropped after concurrent write", "offer_id", offer.ID)
			return false, false, nil
		}
		return false, false, err
	}

	notified := false
	if rec, err := s.store.InspectorRecipient(ctx, offer.InspectorID); err != nil {
		s.log.Warn("reminder notification skipped", "offer_id", offer.ID, "error", err)
	} else if err := s.dispatcher.Send(ctx, notification.Notification{
		Template:  notification.TemplateOfferReminder,
		Recipient: recipient(rec),
		OfferID:   &offer.ID,
		Payload: map[string]any{
			"attempt":     updated.FollowUpAttempts,
			"valid_until": updated.ValidUntil,
			"total_cents": updated.TotalCents,
		},
	}); err != nil {
		s.log.Warn("reminder notification failed to queue", "offer_id", offer.ID, "error", err)
	} else {
		notified = true
	}

	s.bus.Publish(ctx, events.OfferReminderSent{
		BaseEvent:   events.NewBaseEvent(),
		OfferID:     updated.ID,
		InspectorID: updated.InspectorID,
		Attempt:     updated.FollowUpAttempts,
	})

	return true, notified, nil
}

func daysOpen(offer repository.Offer, now time.Time) int {
	if offer.SentAt == nil {
		return 0
	}
	return int(now.Sub(*offer.SentAt).Hours() / 24)
}
