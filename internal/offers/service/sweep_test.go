package service

import (
	"context"
	"testing"
	"time"

	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/offers/domain"
	"inspect_portal_backend/internal/offers/repository"

	"github.com/google/uuid"
)

const day = 24 * time.Hour

func mustSweep(t *testing.T, svc *Service) SweepSummary {
	t.Helper()
	summary, err := svc.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	return summary
}

func currentOffer(t *testing.T, store *fakeStore, id uuid.UUID) repository.Offer {
	t.Helper()
	offer, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return offer
}

// Walks one offer through the full ladder: quiet week, three daily reminders,
// the attempt cap, a single escalation at two weeks, expiry at thirty days.
func TestEvaluateAllLadder(t *testing.T) {
	svc, store, dispatcher, clock := newTestService(t)
	offer := openOffer(store, clock)

	// Day 6: nothing is due yet.
	clock.Advance(6 * day)
	summary := mustSweep(t, svc)
	if summary.Transitions != 0 {
		t.Fatalf("day 6: transitions = %d, want 0", summary.Transitions)
	}

	// Day 7: first reminder.
	clock.Advance(1 * day)
	summary = mustSweep(t, svc)
	if summary.Transitions != 1 || summary.Notifications != 1 {
		t.Fatalf("day 7: summary = %+v, want one reminder", summary)
	}
	if got := currentOffer(t, store, offer.ID); got.FollowUpAttempts != 1 {
		t.Fatalf("day 7: attempts = %d, want 1", got.FollowUpAttempts)
	}

	// Same instant again: cooldown holds the second reminder back.
	summary = mustSweep(t, svc)
	if summary.Transitions != 0 {
		t.Fatalf("day 7 repeat: transitions = %d, want 0", summary.Transitions)
	}

	// Days 8 and 9: reminders two and three, one per cooldown window.
	clock.Advance(1 * day)
	mustSweep(t, svc)
	clock.Advance(1 * day)
	mustSweep(t, svc)
	if got := currentOffer(t, store, offer.ID); got.FollowUpAttempts != 3 {
		t.Fatalf("day 9: attempts = %d, want 3", got.FollowUpAttempts)
	}

	// Day 10: the attempt cap stops further reminders.
	clock.Advance(1 * day)
	summary = mustSweep(t, svc)
	if summary.Transitions != 0 {
		t.Fatalf("day 10: transitions = %d, want 0 (cap reached)", summary.Transitions)
	}

	// Day 14: escalation to the branch admin, exactly once.
	clock.Advance(4 * day)
	summary = mustSweep(t, svc)
	if summary.Transitions != 1 {
		t.Fatalf("day 14: transitions = %d, want 1 (escalation)", summary.Transitions)
	}
	escalated := currentOffer(t, store, offer.ID)
	if escalated.EscalatedAt == nil {
		t.Fatal("day 14: escalated_at not stamped")
	}
	if got := len(dispatcher.byTemplate(notification.TemplateOfferEscalation)); got != 1 {
		t.Fatalf("day 14: escalation notifications = %d, want 1", got)
	}

	// Day 15: already escalated, reminder cap reached, nothing to do.
	clock.Advance(1 * day)
	summary = mustSweep(t, svc)
	if summary.Transitions != 0 {
		t.Fatalf("day 15: transitions = %d, want 0", summary.Transitions)
	}
	if got := len(dispatcher.byTemplate(notification.TemplateOfferEscalation)); got != 1 {
		t.Fatalf("day 15: escalation repeated, notifications = %d", got)
	}

	// Day 30: validity elapsed, the offer expires silently.
	clock.Advance(15 * day)
	summary = mustSweep(t, svc)
	if summary.Transitions != 1 || summary.Notifications != 0 {
		t.Fatalf("day 30: summary = %+v, want one silent expiry", summary)
	}
	expired := currentOffer(t, store, offer.ID)
	if expired.Status != domain.StatusExpired {
		t.Fatalf("day 30: status = %s, want expired", expired.Status)
	}

	// Day 31: expired is terminal, the evaluator no longer sees the offer.
	clock.Advance(1 * day)
	summary = mustSweep(t, svc)
	if summary.Evaluated != 0 {
		t.Fatalf("day 31: evaluated = %d, want 0", summary.Evaluated)
	}
}

// An offer at the escalation threshold gets the escalation, not a reminder:
// one action per offer per pass, most severe rung first.
func TestEvaluateAllMostSevereRungWins(t *testing.T) {
	svc, store, dispatcher, clock := newTestService(t)
	offer := openOffer(store, clock)

	clock.Advance(14 * day)
	summary := mustSweep(t, svc)
	if summary.Transitions != 1 {
		t.Fatalf("transitions = %d, want 1", summary.Transitions)
	}
	if got := len(dispatcher.byTemplate(notification.TemplateOfferEscalation)); got != 1 {
		t.Errorf("escalations = %d, want 1", got)
	}
	if got := len(dispatcher.byTemplate(notification.TemplateOfferReminder)); got != 0 {
		t.Errorf("reminders = %d, want 0", got)
	}
	if got := currentOffer(t, store, offer.ID); got.FollowUpAttempts != 0 {
		t.Errorf("attempts = %d, reminder must not fire alongside escalation", got.FollowUpAttempts)
	}
}

// An offer dispatched but never acknowledged is still pending when the
// escalation rung fires. Escalation moves it to awaiting_response: after two
// weeks the offer is demonstrably with the customer.
func TestEvaluateAllEscalationBumpsPending(t *testing.T) {
	svc, store, dispatcher, clock := newTestService(t)
	sentAt := clock.Now()
	offer := store.put(repository.Offer{
		BranchID:    uuid.New(),
		CustomerID:  uuid.New(),
		InspectorID: uuid.New(),
		Status:      domain.StatusPending,
		SentAt:      &sentAt,
		ValidUntil:  sentAt.Add(30 * day),
		TotalCents:  98500,
	})

	clock.Advance(14 * day)
	summary := mustSweep(t, svc)
	if summary.Transitions != 1 {
		t.Fatalf("transitions = %d, want 1", summary.Transitions)
	}
	escalated := currentOffer(t, store, offer.ID)
	if escalated.Status != domain.StatusAwaitingResponse {
		t.Errorf("status = %s, want awaiting_response after escalation", escalated.Status)
	}
	if escalated.EscalatedAt == nil {
		t.Error("escalated_at not stamped")
	}
	if got := len(dispatcher.byTemplate(notification.TemplateOfferEscalation)); got != 1 {
		t.Errorf("escalation notifications = %d, want 1", got)
	}
}

func TestEvaluateAllIdempotent(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	for range 5 {
		openOffer(store, clock)
	}

	clock.Advance(7 * day)
	first := mustSweep(t, svc)
	if first.Transitions != 5 {
		t.Fatalf("first pass transitions = %d, want 5", first.Transitions)
	}

	second := mustSweep(t, svc)
	if second.Transitions != 0 || second.Notifications != 0 {
		t.Fatalf("second pass at same instant must be a no-op, got %+v", second)
	}
}

// Extending validity postpones expiry past the default window.
func TestEvaluateAllHonorsExtendedValidity(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	offer := openOffer(store, clock)

	later := offer.ValidUntil.Add(10 * day)
	if _, err := svc.ExtendValidity(context.Background(), offer.ID, later, "user:erin"); err != nil {
		t.Fatalf("ExtendValidity: %v", err)
	}

	clock.Advance(32 * day)
	mustSweep(t, svc)
	if got := currentOffer(t, store, offer.ID); got.Status == domain.StatusExpired {
		t.Fatal("offer expired despite extended validity")
	}

	clock.Advance(9 * day)
	mustSweep(t, svc)
	if got := currentOffer(t, store, offer.ID); got.Status != domain.StatusExpired {
		t.Fatalf("status = %s, want expired after extended deadline passed", got.Status)
	}
}

// A concurrent manual resolution between the sweep's read and write drops the
// system transition without error. The race resolves in favor of the human.
func TestEvaluateAllDropsRacedSystemWrite(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	offer := openOffer(store, clock)

	clock.Advance(31 * day)

	// Another writer bumps the version between the sweep's read and write.
	store.conflictNext[offer.ID] = true

	summary := mustSweep(t, svc)
	if summary.Failed != 0 {
		t.Fatalf("raced system write must not count as failure, got %+v", summary)
	}
	if summary.Transitions != 0 {
		t.Fatalf("transitions = %d, want 0 after losing the race", summary.Transitions)
	}
	if got := currentOffer(t, store, offer.ID); got.Status != domain.StatusAwaitingResponse {
		t.Fatalf("status = %s, system write must be dropped, not retried", got.Status)
	}

	// The next pass sees the (still unresolved) offer and expires it.
	summary = mustSweep(t, svc)
	if summary.Transitions != 1 {
		t.Fatalf("followup pass transitions = %d, want 1", summary.Transitions)
	}
	if got := currentOffer(t, store, offer.ID); got.Status != domain.StatusExpired {
		t.Fatalf("status = %s, want expired on the next pass", got.Status)
	}
}

// Reminder state is written before the notification is queued, so a raced
// reminder can never double-send.
func TestEvaluateAllRacedReminderDropped(t *testing.T) {
	svc, store, dispatcher, clock := newTestService(t)
	offer := openOffer(store, clock)

	clock.Advance(7 * day)
	store.conflictNext[offer.ID] = true

	summary := mustSweep(t, svc)
	if summary.Failed != 0 {
		t.Fatalf("raced reminder must not count as failure, got %+v", summary)
	}
	if got := len(dispatcher.byTemplate(notification.TemplateOfferReminder)); got != 0 {
		t.Fatalf("reminders sent = %d, want 0 after losing the race", got)
	}
}

// Offers created but never dispatched are outside the evaluator's reach.
func TestEvaluateAllIgnoresUndispatched(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	store.put(repository.Offer{
		BranchID:    uuid.New(),
		CustomerID:  uuid.New(),
		InspectorID: uuid.New(),
		Status:      domain.StatusPending,
		ValidUntil:  clock.Now().Add(30 * day),
	})

	clock.Advance(40 * day)
	summary := mustSweep(t, svc)
	if summary.Evaluated != 0 {
		t.Fatalf("evaluated = %d, want 0 for undispatched offers", summary.Evaluated)
	}
}
