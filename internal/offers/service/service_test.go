package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/offers/domain"
	"inspect_portal_backend/internal/offers/repository"
	"inspect_portal_backend/platform/apperr"
	"inspect_portal_backend/platform/events"
	"inspect_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testConfig struct{}

func (testConfig) GetReminderAfter() time.Duration      { return 7 * 24 * time.Hour }
func (testConfig) GetEscalateAfter() time.Duration      { return 14 * 24 * time.Hour }
func (testConfig) GetExpireAfter() time.Duration        { return 30 * 24 * time.Hour }
func (testConfig) GetReminderCooldown() time.Duration   { return 24 * time.Hour }
func (testConfig) GetMaxReminders() int                 { return 3 }
func (testConfig) GetOfferSweepInterval() time.Duration { return time.Hour }

// fakeStore is an in-memory OfferStore with real version semantics.
type fakeStore struct {
	mu      sync.Mutex
	offers  map[uuid.UUID]repository.Offer
	history []repository.HistoryEntry

	// conflictNext forces the next SaveTransition or SaveReminderState for
	// the offer to fail with ErrVersionConflict.
	conflictNext map[uuid.UUID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offers:       make(map[uuid.UUID]repository.Offer),
		conflictNext: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) put(o repository.Offer) repository.Offer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Version == 0 {
		o.Version = 1
	}
	f.offers[o.ID] = o
	return o
}

func (f *fakeStore) Create(_ context.Context, o repository.Offer) (repository.Offer, error) {
	o.Status = domain.StatusPending
	o.CreatedAt = time.Now()
	return f.put(o), nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok {
		return repository.Offer{}, apperr.NotFound("offer not found")
	}
	return o, nil
}

func (f *fakeStore) GetOpenOffers(_ context.Context) ([]repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []repository.Offer
	for _, o := range f.offers {
		if domain.IsOpen(o.Status) && o.SentAt != nil {
			open = append(open, o)
		}
	}
	return open, nil
}

func (f *fakeStore) ListByBranch(_ context.Context, branchID uuid.UUID) ([]repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Offer
	for _, o := range f.offers {
		if o.BranchID == branchID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveTransition(_ context.Context, id uuid.UUID, expectedVersion int64, u repository.TransitionUpdate) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictNext[id] {
		delete(f.conflictNext, id)
		return repository.Offer{}, repository.ErrVersionConflict
	}
	o, ok := f.offers[id]
	if !ok || o.Version != expectedVersion {
		return repository.Offer{}, repository.ErrVersionConflict
	}
	o.Status = u.Status
	o.SentAt = u.SentAt
	o.RespondedAt = u.RespondedAt
	o.EscalatedAt = u.EscalatedAt
	o.ValidUntil = u.ValidUntil
	o.Version++
	f.offers[id] = o
	f.history = append(f.history, repository.HistoryEntry{
		ID: uuid.New(), OfferID: id, Status: u.Status, ChangedBy: u.ChangedBy, Reason: u.Reason, CreatedAt: time.Now(),
	})
	return o, nil
}

func (f *fakeStore) SaveReminderState(_ context.Context, id uuid.UUID, expectedVersion int64, attempts int, lastNotifiedAt time.Time) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictNext[id] {
		delete(f.conflictNext, id)
		return repository.Offer{}, repository.ErrVersionConflict
	}
	o, ok := f.offers[id]
	if !ok || o.Version != expectedVersion {
		return repository.Offer{}, repository.ErrVersionConflict
	}
	o.FollowUpAttempts = attempts
	o.LastNotifiedAt = &lastNotifiedAt
	o.Version++
	f.offers[id] = o
	return o, nil
}

func (f *fakeStore) AppendHistory(_ context.Context, entry repository.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeStore) ListHistory(_ context.Context, offerID uuid.UUID) ([]repository.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.HistoryEntry
	for _, e := range f.history {
		if e.OfferID == offerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) InspectorRecipient(_ context.Context, _ uuid.UUID) (repository.Recipient, error) {
	return repository.Recipient{Name: "Inspector", Email: "inspector@example.com"}, nil
}

func (f *fakeStore) CustomerRecipient(_ context.Context, _ uuid.UUID) (repository.Recipient, error) {
	return repository.Recipient{Name: "Customer", Email: "customer@example.com"}, nil
}

func (f *fakeStore) BranchAdminRecipient(_ context.Context, _ uuid.UUID) (repository.Recipient, error) {
	return repository.Recipient{Name: "Admin", Email: "admin@example.com"}, nil
}

// recordingDispatcher captures notifications instead of delivering them.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (d *recordingDispatcher) Send(_ context.Context, n notification.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return nil
}

func (d *recordingDispatcher) byTemplate(template string) []notification.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notification.Notification
	for _, n := range d.sent {
		if n.Template == template {
			out = append(out, n)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakeStore, *recordingDispatcher, *fixedClock) {
	t.Helper()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	clock := &fixedClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	svc := NewService(store, dispatcher, bus, testConfig{}, log).WithClock(clock)
	return svc, store, dispatcher, clock
}

func openOffer(store *fakeStore, clock *fixedClock) repository.Offer {
	sentAt := clock.Now()
	return store.put(repository.Offer{
		BranchID:    uuid.New(),
		CustomerID:  uuid.New(),
		InspectorID: uuid.New(),
		Status:      domain.StatusAwaitingResponse,
		SentAt:      &sentAt,
		ValidUntil:  sentAt.Add(30 * 24 * time.Hour),
		TotalCents:  125000,
	})
}

func TestCreateThenDispatch(t *testing.T) {
	svc, store, dispatcher, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateParams{
		BranchID:      uuid.New(),
		CustomerID:    uuid.New(),
		InspectorID:   uuid.New(),
		LaborCents:    50000,
		MaterialCents: 20000,
		TravelCents:   5000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("new offer status = %s, want pending", created.Status)
	}
	if created.TotalCents == 0 {
		t.Fatal("expected a computed total")
	}

	dispatched, err := svc.Dispatch(ctx, created.ID, "user:alice")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dispatched.Status != domain.StatusAwaitingResponse {
		t.Errorf("dispatched status = %s, want awaiting_response", dispatched.Status)
	}
	if dispatched.SentAt == nil {
		t.Error("dispatch must stamp sent_at")
	}
	if got := len(dispatcher.byTemplate(notification.TemplateOfferDispatched)); got != 1 {
		t.Errorf("dispatched notifications = %d, want 1", got)
	}

	// A second dispatch of the same offer is not a legal move.
	if _, err := svc.Dispatch(ctx, created.ID, "user:alice"); err == nil {
		t.Error("expected error on double dispatch")
	}

	entries, err := store.ListHistory(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != domain.StatusAwaitingResponse {
		t.Errorf("unexpected history after dispatch: %+v", entries)
	}
}

// Every transition after creation appends exactly one history row, starting
// with the dispatch entry, and the log stays ordered by timestamp.
func TestStatusHistoryGrowsOnePerTransition(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateParams{
		BranchID:    uuid.New(),
		CustomerID:  uuid.New(),
		InspectorID: uuid.New(),
		LaborCents:  80000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Dispatch(ctx, created.ID, "user:alice"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// Two weeks pass; the evaluator escalates to the branch admin.
	clock.Advance(14 * 24 * time.Hour)
	if _, err := svc.EvaluateAll(ctx); err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}

	if _, err := svc.Accept(ctx, created.ID, "user:bob"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	entries, err := store.ListHistory(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("history entries = %d, want 3 (dispatch, escalation, accept)", len(entries))
	}

	wantStatuses := []domain.Status{
		domain.StatusAwaitingResponse,
		domain.StatusAwaitingResponse,
		domain.StatusAccepted,
	}
	for i, want := range wantStatuses {
		if entries[i].Status != want {
			t.Errorf("entry %d status = %s, want %s", i, entries[i].Status, want)
		}
	}
	if entries[1].Reason == nil || *entries[1].Reason != domain.ReasonEscalated {
		t.Errorf("escalation entry reason = %v, want %q", entries[1].Reason, domain.ReasonEscalated)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.Before(entries[i-1].CreatedAt) {
			t.Errorf("history out of order: entry %d at %v precedes entry %d at %v",
				i, entries[i].CreatedAt, i-1, entries[i-1].CreatedAt)
		}
	}
}

func TestTransitionRules(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		from    domain.Status
		to      domain.Status
		wantErr bool
	}{
		{"awaiting to accepted", domain.StatusAwaitingResponse, domain.StatusAccepted, false},
		{"awaiting to rejected", domain.StatusAwaitingResponse, domain.StatusRejected, false},
		{"accepted is absorbing", domain.StatusAccepted, domain.StatusRejected, true},
		{"rejected is absorbing", domain.StatusRejected, domain.StatusAccepted, true},
		{"expired cannot be accepted", domain.StatusExpired, domain.StatusAccepted, true},
		{"awaiting cannot return to pending", domain.StatusAwaitingResponse, domain.StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := openOffer(store, clock)
			offer.Status = tt.from
			offer = store.put(offer)

			_, err := svc.Transition(ctx, offer.ID, tt.to, "user:bob", nil)
			if tt.wantErr && err == nil {
				t.Fatalf("transition %s -> %s: expected error", tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("transition %s -> %s: %v", tt.from, tt.to, err)
			}
			if tt.wantErr && apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("error kind = %v, want validation", apperr.GetKind(err))
			}
		})
	}
}

func TestAcceptStampsRespondedAt(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	ctx := context.Background()

	offer := openOffer(store, clock)
	accepted, err := svc.Accept(ctx, offer.ID, "user:carol")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.RespondedAt == nil {
		t.Fatal("accept must stamp responded_at")
	}
	if !accepted.RespondedAt.Equal(clock.Now()) {
		t.Errorf("responded_at = %v, want %v", accepted.RespondedAt, clock.Now())
	}
}

func TestManualTransitionRetriesOnceOnConflict(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	ctx := context.Background()

	offer := openOffer(store, clock)
	store.conflictNext[offer.ID] = true

	accepted, err := svc.Accept(ctx, offer.ID, "user:carol")
	if err != nil {
		t.Fatalf("Accept after transient conflict: %v", err)
	}
	if accepted.Status != domain.StatusAccepted {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}
}

func TestManualTransitionLosesToResolution(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	ctx := context.Background()

	// The customer accepted between this actor's read and write.
	offer := openOffer(store, clock)
	resolved := offer
	resolved.Status = domain.StatusAccepted
	resolved.Version++
	store.put(resolved)

	_, err := svc.Transition(ctx, offer.ID, domain.StatusRejected, "user:dave", nil)
	if err == nil {
		t.Fatal("expected rejection of a write against a resolved offer")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("error kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestExtendValidity(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	ctx := context.Background()

	offer := openOffer(store, clock)

	later := offer.ValidUntil.Add(14 * 24 * time.Hour)
	extended, err := svc.ExtendValidity(ctx, offer.ID, later, "user:erin")
	if err != nil {
		t.Fatalf("ExtendValidity: %v", err)
	}
	if !extended.ValidUntil.Equal(later) {
		t.Errorf("valid_until = %v, want %v", extended.ValidUntil, later)
	}
	if extended.Status != offer.Status {
		t.Errorf("extension must not change status, got %s", extended.Status)
	}

	// Moving the deadline backwards is rejected.
	if _, err := svc.ExtendValidity(ctx, offer.ID, offer.ValidUntil, "user:erin"); err == nil {
		t.Error("expected error when shrinking validity")
	}

	// Terminal offers cannot be extended.
	expired := extended
	expired.Status = domain.StatusExpired
	expired.Version++
	store.put(expired)
	if _, err := svc.ExtendValidity(ctx, offer.ID, later.Add(time.Hour), "user:erin"); err == nil {
		t.Error("expected error extending an expired offer")
	}
}

func TestRecordNotificationFailureAppendsHistory(t *testing.T) {
	svc, store, _, clock := newTestService(t)
	ctx := context.Background()

	offer := openOffer(store, clock)
	if err := svc.RecordNotificationFailure(ctx, offer.ID, notification.TemplateOfferReminder, "smtp timeout"); err != nil {
		t.Fatalf("RecordNotificationFailure: %v", err)
	}

	entries, err := store.ListHistory(ctx, offer.ID)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Reason == nil || *entry.Reason != domain.ReasonNotificationFailed {
		t.Errorf("reason = %v, want %q", entry.Reason, domain.ReasonNotificationFailed)
	}
	if entry.ChangedBy != domain.ActorSystem {
		t.Errorf("changed_by = %q, want %q", entry.ChangedBy, domain.ActorSystem)
	}
	if entry.Status != offer.Status {
		t.Errorf("status = %s, want the offer's current status %s", entry.Status, offer.Status)
	}

	// The offer itself is untouched.
	after, _ := store.GetByID(ctx, offer.ID)
	if after.Version != offer.Version {
		t.Error("recording a failure must not bump the offer version")
	}
}
