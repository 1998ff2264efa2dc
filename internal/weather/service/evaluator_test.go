package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/weather/repository"
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

func (testConfig) GetWeatherSweepInterval() time.Duration { return time.Hour }
func (testConfig) GetWeatherAlertCooldown() time.Duration { return 72 * time.Hour }

type fakeStore struct {
	mu         sync.Mutex
	states     map[uuid.UUID]repository.AlertState
	byRegion   map[string][]repository.Inspector
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:   make(map[uuid.UUID]repository.AlertState),
		byRegion: make(map[string][]repository.Inspector),
	}
}

func (f *fakeStore) GetState(_ context.Context, id uuid.UUID) (*repository.AlertState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[id]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (f *fakeStore) MarkAlerted(_ context.Context, id uuid.UUID, at time.Time, severity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id] = repository.AlertState{InspectorID: id, LastAlertedAt: at, LastSeverity: severity}
	return nil
}

func (f *fakeStore) InspectorsInRegion(_ context.Context, region string) ([]repository.Inspector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byRegion[region], nil
}

type staticSource struct {
	alerts []Alert
}

func (s *staticSource) CurrentAlerts(context.Context) ([]Alert, error) {
	return s.alerts, nil
}

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

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func newTestEvaluator(alerts ...Alert) (*Evaluator, *fakeStore, *staticSource, *recordingDispatcher, *fixedClock) {
	store := newFakeStore()
	source := &staticSource{alerts: alerts}
	dispatcher := &recordingDispatcher{}
	clock := &fixedClock{now: time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)}
	eval := NewEvaluator(store, source, dispatcher, testConfig{}, logger.New("test")).WithClock(clock)
	return eval, store, source, dispatcher, clock
}

func TestEvaluateAllNotifiesAffectedRegionOnly(t *testing.T) {
	eval, store, _, dispatcher, _ := newTestEvaluator(Alert{Region: "north", Severity: SeverityWarning, Headline: "storm front"})
	affected := repository.Inspector{ID: uuid.New(), Name: "North", Email: "north@example.com"}
	store.byRegion["north"] = []repository.Inspector{affected}
	store.byRegion["south"] = []repository.Inspector{{ID: uuid.New(), Name: "South", Email: "south@example.com"}}

	summary, err := eval.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if summary.Notified != 1 {
		t.Fatalf("notified = %d, want 1", summary.Notified)
	}
	if dispatcher.sent[0].Recipient.Email != affected.Email {
		t.Errorf("notified %s, want %s", dispatcher.sent[0].Recipient.Email, affected.Email)
	}
	if dispatcher.sent[0].Template != notification.TemplateWeatherAlert {
		t.Errorf("template = %s, want %s", dispatcher.sent[0].Template, notification.TemplateWeatherAlert)
	}
}

func TestEvaluateAllCooldownSuppressesRepeat(t *testing.T) {
	eval, store, _, dispatcher, clock := newTestEvaluator(Alert{Region: "north", Severity: SeverityWarning})
	store.byRegion["north"] = []repository.Inspector{{ID: uuid.New(), Email: "north@example.com"}}

	if _, err := eval.EvaluateAll(context.Background()); err != nil {
		t.Fatalf("first EvaluateAll: %v", err)
	}

	// One day later: still inside the three-day window.
	clock.Advance(24 * time.Hour)
	summary, err := eval.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("second EvaluateAll: %v", err)
	}
	if summary.Notified != 0 || summary.Suppressed != 1 {
		t.Fatalf("summary = %+v, want suppression", summary)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("notifications = %d, want 1", dispatcher.count())
	}

	// Past the cooldown the next alert goes out again.
	clock.Advance(72 * time.Hour)
	summary, err = eval.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("third EvaluateAll: %v", err)
	}
	if summary.Notified != 1 {
		t.Fatalf("summary after cooldown = %+v, want one notification", summary)
	}
}

func TestEvaluateAllSevereBypassesCooldown(t *testing.T) {
	eval, store, source, dispatcher, clock := newTestEvaluator(Alert{Region: "north", Severity: SeverityWarning})
	inspector := uuid.New()
	store.byRegion["north"] = []repository.Inspector{{ID: inspector, Email: "north@example.com"}}

	if _, err := eval.EvaluateAll(context.Background()); err != nil {
		t.Fatalf("first EvaluateAll: %v", err)
	}

	// An hour later conditions escalate to severe: notify immediately.
	clock.Advance(time.Hour)
	source.alerts = []Alert{{Region: "north", Severity: SeveritySevere, Headline: "code red"}}
	summary, err := eval.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("severe EvaluateAll: %v", err)
	}
	if summary.Notified != 1 {
		t.Fatalf("severe alert suppressed: %+v", summary)
	}
	if dispatcher.count() != 2 {
		t.Fatalf("notifications = %d, want 2", dispatcher.count())
	}

	// The severe alert restarts the cooldown for ordinary alerts.
	state, _ := store.GetState(context.Background(), inspector)
	if state == nil || !state.LastAlertedAt.Equal(clock.Now()) {
		t.Errorf("state not updated by severe alert: %+v", state)
	}
}

func TestEvaluateAllNoopSource(t *testing.T) {
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}
	eval := NewEvaluator(store, NoopSource{}, dispatcher, testConfig{}, logger.New("test"))

	summary, err := eval.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if summary.Alerts != 0 || dispatcher.count() != 0 {
		t.Errorf("noop source produced activity: %+v", summary)
	}
}
