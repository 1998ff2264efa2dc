// Package repository provides typed pgx access to offers and their status
// history. All lifecycle writes go through SaveTransition so a history row is
// appended atomically with every state change; plain field updates on offers
// are deliberately not exposed.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inspect_portal_backend/internal/offers/domain"
	"inspect_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVersionConflict is returned when a compare-and-swap write found a
// different version than expected. The caller re-reads and re-decides.
var ErrVersionConflict = errors.New("offer version conflict")

const offerNotFoundMsg = "offer not found"

// Offer is a priced proposal tracked through the acceptance workflow.
// The monetary breakdown is opaque to the lifecycle engine; it is carried
// only for notification content.
type Offer struct {
	ID               uuid.UUID
	BranchID         uuid.UUID
	CustomerID       uuid.UUID
	InspectorID      uuid.UUID
	Status           domain.Status
	CreatedAt        time.Time
	SentAt           *time.Time
	RespondedAt      *time.Time
	ValidUntil       time.Time
	FollowUpAttempts int
	LastNotifiedAt   *time.Time
	EscalatedAt      *time.Time
	Version          int64
	LaborCents       int64
	MaterialCents    int64
	TravelCents      int64
	OverheadCents    int64
	ProfitCents      int64
	TotalCents       int64
	UpdatedAt        time.Time
}

// HistoryEntry is one append-only status history record.
type HistoryEntry struct {
	ID        uuid.UUID
	OfferID   uuid.UUID
	Status    domain.Status
	ChangedBy string
	Reason    *string
	CreatedAt time.Time
}

// TransitionUpdate carries the full intended post-transition field values.
// The service computes them from the offer it read; the repository writes
// them only if the version still matches.
type TransitionUpdate struct {
	Status      domain.Status
	SentAt      *time.Time
	RespondedAt *time.Time
	EscalatedAt *time.Time
	ValidUntil  time.Time
	ChangedBy   string
	Reason      *string
}

// Repository provides offer persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new offers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const offerColumns = `id, branch_id, customer_id, inspector_id, status,
	created_at, sent_at, responded_at, valid_until,
	follow_up_attempts, last_notified_at, escalated_at, version,
	labor_cents, material_cents, travel_cents, overhead_cents, profit_cents, total_cents,
	updated_at`

func scanOffer(row pgx.Row) (Offer, error) {
	var o Offer
	var status string
	err := row.Scan(
		&o.ID, &o.BranchID, &o.CustomerID, &o.InspectorID, &status,
		&o.CreatedAt, &o.SentAt, &o.RespondedAt, &o.ValidUntil,
		&o.FollowUpAttempts, &o.LastNotifiedAt, &o.EscalatedAt, &o.Version,
		&o.LaborCents, &o.MaterialCents, &o.TravelCents, &o.OverheadCents, &o.ProfitCents, &o.TotalCents,
		&o.UpdatedAt,
	)
	if err != nil {
		return Offer{}, err
	}
	o.Status = domain.Status(status)
	return o, nil
}

// Create inserts a new offer in pending status. The offer is not yet visible
// to the temporal evaluator until it is dispatched (sent_at stamped).
func (r *Repository) Create(ctx context.Context, offer Offer) (Offer, error) {
	query := `
		INSERT INTO offers (
			branch_id, customer_id, inspector_id, status, valid_until,
			labor_cents, material_cents, travel_cents, overhead_cents, profit_cents, total_cents
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + offerColumns

	saved, err := scanOffer(r.pool.QueryRow(ctx, query,
		offer.BranchID, offer.CustomerID, offer.InspectorID, string(domain.StatusPending), offer.ValidUntil,
		offer.LaborCents, offer.MaterialCents, offer.TravelCents, offer.OverheadCents, offer.ProfitCents, offer.TotalCents,
	))
	if err != nil {
		return Offer{}, fmt.Errorf("create offer: %w", err)
	}

	return saved, nil
}

// GetByID retrieves a single offer.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	offer, err := scanOffer(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, apperr.NotFound(offerNotFoundMsg)
	}
	if err != nil {
		return Offer{}, fmt.Errorf("get offer: %w", err)
	}

	return offer, nil
}

// GetOpenOffers returns every dispatched offer the evaluator still governs:
// status pending or awaiting_response with a non-null sent_at.
func (r *Repository) GetOpenOffers(ctx context.Context) ([]Offer, error) {
	query := `SELECT ` + offerColumns + `
		FROM offers
		WHERE status = ANY($1::text[]) AND sent_at IS NOT NULL
		ORDER BY sent_at ASC`

	open := domain.OpenStatuses()
	statuses := make([]string, 0, len(open))
	for _, s := range open {
		statuses = append(statuses, string(s))
	}

	rows, err := r.pool.Query(ctx, query, statuses)
	if err != nil {
		return nil, fmt.Errorf("get open offers: %w", err)
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan open offer: %w", err)
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open offers: %w", err)
	}

	return offers, nil
}

// ListByBranch returns a branch's offers, newest first.
func (r *Repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE branch_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}

	return offers, nil
}

// SaveTransition applies a lifecycle write and appends its history row in one
// transaction. The update only commits if the offer's version still equals
// expectedVersion; otherwise ErrVersionConflict is returned and nothing is
// written.
func (r *Repository) SaveTransition(ctx context.Context, offerID uuid.UUID, expectedVersion int64, update TransitionUpdate) (Offer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Offer{}, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE offers
		SET status = $2,
		    sent_at = $3,
		    responded_at = $4,
		    escalated_at = $5,
		    valid_until = $6,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $7
		RETURNING ` + offerColumns

	offer, err := scanOffer(tx.QueryRow(ctx, query,
		offerID, string(update.Status), update.SentAt, update.RespondedAt,
		update.EscalatedAt, update.ValidUntil, expectedVersion,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the offer vanished or another writer bumped the version.
		return Offer{}, ErrVersionConflict
	}
	if err != nil {
		return Offer{}, fmt.Errorf("save transition: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO offer_status_history (offer_id, status, changed_by, reason)
		 VALUES ($1, $2, $3, $4)`,
		offerID, string(update.Status), update.ChangedBy, update.Reason,
	)
	if err != nil {
		return Offer{}, fmt.Errorf("append status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Offer{}, fmt.Errorf("commit transition: %w", err)
	}

	return offer, nil
}

// SaveReminderState persists the reminder bookkeeping written by the
// evaluator: follow-up attempt count and last notification time. Guarded by
// the same version CAS as transitions so two overlapping sweeps cannot both
// claim the same reminder.
func (r *Repository) SaveReminderState(ctx context.Context, offerID uuid.UUID, expectedVersion int64, attempts int, lastNotifiedAt time.Time) (Offer, error) {
	query := `
		UPDATE offers
		SET follow_up_attempts = $2,
		    last_notified_at = $3,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $4
		RETURNING ` + offerColumns

	offer, err := scanOffer(r.pool.QueryRow(ctx, query, offerID, attempts, lastNotifiedAt, expectedVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, ErrVersionConflict
	}
	if err != nil {
		return Offer{}, fmt.Errorf("save reminder state: %w", err)
	}

	return offer, nil
}

// AppendHistory writes a history row without touching the offer itself.
// Used for annotations that are not transitions, e.g. a permanently failed
// notification.
func (r *Repository) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO offer_status_history (offer_id, status, changed_by, reason)
		 VALUES ($1, $2, $3, $4)`,
		entry.OfferID, string(entry.Status), entry.ChangedBy, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListHistory returns an offer's status history ordered oldest first.
func (r *Repository) ListHistory(ctx context.Context, offerID uuid.UUID) ([]HistoryEntry, error) {
	query := `SELECT id, offer_id, status, changed_by, reason, created_at
		FROM offer_status_history
		WHERE offer_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, offerID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var status string
		if err := rows.Scan(&entry.ID, &entry.OfferID, &status, &entry.ChangedBy, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.Status = domain.Status(status)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return entries, nil
}
