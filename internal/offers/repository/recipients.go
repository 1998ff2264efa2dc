package repository

import (
	"context"
	"errors"
	"fmt"

	"inspect_portal_backend/platform/apperr"
	"inspect_portal_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Recipient is a resolved notification target.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// InspectorRecipient resolves the inspector assigned to an offer.
func (r *Repository) InspectorRecipient(ctx context.Context, inspectorID uuid.UUID) (Recipient, error) {
	query := `SELECT name, email, phone FROM users WHERE id = $1`

	rec, err := scanRecipient(r.pool.QueryRow(ctx, query, inspectorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, apperr.NotFound("inspector not found")
	}
	if err != nil {
		return Recipient{}, fmt.Errorf("resolve inspector recipient: %w", err)
	}

	return rec, nil
}

// CustomerRecipient resolves the customer an offer was made to.
func (r *Repository) CustomerRecipient(ctx context.Context, customerID uuid.UUID) (Recipient, error) {
	query := `SELECT name, email, phone FROM customers WHERE id = $1`

	rec, err := scanRecipient(r.pool.QueryRow(ctx, query, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, apperr.NotFound("customer not found")
	}
	if err != nil {
		return Recipient{}, fmt.Errorf("resolve customer recipient: %w", err)
	}

	return rec, nil
}

// BranchAdminRecipient resolves the admin of a branch for escalations.
// When a branch has more than one admin the longest-standing one receives
// the escalation.
func (r *Repository) BranchAdminRecipient(ctx context.Context, branchID uuid.UUID) (Recipient, error) {
	query := `SELECT name, email, phone
		FROM users
		WHERE branch_id = $1 AND role = 'branch_admin'
		ORDER BY created_at ASC
		LIMIT 1`

	rec, err := scanRecipient(r.pool.QueryRow(ctx, query, branchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, apperr.NotFound("branch admin not found")
	}
	if err != nil {
		return Recipient{}, fmt.Errorf("resolve branch admin recipient: %w", err)
	}

	return rec, nil
}

func scanRecipient(row pgx.Row) (Recipient, error) {
	var rec Recipient
	var rawPhone *string
	if err := row.Scan(&rec.Name, &rec.Email, &rawPhone); err != nil {
		return Recipient{}, err
	}
	if rawPhone != nil {
		rec.Phone = phone.NormalizeE164(*rawPhone)
	}
	return rec, nil
}
