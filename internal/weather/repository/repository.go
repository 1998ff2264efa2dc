// Package repository provides pgx access to per-inspector weather alert
// state and the inspector roster by region.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inspect_portal_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AlertState is the last weather notification an inspector received.
type AlertState struct {
	InspectorID   uuid.UUID
	LastAlertedAt time.Time
	LastSeverity  string
}

// Inspector is a notification target working a region.
type Inspector struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// Repository provides weather alert persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new weather repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetState returns an inspector's last alert state, or nil if they were
// never alerted.
func (r *Repository) GetState(ctx context.Context, inspectorID uuid.UUID) (*AlertState, error) {
	var state AlertState
	err := r.pool.QueryRow(ctx,
		`SELECT inspector_id, last_alerted_at, last_severity
		 FROM weather_alert_state
		 WHERE inspector_id = $1`,
		inspectorID,
	).Scan(&state.InspectorID, &state.LastAlertedAt, &state.LastSeverity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weather alert state: %w", err)
	}
	return &state, nil
}

// MarkAlerted records that an inspector was notified at the given instant.
func (r *Repository) MarkAlerted(ctx context.Context, inspectorID uuid.UUID, at time.Time, severity string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO weather_alert_state (inspector_id, last_alerted_at, last_severity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (inspector_id)
		 DO UPDATE SET last_alerted_at = EXCLUDED.last_alerted_at,
		               last_severity = EXCLUDED.last_severity,
		               updated_at = now()`,
		inspectorID, at, severity,
	)
	if err != nil {
		return fmt.Errorf("mark inspector alerted: %w", err)
	}
	return nil
}

// InspectorsInRegion returns the inspectors working a region.
func (r *Repository) InspectorsInRegion(ctx context.Context, region string) ([]Inspector, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone
		 FROM users
		 WHERE role = 'inspector' AND region = $1`,
		region,
	)
	if err != nil {
		return nil, fmt.Errorf("list inspectors in region: %w", err)
	}
	defer rows.Close()

	var inspectors []Inspector
	for rows.Next() {
		var insp Inspector
		var rawPhone *string
		if err := rows.Scan(&insp.ID, &insp.Name, &insp.Email, &rawPhone); err != nil {
			return nil, fmt.Errorf("scan inspector: %w", err)
		}
		if rawPhone != nil {
			insp.Phone = phone.NormalizeE164(*rawPhone)
		}
		inspectors = append(inspectors, insp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inspectors: %w", err)
	}

	return inspectors, nil
}
