// Package repository provides pgx access to appointments.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inspect_portal_backend/internal/appointments/domain"
	"inspect_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides appointment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const apptColumns = `id, branch_id, inspector_id, customer_id, offer_id,
	start_time, end_time, status, location, created_at, updated_at`

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var a domain.Appointment
	var status string
	err := row.Scan(
		&a.ID, &a.BranchID, &a.InspectorID, &a.CustomerID, &a.OfferID,
		&a.Start, &a.End, &status, &a.Location, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Appointment{}, err
	}
	a.Status = domain.Status(status)
	return a, nil
}

// Create inserts a new scheduled appointment.
func (r *Repository) Create(ctx context.Context, a domain.Appointment) (domain.Appointment, error) {
	query := `
		INSERT INTO appointments (branch_id, inspector_id, customer_id, offer_id, start_time, end_time, status, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + apptColumns

	saved, err := scanAppointment(r.pool.QueryRow(ctx, query,
		a.BranchID, a.InspectorID, a.CustomerID, a.OfferID,
		a.Start, a.End, string(domain.StatusScheduled), a.Location,
	))
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	return saved, nil
}

// GetByID retrieves a single appointment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Appointment{}, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}

	return appt, nil
}

// ListByInspectorBetween returns an inspector's appointments whose interval
// touches [from, to). Used to build the conflict-detection window.
func (r *Repository) ListByInspectorBetween(ctx context.Context, inspectorID uuid.UUID, from, to time.Time) ([]domain.Appointment, error) {
	query := `SELECT ` + apptColumns + `
		FROM appointments
		WHERE inspector_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC`

	return r.list(ctx, query, inspectorID, from, to)
}

// ListByBranch returns a branch's appointments, soonest first.
func (r *Repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE branch_id = $1 ORDER BY start_time ASC`

	return r.list(ctx, query, branchID)
}

// UpdateStatus changes an appointment's lifecycle state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + apptColumns

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Appointment{}, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("update appointment status: %w", err)
	}

	return appt, nil
}

// UpdateInterval moves an appointment to a new time slot.
func (r *Repository) UpdateInterval(ctx context.Context, id uuid.UUID, start, end time.Time) (domain.Appointment, error) {
	query := `
		UPDATE appointments
		SET start_time = $2, end_time = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + apptColumns

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id, start, end))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Appointment{}, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("update appointment interval: %w", err)
	}

	return appt, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appts, nil
}
