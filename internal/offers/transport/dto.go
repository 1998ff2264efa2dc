package transport

import (
	"time"

	"inspect_portal_backend/internal/offers/repository"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateOfferRequest is the request body for creating a new offer.
type CreateOfferRequest struct {
	CustomerID    uuid.UUID `json:"customerId" validate:"required"`
	InspectorID   uuid.UUID `json:"inspectorId" validate:"required"`
	LaborCents    int64     `json:"laborCents" validate:"min=0"`
	MaterialCents int64     `json:"materialCents" validate:"min=0"`
	TravelCents   int64     `json:"travelCents" validate:"min=0"`
	ValidityDays  int       `json:"validityDays" validate:"omitempty,min=1,max=365"`
}

// UpdateOfferStatusRequest is the request body for a manual status change.
type UpdateOfferStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=accepted rejected expired"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// ExtendValidityRequest pushes an offer's expiry deadline out.
type ExtendValidityRequest struct {
	ValidUntil time.Time `json:"validUntil" validate:"required"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// OfferResponse is the API shape of an offer.
type OfferResponse struct {
	ID               uuid.UUID  `json:"id"`
	BranchID         uuid.UUID  `json:"branchId"`
	CustomerID       uuid.UUID  `json:"customerId"`
	InspectorID      uuid.UUID  `json:"inspectorId"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	SentAt           *time.Time `json:"sentAt,omitempty"`
	RespondedAt      *time.Time `json:"respondedAt,omitempty"`
	EscalatedAt      *time.Time `json:"escalatedAt,omitempty"`
	LastNotifiedAt   *time.Time `json:"lastNotifiedAt,omitempty"`
	ValidUntil       time.Time  `json:"validUntil"`
	FollowUpAttempts int        `json:"followUpAttempts"`
	LaborCents       int64      `json:"laborCents"`
	MaterialCents    int64      `json:"materialCents"`
	TravelCents      int64      `json:"travelCents"`
	OverheadCents    int64      `json:"overheadCents"`
	ProfitCents      int64      `json:"profitCents"`
	TotalCents       int64      `json:"totalCents"`
}

// HistoryEntryResponse is one status history record.
type HistoryEntryResponse struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changedBy"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromOffer maps a stored offer to its API shape.
func FromOffer(o repository.Offer) OfferResponse {
	return OfferResponse{
		ID:               o.ID,
		BranchID:         o.BranchID,
		CustomerID:       o.CustomerID,
		InspectorID:      o.InspectorID,
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt,
		SentAt:           o.SentAt,
		RespondedAt:      o.RespondedAt,
		EscalatedAt:      o.EscalatedAt,
		LastNotifiedAt:   o.LastNotifiedAt,
		ValidUntil:       o.ValidUntil,
		FollowUpAttempts: o.FollowUpAttempts,
		LaborCents:       o.LaborCents,
		MaterialCents:    o.MaterialCents,
		TravelCents:      o.TravelCents,
		OverheadCents:    o.OverheadCents,
		ProfitCents:      o.ProfitCents,
		TotalCents:       o.TotalCents,
	}
}

// FromOffers maps a slice of stored offers.
func FromOffers(offers []repository.Offer) []OfferResponse {
	out := make([]OfferResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, FromOffer(o))
	}
	return out
}

// FromHistory maps status history records.
func FromHistory(entries []repository.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:        e.ID,
			Status:    string(e.Status),
			ChangedBy: e.ChangedBy,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
