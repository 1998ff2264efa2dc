package handler

import (
	"fmt"
	"net/http"

	"inspect_portal_backend/internal/offers/domain"
	"inspect_portal_backend/internal/offers/repository"
	"inspect_portal_backend/internal/offers/service"
	"inspect_portal_backend/internal/offers/transport"
	"inspect_portal_backend/platform/httpkit"
	"inspect_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidOfferID   = "invalid offer id"
	msgBranchRequired   = "branch membership required"
)

// Handler handles HTTP requests for offers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new offers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the offer routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/send", h.Send)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/extend", h.ExtendValidity)
}

func (h *Handler) Create(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	branchID := ident.BranchID()
	if branchID == nil {
		httpkit.Error(c, http.StatusForbidden, msgBranchRequired, nil)
		return
	}

	var req transport.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	offer, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		BranchID:      *branchID,
		CustomerID:    req.CustomerID,
		InspectorID:   req.InspectorID,
		LaborCents:    req.LaborCents,
		MaterialCents: req.MaterialCents,
		TravelCents:   req.TravelCents,
		ValidityDays:  req.ValidityDays,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.FromOffer(offer))
}

func (h *Handler) List(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	branchID := ident.BranchID()
	if branchID == nil {
		httpkit.Error(c, http.StatusForbidden, msgBranchRequired, nil)
		return
	}

	offers, err := h.svc.List(c.Request.Context(), *branchID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromOffers(offers))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := offerID(c)
	if !ok {
		return
	}

	offer, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromOffer(offer))
}

func (h *Handler) History(c *gin.Context) {
	id, ok := offerID(c)
	if !ok {
		return
	}

	entries, err := h.svc.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromHistory(entries))
}

// Send dispatches a pending offer to its customer.
func (h *Handler) Send(c *gin.Context) {
	id, ok := offerID(c)
	if !ok {
		return
	}
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}

	offer, err := h.svc.Dispatch(c.Request.Context(), id, actorName(ident))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromOffer(offer))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := offerID(c)
	if !ok {
		return
	}
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}

	var req transport.UpdateOfferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var (
		updated repository.Offer
		err     error
	)
	switch domain.Status(req.Status) {
	case domain.StatusAccepted:
		updated, err = h.svc.Accept(c.Request.Context(), id, actorName(ident))
	case domain.StatusRejected:
		updated, err = h.svc.Reject(c.Request.Context(), id, actorName(ident), req.Reason)
	default:
		updated, err = h.svc.Transition(c.Request.Context(), id, domain.Status(req.Status), actorName(ident), req.Reason)
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromOffer(updated))
}

func (h *Handler) ExtendValidity(c *gin.Context) {
	id, ok := offerID(c)
	if !ok {
		return
	}
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}

	var req transport.ExtendValidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	offer, err := h.svc.ExtendValidity(c.Request.Context(), id, req.ValidUntil, actorName(ident))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromOffer(offer))
}

func offerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidOfferID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func actorName(ident httpkit.Identity) string {
	return fmt.Sprintf("user:%s", ident.UserID())
}
