package handler

import (
	"net/http"

	"inspect_portal_backend/internal/appointments/service"
	"inspect_portal_backend/internal/appointments/transport"
	"inspect_portal_backend/platform/httpkit"
	"inspect_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest       = "invalid request"
	msgValidationFailed     = "validation failed"
	msgInvalidAppointmentID = "invalid appointment id"
	msgBranchRequired       = "branch membership required"
)

// Handler handles HTTP requests for appointments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new appointments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the appointment routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Schedule)
	rg.POST("/check", h.CheckSlot)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/schedule", h.Reschedule)
	rg.POST("/:id/start", h.Start)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/no-show", h.NoShow)
	rg.POST("/:id/cancel", h.Cancel)
}

func (h *Handler) Schedule(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	branchID := ident.BranchID()
	if branchID == nil {
		httpkit.Error(c, http.StatusForbidden, msgBranchRequired, nil)
		return
	}

	var req transport.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Schedule(c.Request.Context(), service.ScheduleParams{
		BranchID:    *branchID,
		InspectorID: req.InspectorID,
		CustomerID:  req.CustomerID,
		OfferID:     req.OfferID,
		Start:       req.Start,
		End:         req.End,
		Location:    req.Location,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ScheduleResponse{
		Appointment: transport.FromAppointment(result.Appointment),
		Conflicts:   transport.FromConflicts(result.Conflicts),
		GapWarnings: transport.FromGapWarnings(result.GapWarnings),
	})
}

func (h *Handler) CheckSlot(c *gin.Context) {
	var req transport.CheckSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	excludeID := uuid.Nil
	if req.ExcludeID != nil {
		excludeID = *req.ExcludeID
	}

	conflicts, warnings, err := h.svc.CheckSlot(c.Request.Context(), req.InspectorID, req.Start, req.End, excludeID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SlotCheckResponse{
		Conflicts:   transport.FromConflicts(conflicts),
		GapWarnings: transport.FromGapWarnings(warnings),
	})
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

	appts, err := h.svc.List(c.Request.Context(), *branchID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromAppointments(appts))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appt, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromAppointment(appt))
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appt, err := h.svc.Cancel(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromAppointment(appt))
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appt, err := h.svc.Complete(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromAppointment(appt))
}

func (h *Handler) Start(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appt, err := h.svc.Start(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromAppointment(appt))
}

func (h *Handler) NoShow(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appt, err := h.svc.NoShow(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromAppointment(appt))
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req transport.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Reschedule(c.Request.Context(), id, req.Start, req.End)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ScheduleResponse{
		Appointment: transport.FromAppointment(result.Appointment),
		Conflicts:   transport.FromConflicts(result.Conflicts),
		GapWarnings: transport.FromGapWarnings(result.GapWarnings),
	})
}

func appointmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidAppointmentID, nil)
		return uuid.Nil, false
	}
	return id, true
}
