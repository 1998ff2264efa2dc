// Package appointments provides the inspection scheduling domain module.
package appointments

import (
	apphttp "inspect_portal_backend/internal/http"
	"inspect_portal_backend/internal/appointments/handler"
	"inspect_portal_backend/internal/appointments/repository"
	"inspect_portal_backend/internal/appointments/service"
	"inspect_portal_backend/platform/events"
	"inspect_portal_backend/platform/logger"
	"inspect_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new appointments module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "appointments"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appts := ctx.Protected.Group("/appointments")
	m.handler.RegisterRoutes(appts)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
