// Package offers provides the offer lifecycle domain module.
package offers

import (
	apphttp "inspect_portal_backend/internal/http"
	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/offers/handler"
	"inspect_portal_backend/internal/offers/repository"
	"inspect_portal_backend/internal/offers/service"
	"inspect_portal_backend/platform/config"
	"inspect_portal_backend/platform/events"
	"inspect_portal_backend/platform/logger"
	"inspect_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the offers domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new offers module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus *events.InMemoryBus, val *validator.Validator, dispatcher notification.Dispatcher, cfg config.OfferAutomationConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, dispatcher, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "offers"
}

// Service returns the service layer for external use (scheduler wiring).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	offers := ctx.Protected.Group("/offers")
	m.handler.RegisterRoutes(offers)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
