// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/reconcile"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	reconciler *reconcile.Reconciler
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, sync ports.SyncDispatcher, val *validator.Validator, cfg config.PhoneConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)

	// Create focused services (vertical slices)
	transitions := pipeline.New(repo, sync, eventBus, log)
	mgmtSvc := management.New(repo, transitions, sync, eventBus, cfg.GetPhoneDefaultRegion())
	reconciler := reconcile.New(repo, sync, eventBus, log)

	return &Module{
		handler:    handler.New(mgmtSvc, val),
		reconciler: reconciler,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Reconciler returns the inbound contact reconciler for the webhook module.
func (m *Module) Reconciler() *reconcile.Reconciler {
	return m.reconciler
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
