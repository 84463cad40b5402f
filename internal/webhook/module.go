// Package webhook provides the inbound CRM webhook bounded context module.
// This file defines the module that encapsulates all webhook setup and route registration.
package webhook

import (
	"leadflow_backend/internal/companies"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config combines the settings the webhook module reads.
type Config interface {
	config.WebhookConfig
	config.PhoneConfig
}

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	archive *ArchiveHandler
	secret  string
	limiter *httpkit.WebhookRateLimiter
}

// NewModule creates and initializes the webhook module with all its dependencies.
// archiver is nil when payload archiving is disabled.
func NewModule(pool *pgxpool.Pool, reconciler ContactReconciler, archiver *PayloadArchiver, eventBus events.Bus, cfg Config, log *logger.Logger) (*Module, error) {
	aliases, err := LoadAliases(cfg.GetWebhookAliasesFile())
	if err != nil {
		return nil, err
	}

	normalizer := NewNormalizer(aliases, cfg.GetPhoneDefaultRegion())
	service := NewService(normalizer, companies.NewRepository(pool), reconciler, eventBus, log)

	var archive *ArchiveHandler
	if archiver != nil {
		archive = NewArchiveHandler(archiver)
	}

	return &Module{
		handler: NewHandler(service),
		archive: archive,
		secret:  cfg.GetWebhookSecret(),
		limiter: httpkit.NewWebhookRateLimiter(cfg.GetWebhookRateLimit(), cfg.GetWebhookRateBurst(), log),
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public webhook endpoint (shared secret, no JWT)
	webhookGroup := ctx.V1.Group("/webhook")
	webhookGroup.Use(m.limiter.RateLimit(), SharedSecretMiddleware(m.secret))
	webhookGroup.POST("/crm", m.handler.HandleCRMContact)

	if m.archive != nil {
		m.archive.RegisterRoutes(ctx.Admin.Group("/webhook/payloads"))
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
