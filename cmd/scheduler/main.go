package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/broker"
	"leadflow_backend/internal/crmsync"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	crm := initCRMClient(cfg, log)
	publisher, closePublisher := initPublisher(ctx, cfg, log)
	if closePublisher != nil {
		defer closePublisher()
	}

	leadSync := scheduler.NewLeadSyncHandler(leadrepo.New(pool), crm, publisher, cfg.GetPhoneDefaultRegion(), log)

	worker, err := scheduler.NewWorker(cfg, leadSync, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// initCRMClient returns an untyped nil when the CRM push is not configured
// so the handler skips that sink.
func initCRMClient(cfg config.CRMSyncConfig, log *logger.Logger) scheduler.ContactPusher {
	client := crmsync.NewClient(cfg, log)
	if client == nil {
		log.Warn("CRM_BASE_URL or CRM_API_TOKEN not configured; CRM push disabled")
		return nil
	}
	return client
}

func initPublisher(ctx context.Context, cfg config.BrokerConfig, log *logger.Logger) (broker.LeadSyncedPublisher, func()) {
	if !cfg.IsBrokerEnabled() {
		log.Warn("RABBITMQ_URL not configured; lead.synced fan-out disabled")
		return nil, nil
	}

	var publisher *broker.Publisher
	if err := withRetry(ctx, log, "rabbitmq connection", 5, 2*time.Second, func() error {
		p, err := broker.NewPublisher(cfg)
		if err != nil {
			return err
		}
		publisher = p
		return nil
	}); err != nil {
		log.Error("failed to connect to rabbitmq", "error", err)
		panic("failed to connect to rabbitmq: " + err.Error())
	}

	return publisher, func() {
		_ = publisher.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
