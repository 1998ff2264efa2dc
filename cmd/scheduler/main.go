package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspect_portal_backend/internal/email"
	"inspect_portal_backend/internal/events"
	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/notification/outbox"
	"inspect_portal_backend/internal/offers"
	"inspect_portal_backend/internal/scheduler"
	weatherrepo "inspect_portal_backend/internal/weather/repository"
	weatherservice "inspect_portal_backend/internal/weather/service"
	"inspect_portal_backend/platform/config"
	"inspect_portal_backend/platform/db"
	"inspect_portal_backend/platform/logger"
	"inspect_portal_backend/platform/validator"

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

	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := notification.NewOutboxDispatcher(outbox.New(pool), client, log)

	val := validator.New()

	// Worker-side offer wiring (no HTTP handlers required).
	offersModule := offers.NewModule(pool, eventBus, val, dispatcher, cfg, log)
	offersService := offersModule.Service()

	outboxDispatcher := scheduler.NewNotificationOutboxDispatcher(client, pool, log)
	go outboxDispatcher.Run(ctx)

	offerSweep := scheduler.NewOfferSweepRunner(offersService, log, cfg.GetOfferSweepInterval())
	go offerSweep.Run(ctx)

	// Weather alerts run off a pluggable condition source; without an external
	// feed configured the noop source keeps the sweep idle.
	weatherEvaluator := weatherservice.NewEvaluator(weatherrepo.New(pool), weatherservice.NoopSource{}, dispatcher, cfg, log)
	weatherSweep := scheduler.NewWeatherSweepRunner(weatherEvaluator, log, cfg.GetWeatherSweepInterval())
	go weatherSweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, pool, sender, offersService, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
