package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inspect_portal_backend/internal/email"
	"inspect_portal_backend/internal/notification"
	"inspect_portal_backend/internal/notification/outbox"
	"inspect_portal_backend/platform/config"
	"inspect_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// retryDelays is the fixed backoff schedule for notification delivery.
// After the last retry fails the message is marked permanently failed.
var retryDelays = []time.Duration{5 * time.Second, 10 * time.Second, 30 * time.Second}

// retryDelay maps the n-th delivery retry (1-based) onto the schedule,
// clamping past the last rung.
func retryDelay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if n > len(retryDelays) {
		n = len(retryDelays)
	}
	return retryDelays[n-1]
}

// retryDelayFunc adapts retryDelay to asynq, which passes the number of
// retries already performed (zero on the first failure), not the number of
// the retry about to run.
func retryDelayFunc(retried int, _ error, _ *asynq.Task) time.Duration {
	return retryDelay(retried + 1)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	outbox  *outbox.Repository
	sender  email.Sender
	failure notification.FailureRecorder
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, sender email.Sender, failure notification.FailureRecorder, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		RetryDelayFunc: retryDelayFunc,
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		outbox:  outbox.New(pool),
		sender:  sender,
		failure: failure,
		log:     log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleNotificationOutboxDue delivers one outbox message. A returned error
// makes asynq retry on the fixed backoff schedule; when the last attempt
// fails the message is marked failed and the offer's history annotated.
func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	rec, err := w.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}
	if rec.Status == outbox.StatusSucceeded {
		return nil
	}

	if err := w.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if err := w.deliver(ctx, rec); err != nil {
		retryCount, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		attempts := retryCount + 1

		if retryCount >= maxRetry {
			w.log.DispatchFailure(rec.Template, rec.RecipientEmail, attempts, err)
			if markErr := w.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
				w.log.Error("failed to mark outbox message failed",
					"message_id", rec.ID, "error", markErr)
			}
			if rec.OfferID != nil && w.failure != nil {
				if recErr := w.failure.RecordNotificationFailure(ctx, *rec.OfferID, rec.Template, err.Error()); recErr != nil {
					w.log.Error("failed to record notification failure",
						"offer_id", *rec.OfferID, "error", recErr)
				}
			}
			return fmt.Errorf("%w: delivery failed after %d attempts: %v", asynq.SkipRetry, attempts, err)
		}

		w.log.Warn("notification delivery failed, will retry",
			"message_id", rec.ID, "template", rec.Template, "attempt", attempts, "error", err)
		return err
	}

	return w.outbox.MarkSucceeded(ctx, rec.ID)
}

func (w *Worker) deliver(ctx context.Context, rec outbox.Record) error {
	var payload map[string]any
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}

	switch rec.Template {
	case notification.TemplateOfferDispatched:
		return w.sender.SendOfferDispatchedEmail(ctx, rec.RecipientEmail, rec.RecipientName,
			payloadInt64(payload, "total_cents"), payloadTime(payload, "valid_until"))
	case notification.TemplateOfferReminder:
		return w.sender.SendOfferReminderEmail(ctx, rec.RecipientEmail, rec.RecipientName,
			int(payloadInt64(payload, "attempt")),
			payloadInt64(payload, "total_cents"), payloadTime(payload, "valid_until"))
	case notification.TemplateOfferEscalation:
		offerID := ""
		if rec.OfferID != nil {
			offerID = rec.OfferID.String()
		}
		return w.sender.SendOfferEscalationEmail(ctx, rec.RecipientEmail, rec.RecipientName,
			offerID, int(payloadInt64(payload, "days_open")), payloadInt64(payload, "total_cents"))
	case notification.TemplateWeatherAlert:
		return w.sender.SendWeatherAlertEmail(ctx, rec.RecipientEmail, rec.RecipientName,
			payloadString(payload, "region"), payloadString(payload, "severity"), payloadString(payload, "headline"))
	default:
		return fmt.Errorf("unknown notification template %q", rec.Template)
	}
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt64(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func payloadTime(payload map[string]any, key string) time.Time {
	raw, ok := payload[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
