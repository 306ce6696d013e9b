package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscode22/payment-app/internal/core/notifications"
)

const (
	pollInterval = 5 * time.Second
	maxAttempts  = 5
)

// StartWebhookWorker polls webhook_jobs and delivers pending notifications.
// FOR UPDATE SKIP LOCKED lets multiple instances share the queue without
// double-sending. The worker stops when ctx is cancelled.
func StartWebhookWorker(ctx context.Context, db *pgxpool.Pool, secret string) {
	go func() {
		slog.Info("Webhook worker started")
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("Webhook worker stopped")
				return
			case <-ticker.C:
				processJobs(ctx, db, secret)
			}
		}
	}()
}

func processJobs(ctx context.Context, db *pgxpool.Pool, secret string) {
	const query = `
		SELECT id, url, payload, attempts
		FROM webhook_jobs
		WHERE status = 'PENDING' AND next_run_at <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var id string
	var url string
	var payload []byte
	var attempts int

	if err := db.QueryRow(ctx, query).Scan(&id, &url, &payload, &attempts); err != nil {
		return
	}

	slog.Info("Worker: delivering webhook", "url", url, "job_id", id)

	if sendErr := notifications.SendWebhook(url, payload, secret); sendErr != nil {
		slog.Error("Worker: webhook delivery failed", "error", sendErr, "attempts", attempts, "job_id", id)
		if attempts+1 >= maxAttempts {
			db.Exec(ctx, `UPDATE webhook_jobs SET status = 'FAILED' WHERE id = $1`, id)
			slog.Error("Worker: job marked as FAILED, max attempts reached", "job_id", id)
			return
		}
		nextRun := time.Now().Add(time.Duration(attempts*10+10) * time.Second)
		db.Exec(ctx, `UPDATE webhook_jobs SET attempts = attempts + 1, next_run_at = $2 WHERE id = $1`, id, nextRun)
		slog.Info("Worker: scheduled retry", "next_run", nextRun, "job_id", id)
		return
	}

	db.Exec(ctx, `UPDATE webhook_jobs SET status = 'COMPLETED' WHERE id = $1`, id)
	slog.Info("Worker: webhook delivered", "job_id", id)
}
