package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookQueue persists outbound notification jobs for the background worker.
type WebhookQueue struct {
	db *pgxpool.Pool
}

func NewWebhookQueue(db *pgxpool.Pool) *WebhookQueue {
	return &WebhookQueue{db: db}
}

func (q *WebhookQueue) Enqueue(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	if _, err := q.db.Exec(ctx,
		`INSERT INTO webhook_jobs (id, url, payload) VALUES ($1, $2, $3)`,
		uuid.New(), url, body); err != nil {
		return fmt.Errorf("enqueue webhook job: %w", err)
	}
	return nil
}
