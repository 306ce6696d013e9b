package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/events"
)

// SendWebhook posts the JSON payload to the subscriber's URL, signed with an
// HMAC of the body so the receiver can verify origin.
func SendWebhook(url string, payload []byte, secret string) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PaymentApp-Webhook/1.0")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))

	// Don't let slow subscribers block the worker.
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("subscriber returned error: %d", resp.StatusCode)
}

// JobQueue is where the notifier parks outbound jobs for the worker.
type JobQueue interface {
	Enqueue(ctx context.Context, url string, payload any) error
}

// WebhookNotifier enqueues a transfer.completed webhook job after a transfer
// commits. The background worker owns delivery and retries.
type WebhookNotifier struct {
	Queue JobQueue
	URL   string
}

func (n *WebhookNotifier) TransferCompleted(ctx context.Context, entry domain.LedgerEntry) {
	payload := map[string]any{
		"event": "transfer.completed",
		"data": events.TransferCompleted{
			TransactionID: entry.ID.String(),
			FromUserID:    entry.FromUserID.String(),
			ToUserID:      entry.ToUserID.String(),
			Amount:        entry.Amount,
			OccurredAt:    entry.UpdatedAt,
		},
	}
	if err := n.Queue.Enqueue(ctx, n.URL, payload); err != nil {
		slog.Error("failed to enqueue webhook job", "error", err, "transaction_id", entry.ID)
	}
}
