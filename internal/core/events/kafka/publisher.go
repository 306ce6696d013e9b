package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/events"
)

const topic = "transfer_completed"

// Publisher emits transfer events to Kafka. Publishing is best-effort; a
// broker failure is logged and never affects the committed transfer.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) TransferCompleted(ctx context.Context, entry domain.LedgerEntry) {
	event := events.TransferCompleted{
		TransactionID: entry.ID.String(),
		FromUserID:    entry.FromUserID.String(),
		ToUserID:      entry.ToUserID.String(),
		Amount:        entry.Amount,
		OccurredAt:    entry.UpdatedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal transfer event", "error", err, "transaction_id", event.TransactionID)
		return
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: data}); err != nil {
		slog.Error("failed to publish transfer event", "error", err, "transaction_id", event.TransactionID)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
