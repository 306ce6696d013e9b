package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferCompleted is emitted after a transfer's unit of work commits.
type TransferCompleted struct {
	TransactionID string          `json:"transaction_id"`
	FromUserID    string          `json:"from_user_id"`
	ToUserID      string          `json:"to_user_id"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
