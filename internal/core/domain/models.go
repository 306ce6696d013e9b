package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is the identity record owning exactly one Account.
type User struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// Account holds a user's balance in exact decimal units.
// Balance is never negative at any commit point.
type Account struct {
	UserID    uuid.UUID
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransferStatus is the lifecycle state of a ledger entry.
type TransferStatus string

const (
	StatusPending   TransferStatus = "pending"
	StatusCompleted TransferStatus = "completed"
	StatusFailed    TransferStatus = "failed"
)

// Direction filters ledger queries relative to a participant.
type Direction string

const (
	DirectionAll      Direction = "all"
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ParseDirection maps a query-string value onto a Direction,
// defaulting to all for anything unrecognized.
func ParseDirection(s string) Direction {
	switch Direction(s) {
	case DirectionSent, DirectionReceived:
		return Direction(s)
	default:
		return DirectionAll
	}
}

// LedgerEntry records one transfer attempt. A completed entry means both
// the debit and the credit were durably applied; failed means neither was.
type LedgerEntry struct {
	ID          uuid.UUID
	FromUserID  uuid.UUID
	ToUserID    uuid.UUID
	Amount      decimal.Decimal
	Status      TransferStatus
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LedgerFilter selects entries for one participant.
type LedgerFilter struct {
	ParticipantID uuid.UUID
	Direction     Direction
}
