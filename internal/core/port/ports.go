// Package port defines the storage and collaborator contracts the transfer
// engine depends on. Implementations live under internal/adapter/storage;
// an in-memory variant backs the tests.
package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/core/domain"
)

// UnitOfWork is an opaque handle to an in-progress atomic unit. Store
// implementations type-assert it back to their own transaction type. A nil
// UnitOfWork means the operation runs standalone, outside any unit.
type UnitOfWork any

// TxRunner opens an atomic unit of work spanning the stores created from the
// same backend. Either every mutation performed through the unit commits, or
// none do. Conflicting units on the same account serialize.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// AccountStore is the durable userID -> balance record.
type AccountStore interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.Account, error)
	Create(ctx context.Context, uow UnitOfWork, userID uuid.UUID, initialBalance decimal.Decimal) (domain.Account, error)

	// ApplyDelta adds delta to the balance only if the result stays >= 0.
	// The store serializes concurrent deltas against the same account for
	// the duration of the unit of work, so the funds check always sees the
	// post-lock balance.
	ApplyDelta(ctx context.Context, uow UnitOfWork, userID uuid.UUID, delta decimal.Decimal) (domain.Account, error)

	Delete(ctx context.Context, uow UnitOfWork, userID uuid.UUID) error
}

// UserStore is the slice of the identity record the registration and signin
// flows touch.
type UserStore interface {
	Create(ctx context.Context, uow UnitOfWork, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// LedgerStore is the append-oriented record of transfer attempts.
type LedgerStore interface {
	Create(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error)

	// UpdateStatus moves a pending entry to a terminal status. Completed and
	// failed are immutable: updating an entry already in a terminal status
	// returns it unchanged.
	UpdateStatus(ctx context.Context, uow UnitOfWork, id uuid.UUID, status domain.TransferStatus) (domain.LedgerEntry, error)

	// Find returns one page of entries ordered by creation time descending,
	// plus the total count matching the filter.
	Find(ctx context.Context, filter domain.LedgerFilter, page, limit int) ([]domain.LedgerEntry, int, error)

	DeleteAllForUser(ctx context.Context, uow UnitOfWork, userID uuid.UUID) error
}

// CredentialVerifier is the identity collaborator checked at transfer time.
// Step-up re-authentication, distinct from ambient session validity.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, userID uuid.UUID, secret string) error
}
