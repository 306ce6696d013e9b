// Package engine implements the funds-transfer and balance-consistency core:
// moving money between two accounts atomically, recording an auditable ledger
// entry, and guaranteeing no transfer is ever left half-applied.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/port"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// Notifier is told about committed transfers, after the fact. Delivery is
// best-effort and must never influence the outcome of the transfer itself.
type Notifier interface {
	TransferCompleted(ctx context.Context, entry domain.LedgerEntry)
}

type multiNotifier []Notifier

func (m multiNotifier) TransferCompleted(ctx context.Context, entry domain.LedgerEntry) {
	for _, n := range m {
		n.TransferCompleted(ctx, entry)
	}
}

// MultiNotifier fans one completion out to several notifiers. With no
// arguments it returns nil, which the engine treats as "nobody to tell".
func MultiNotifier(notifiers ...Notifier) Notifier {
	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return multiNotifier(notifiers)
	}
}

// Engine orchestrates transfers over the account and ledger stores. It holds
// no in-memory locks; serialization comes from the stores' unit of work.
type Engine struct {
	accounts port.AccountStore
	ledger   port.LedgerStore
	tx       port.TxRunner
	verifier port.CredentialVerifier
	notifier Notifier
	timeout  time.Duration
}

type Option func(*Engine)

// WithNotifier attaches a post-commit notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithTimeout bounds how long one unit of work may run before it is aborted.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func New(accounts port.AccountStore, ledger port.LedgerStore, tx port.TxRunner, verifier port.CredentialVerifier, opts ...Option) *Engine {
	e := &Engine{
		accounts: accounts,
		ledger:   ledger,
		tx:       tx,
		verifier: verifier,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetBalance is the read-only balance accessor. It takes no locks and never
// observes an uncommitted transfer.
func (e *Engine) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	account, err := e.accounts.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// Pagination describes one page of a ledger listing.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
}

// ListTransactions returns one page of the caller's ledger history, newest
// first. Out-of-range pagination inputs fall back to page 1 / limit 10, and
// the limit is capped at 50.
func (e *Engine) ListTransactions(ctx context.Context, userID uuid.UUID, direction domain.Direction, page, limit int) ([]domain.LedgerEntry, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	filter := domain.LedgerFilter{ParticipantID: userID, Direction: direction}
	entries, total, err := e.ledger.Find(ctx, filter, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return entries, Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
	}, nil
}

// DeleteAccount removes the user's account and every ledger entry referencing
// it, in one unit of work. Session invalidation is the identity collaborator's
// job and happens at the handler layer.
func (e *Engine) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if _, err := e.accounts.Get(ctx, userID); err != nil {
		return err
	}
	return e.tx.RunInTx(ctx, func(uow port.UnitOfWork) error {
		if err := e.ledger.DeleteAllForUser(ctx, uow, userID); err != nil {
			return err
		}
		return e.accounts.Delete(ctx, uow, userID)
	})
}
