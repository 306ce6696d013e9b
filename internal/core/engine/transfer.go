package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/port"
)

// Transfer moves amount from sender to receiver and records the attempt in
// the ledger. Preconditions are checked in order before anything durable is
// touched; the first failing check wins and leaves zero side effects.
//
// Once preconditions pass, a pending ledger entry is written, then the debit,
// the credit and the pending->completed transition run inside one unit of
// work. A failure anywhere in that unit rolls the whole unit back and the
// entry is marked failed. A crash between the entry write and the commit
// leaves a pending entry with untouched balances, which reconciliation can
// resolve later.
func (e *Engine) Transfer(ctx context.Context, senderID, receiverID uuid.UUID, amount decimal.Decimal, reauthSecret, description string) (domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return domain.LedgerEntry{}, domain.ErrInvalidAmount
	}
	if senderID == receiverID {
		return domain.LedgerEntry{}, domain.ErrSelfTransfer
	}

	// Step-up re-authentication at transfer time, beyond session validity.
	if err := e.verifier.VerifyCredential(ctx, senderID, reauthSecret); err != nil {
		return domain.LedgerEntry{}, domain.ErrAuthenticationFailed
	}

	sender, err := e.accounts.Get(ctx, senderID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.LedgerEntry{}, domain.ErrSenderNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	if _, err := e.accounts.Get(ctx, receiverID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.LedgerEntry{}, domain.ErrReceiverNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	// Advisory pre-check. The authoritative check happens under the row lock
	// inside the unit of work; this one just rejects the obvious case before
	// a ledger entry exists.
	if sender.Balance.LessThan(amount) {
		return domain.LedgerEntry{}, domain.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	entry, err := e.ledger.Create(ctx, domain.LedgerEntry{
		ID:          uuid.New(),
		FromUserID:  senderID,
		ToUserID:    receiverID,
		Amount:      amount,
		Status:      domain.StatusPending,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	txCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	txErr := e.tx.RunInTx(txCtx, func(uow port.UnitOfWork) error {
		debit := func() error {
			_, err := e.accounts.ApplyDelta(txCtx, uow, senderID, amount.Neg())
			return err
		}
		credit := func() error {
			_, err := e.accounts.ApplyDelta(txCtx, uow, receiverID, amount)
			return err
		}
		// Lock the two rows in a fixed ID order, so opposing concurrent
		// transfers between the same pair cannot deadlock.
		first, second := debit, credit
		if bytes.Compare(receiverID[:], senderID[:]) < 0 {
			first, second = credit, debit
		}
		if err := first(); err != nil {
			return err
		}
		if err := second(); err != nil {
			return err
		}
		updated, err := e.ledger.UpdateStatus(txCtx, uow, entry.ID, domain.StatusCompleted)
		if err != nil {
			return err
		}
		entry = updated
		return nil
	})
	if txErr != nil {
		e.markFailed(entry.ID)
		return domain.LedgerEntry{}, classifyTxError(txErr)
	}

	if e.notifier != nil {
		go e.notifier.TransferCompleted(context.WithoutCancel(ctx), entry)
	}
	return entry, nil
}

// markFailed transitions the entry outside the aborted unit of work, so the
// attempt is never left pending after the request returns. Best effort: if
// the store is down the entry stays pending for reconciliation. When only the
// commit confirmation was lost, the entry is already completed and the store
// leaves it untouched.
func (e *Engine) markFailed(entryID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := e.ledger.UpdateStatus(ctx, nil, entryID, domain.StatusFailed); err != nil {
		slog.Error("failed to mark ledger entry as failed", "error", err, "entry_id", entryID)
	}
}

// classifyTxError separates domain outcomes surfaced from inside the unit of
// work from transient infrastructure failures.
func classifyTxError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return domain.ErrInsufficientFunds
	case errors.Is(err, domain.ErrAccountNotFound):
		// An account vanished between the precondition read and the lock.
		return domain.ErrReceiverNotFound
	default:
		slog.Error("transfer unit of work aborted", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
}
