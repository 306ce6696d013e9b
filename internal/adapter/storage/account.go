package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/port"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Get(ctx context.Context, userID uuid.UUID) (domain.Account, error) {
	const query = `SELECT user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1`

	var acc domain.Account
	err := r.db.QueryRow(ctx, query, userID).Scan(&acc.UserID, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) Create(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID, initialBalance decimal.Decimal) (domain.Account, error) {
	q, err := resolve(r.db, uow)
	if err != nil {
		return domain.Account{}, err
	}

	const query = `
		INSERT INTO accounts (user_id, balance)
		VALUES ($1, $2)
		RETURNING user_id, balance, created_at, updated_at
	`

	var acc domain.Account
	err = q.QueryRow(ctx, query, userID, initialBalance).Scan(&acc.UserID, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Account{}, domain.ErrAccountAlreadyExists
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

// ApplyDelta mutates the balance with a single conditional UPDATE. The UPDATE
// takes the row lock for the rest of the unit of work, so concurrent deltas
// against the same account serialize and the funds check always runs against
// the post-lock balance, never a stale read.
func (r *AccountRepository) ApplyDelta(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID, delta decimal.Decimal) (domain.Account, error) {
	q, err := resolve(r.db, uow)
	if err != nil {
		return domain.Account{}, err
	}

	const query = `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE user_id = $2 AND balance + $1 >= 0
		RETURNING user_id, balance, created_at, updated_at
	`

	var acc domain.Account
	err = q.QueryRow(ctx, query, delta, userID).Scan(&acc.UserID, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the account is gone or the guard blocked a negative balance.
		var exists bool
		if probeErr := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE user_id = $1)`, userID).Scan(&exists); probeErr != nil {
			return domain.Account{}, fmt.Errorf("apply delta: %w", probeErr)
		}
		if !exists {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, domain.ErrInsufficientFunds
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("apply delta: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) Delete(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID) error {
	q, err := resolve(r.db, uow)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ port.AccountStore = (*AccountRepository)(nil)
