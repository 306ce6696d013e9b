package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscode22/payment-app/internal/core/port"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories can
// run the same statements standalone or inside a unit of work.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var errForeignUnitOfWork = errors.New("unit of work is not a postgres transaction")

// resolve picks the execution target: the pool for standalone calls, the
// caller's transaction inside a unit of work.
func resolve(db *pgxpool.Pool, uow port.UnitOfWork) (querier, error) {
	if uow == nil {
		return db, nil
	}
	tx, ok := uow.(pgx.Tx)
	if !ok {
		return nil, errForeignUnitOfWork
	}
	return tx, nil
}

// TxRunner opens pgx transactions as the engine's unit of work. Row locks
// taken by statements inside the transaction serialize conflicting units.
type TxRunner struct {
	db *pgxpool.Pool
}

func NewTxRunner(db *pgxpool.Pool) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ConnectDB initializes the connection pool
func ConnectDB(databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return pool, nil
}

// Initialize creates the schema if it does not exist yet.
func Initialize(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id UUID PRIMARY KEY REFERENCES users(id),
			balance NUMERIC(18, 2) NOT NULL CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			from_user_id UUID NOT NULL,
			to_user_id UUID NOT NULL,
			amount NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
			status TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions (from_user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions (to_user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS auth_tokens (
			token_hash TEXT PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			key_id TEXT PRIMARY KEY,
			response_status INT,
			response_body BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_jobs (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL,
			payload JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			attempts INT NOT NULL DEFAULT 0,
			next_run_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	return nil
}

var _ port.TxRunner = (*TxRunner)(nil)
