package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository tracks request keys and their recorded responses.
// A key row with NULL response columns is a reservation: the first attempt
// claimed the key and is still running.
type IdempotencyRepository struct {
	db *pgxpool.Pool
}

func NewIdempotencyRepository(db *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Reserve claims the key. It reports false when another request holds it,
// finished or not.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key_id) VALUES ($1) ON CONFLICT DO NOTHING`, key)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Lookup returns the recorded response for the key. recorded is false when
// the key is only reserved or unknown.
func (r *IdempotencyRepository) Lookup(ctx context.Context, key string) (status int, body []byte, recorded bool, err error) {
	var recordedStatus *int
	err = r.db.QueryRow(ctx,
		`SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1`,
		key).Scan(&recordedStatus, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if recordedStatus == nil {
		return 0, nil, false, nil
	}
	return *recordedStatus, body, true, nil
}

// Complete records the response against the reservation. A key that already
// carries a response keeps it.
func (r *IdempotencyRepository) Complete(ctx context.Context, key string, status int, body []byte) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE idempotency_keys SET response_status = $2, response_body = $3
		 WHERE key_id = $1 AND response_status IS NULL`,
		key, status, body); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release drops an unfinished reservation so the client can retry the key.
// Recorded responses are never released.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE key_id = $1 AND response_status IS NULL`, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
