package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscode22/payment-app/internal/core/domain"
)

// TokenRepository stores session tokens hashed. Plain tokens never touch the
// database.
type TokenRepository struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Save(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO auth_tokens (token_hash, user_id) VALUES ($1, $2)`, tokenHash, userID); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Lookup resolves a token hash back to its user.
func (r *TokenRepository) Lookup(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT user_id FROM auth_tokens WHERE token_hash = $1`, tokenHash).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrAuthenticationFailed
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup token: %w", err)
	}
	return userID, nil
}

// RevokeAllForUser drops every session the user holds. Called on signin (one
// active session policy) and on account deletion.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}
