package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/port"
	"github.com/pscode22/payment-app/internal/core/security"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, password_hash, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, uow port.UnitOfWork, user domain.User) (domain.User, error) {
	q, err := resolve(r.db, uow)
	if err != nil {
		return domain.User{}, err
	}

	const query = `
		INSERT INTO users (id, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	created, err := scanUser(q.QueryRow(ctx, query, user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash))
	if isUniqueViolation(err) {
		return domain.User{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// Search finds other users by a case-insensitive name fragment, excluding the
// caller. Only directory fields come back, never credentials or balances.
func (r *UserRepository) Search(ctx context.Context, name string, excludeID uuid.UUID) ([]domain.User, error) {
	const query = `
		SELECT id, first_name, last_name FROM users
		WHERE id <> $1 AND (first_name ILIKE '%' || $2 || '%' OR last_name ILIKE '%' || $2 || '%')
		ORDER BY first_name, last_name
		LIMIT 50
	`

	rows, err := r.db.Query(ctx, query, excludeID, name)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, uow port.UnitOfWork, id uuid.UUID) error {
	q, err := resolve(r.db, uow)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// VerifyCredential is the engine's step-up authentication check. Any miss,
// unknown user or wrong secret alike, reports the same generic failure.
func (r *UserRepository) VerifyCredential(ctx context.Context, userID uuid.UUID, secret string) error {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return domain.ErrAuthenticationFailed
	}
	if !security.CheckPassword(secret, user.PasswordHash) {
		return domain.ErrAuthenticationFailed
	}
	return nil
}

var (
	_ port.UserStore          = (*UserRepository)(nil)
	_ port.CredentialVerifier = (*UserRepository)(nil)
)
