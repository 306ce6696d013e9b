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
)

type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const entryColumns = `id, from_user_id, to_user_id, amount, status, description, created_at, updated_at`

func scanEntry(row pgx.Row) (domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(&e.ID, &e.FromUserID, &e.ToUserID, &e.Amount, &e.Status, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *LedgerRepository) Create(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	const query = `
		INSERT INTO transactions (id, from_user_id, to_user_id, amount, status, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + entryColumns

	created, err := scanEntry(r.db.QueryRow(ctx, query,
		entry.ID, entry.FromUserID, entry.ToUserID, entry.Amount,
		entry.Status, entry.Description, entry.CreatedAt, entry.UpdatedAt))
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("create ledger entry: %w", err)
	}
	return created, nil
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, uow port.UnitOfWork, id uuid.UUID, status domain.TransferStatus) (domain.LedgerEntry, error) {
	q, err := resolve(r.db, uow)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	// Only pending entries move; completed and failed are immutable, so a
	// late failure marker can never overwrite a commit that actually landed.
	const query = `
		UPDATE transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + entryColumns

	updated, err := scanEntry(q.QueryRow(ctx, query, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		// Missing, or already terminal. Terminal entries come back unchanged.
		current, selErr := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM transactions WHERE id = $1`, id))
		if errors.Is(selErr, pgx.ErrNoRows) {
			return domain.LedgerEntry{}, domain.ErrEntryNotFound
		}
		if selErr != nil {
			return domain.LedgerEntry{}, fmt.Errorf("update ledger status: %w", selErr)
		}
		return current, nil
	}
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("update ledger status: %w", err)
	}
	return updated, nil
}

// Find pages through a participant's entries, newest first. The caller
// (engine) has already normalized page and limit.
func (r *LedgerRepository) Find(ctx context.Context, filter domain.LedgerFilter, page, limit int) ([]domain.LedgerEntry, int, error) {
	var where string
	switch filter.Direction {
	case domain.DirectionSent:
		where = `from_user_id = $1`
	case domain.DirectionReceived:
		where = `to_user_id = $1`
	default:
		where = `(from_user_id = $1 OR to_user_id = $1)`
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, filter.ParticipantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	query := `SELECT ` + entryColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, filter.ParticipantID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("find ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *LedgerRepository) DeleteAllForUser(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID) error {
	q, err := resolve(r.db, uow)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, `DELETE FROM transactions WHERE from_user_id = $1 OR to_user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}
	return nil
}

var _ port.LedgerStore = (*LedgerRepository)(nil)
