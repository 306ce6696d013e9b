// Package memory is an in-memory implementation of the engine's store ports.
// It backs the test suite and local development. One mutex guards the whole
// store; a unit of work holds the mutex for its full duration and rolls back
// by restoring a snapshot, so commits are all-or-nothing like the real thing.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/port"
)

var errForeignUnitOfWork = errors.New("unit of work does not belong to this store")

type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]domain.User
	accounts map[uuid.UUID]domain.Account
	entries  map[uuid.UUID]domain.LedgerEntry
	order    []uuid.UUID // entry ids in insertion order
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]domain.User),
		accounts: make(map[uuid.UUID]domain.Account),
		entries:  make(map[uuid.UUID]domain.LedgerEntry),
	}
}

// tx marks an open unit of work. While one exists the store mutex is held,
// so operations handed a tx must not lock again.
type tx struct {
	store *Store
}

// RunInTx serializes the unit against every other store operation and
// restores the pre-unit snapshot if fn fails.
func (s *Store) RunInTx(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapUsers := maps.Clone(s.users)
	snapAccounts := maps.Clone(s.accounts)
	snapEntries := maps.Clone(s.entries)
	snapOrder := slices.Clone(s.order)

	if err := fn(&tx{store: s}); err != nil {
		s.users = snapUsers
		s.accounts = snapAccounts
		s.entries = snapEntries
		s.order = snapOrder
		return err
	}
	return nil
}

// acquire locks the store for a standalone call, or validates that the
// caller's unit of work belongs to this store.
func (s *Store) acquire(uow port.UnitOfWork) (func(), error) {
	if uow == nil {
		s.mu.Lock()
		return s.mu.Unlock, nil
	}
	t, ok := uow.(*tx)
	if !ok || t.store != s {
		return nil, errForeignUnitOfWork
	}
	return func() {}, nil
}

func (s *Store) Get(ctx context.Context, userID uuid.UUID) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Store) Create(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID, initialBalance decimal.Decimal) (domain.Account, error) {
	release, err := s.acquire(uow)
	if err != nil {
		return domain.Account{}, err
	}
	defer release()

	if _, ok := s.accounts[userID]; ok {
		return domain.Account{}, domain.ErrAccountAlreadyExists
	}
	now := time.Now().UTC()
	account := domain.Account{
		UserID:    userID,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[userID] = account
	return account, nil
}

func (s *Store) ApplyDelta(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID, delta decimal.Decimal) (domain.Account, error) {
	release, err := s.acquire(uow)
	if err != nil {
		return domain.Account{}, err
	}
	defer release()

	account, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	next := account.Balance.Add(delta)
	if next.IsNegative() {
		return domain.Account{}, domain.ErrInsufficientFunds
	}
	account.Balance = next
	account.UpdatedAt = time.Now().UTC()
	s.accounts[userID] = account
	return account, nil
}

func (s *Store) Delete(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID) error {
	release, err := s.acquire(uow)
	if err != nil {
		return err
	}
	defer release()

	if _, ok := s.accounts[userID]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(s.accounts, userID)
	return nil
}

func (s *Store) CreateEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)
	return entry, nil
}

func (s *Store) UpdateStatus(ctx context.Context, uow port.UnitOfWork, id uuid.UUID, status domain.TransferStatus) (domain.LedgerEntry, error) {
	release, err := s.acquire(uow)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	defer release()

	entry, ok := s.entries[id]
	if !ok {
		return domain.LedgerEntry{}, domain.ErrEntryNotFound
	}
	if entry.Status != domain.StatusPending {
		// Terminal statuses are immutable.
		return entry, nil
	}
	entry.Status = status
	entry.UpdatedAt = time.Now().UTC()
	s.entries[id] = entry
	return entry, nil
}

func (s *Store) Find(ctx context.Context, filter domain.LedgerFilter, page, limit int) ([]domain.LedgerEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.LedgerEntry
	// Newest first: walk insertion order backwards.
	for i := len(s.order) - 1; i >= 0; i-- {
		entry := s.entries[s.order[i]]
		if matchesFilter(entry, filter) {
			matched = append(matched, entry)
		}
	}

	total := len(matched)
	offset := (page - 1) * limit
	if offset >= total {
		return []domain.LedgerEntry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matchesFilter(entry domain.LedgerEntry, filter domain.LedgerFilter) bool {
	switch filter.Direction {
	case domain.DirectionSent:
		return entry.FromUserID == filter.ParticipantID
	case domain.DirectionReceived:
		return entry.ToUserID == filter.ParticipantID
	default:
		return entry.FromUserID == filter.ParticipantID || entry.ToUserID == filter.ParticipantID
	}
}

func (s *Store) DeleteAllForUser(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID) error {
	release, err := s.acquire(uow)
	if err != nil {
		return err
	}
	defer release()

	kept := s.order[:0]
	for _, id := range s.order {
		entry := s.entries[id]
		if entry.FromUserID == userID || entry.ToUserID == userID {
			delete(s.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

func (s *Store) CreateUser(ctx context.Context, uow port.UnitOfWork, user domain.User) (domain.User, error) {
	release, err := s.acquire(uow)
	if err != nil {
		return domain.User{}, err
	}
	defer release()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.User{}, domain.ErrEmailTaken
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Accounts, Ledger and Users expose the store through the engine's ports. The
// same underlying store backs all three, so one unit of work spans them.
func (s *Store) Accounts() port.AccountStore { return s }
func (s *Store) Ledger() port.LedgerStore    { return ledgerView{s} }
func (s *Store) Users() port.UserStore       { return usersView{s} }

// ledgerView renames CreateEntry to the LedgerStore contract without
// colliding with the AccountStore Create method.
type ledgerView struct {
	*Store
}

func (v ledgerView) Create(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	return v.CreateEntry(ctx, entry)
}

// usersView does the same renaming for the UserStore contract.
type usersView struct {
	*Store
}

func (v usersView) Create(ctx context.Context, uow port.UnitOfWork, user domain.User) (domain.User, error) {
	return v.CreateUser(ctx, uow, user)
}

func (v usersView) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return v.GetUserByEmail(ctx, email)
}

var (
	_ port.TxRunner     = (*Store)(nil)
	_ port.AccountStore = (*Store)(nil)
	_ port.LedgerStore  = ledgerView{}
	_ port.UserStore    = usersView{}
)
