package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/adapter/storage/memory"
	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/port"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateAccountDuplicate(t *testing.T) {
	store := memory.NewStore()
	id := uuid.New()

	if _, err := store.Create(context.Background(), nil, id, dec("10")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(context.Background(), nil, id, dec("10")); !errors.Is(err, domain.ErrAccountAlreadyExists) {
		t.Fatalf("err = %v, want ErrAccountAlreadyExists", err)
	}
}

func TestApplyDeltaGuardsNegativeBalance(t *testing.T) {
	store := memory.NewStore()
	id := uuid.New()
	store.Create(context.Background(), nil, id, dec("25"))

	if _, err := store.ApplyDelta(context.Background(), nil, id, dec("-30")); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	acc, _ := store.Get(context.Background(), id)
	if !acc.Balance.Equal(dec("25")) {
		t.Errorf("balance = %s, want 25 after rejected delta", acc.Balance)
	}

	// Draining to exactly zero is allowed.
	acc, err := store.ApplyDelta(context.Background(), nil, id, dec("-25"))
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if !acc.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", acc.Balance)
	}
}

func TestApplyDeltaUnknownAccount(t *testing.T) {
	store := memory.NewStore()

	if _, err := store.ApplyDelta(context.Background(), nil, uuid.New(), dec("5")); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := memory.NewStore()
	a := uuid.New()
	b := uuid.New()
	store.Create(context.Background(), nil, a, dec("100"))
	store.Create(context.Background(), nil, b, dec("0"))

	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(uow port.UnitOfWork) error {
		if _, err := store.ApplyDelta(context.Background(), uow, a, dec("-40")); err != nil {
			return err
		}
		if _, err := store.ApplyDelta(context.Background(), uow, b, dec("40")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	accA, _ := store.Get(context.Background(), a)
	accB, _ := store.Get(context.Background(), b)
	if !accA.Balance.Equal(dec("100")) || !accB.Balance.IsZero() {
		t.Errorf("balances = %s / %s, want 100 / 0 after rollback", accA.Balance, accB.Balance)
	}
}

func TestRunInTxRejectsForeignUnitOfWork(t *testing.T) {
	store := memory.NewStore()
	other := memory.NewStore()
	id := uuid.New()
	store.Create(context.Background(), nil, id, dec("10"))

	err := other.RunInTx(context.Background(), func(uow port.UnitOfWork) error {
		_, err := store.ApplyDelta(context.Background(), uow, id, dec("-1"))
		return err
	})
	if err == nil {
		t.Fatal("expected error for a unit of work from another store")
	}
}

func newEntry(from, to uuid.UUID, createdAt time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:         uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		Amount:     dec("1"),
		Status:     domain.StatusCompleted,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestFindFiltersAndPages(t *testing.T) {
	store := memory.NewStore()
	ledger := store.Ledger()
	alice := uuid.New()
	bob := uuid.New()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		ledger.Create(context.Background(), newEntry(alice, bob, base.Add(time.Duration(i)*time.Second)))
	}
	ledger.Create(context.Background(), newEntry(bob, alice, base.Add(10*time.Second)))

	sent, total, err := ledger.Find(context.Background(), domain.LedgerFilter{ParticipantID: alice, Direction: domain.DirectionSent}, 1, 10)
	if err != nil {
		t.Fatalf("find sent: %v", err)
	}
	if total != 3 || len(sent) != 3 {
		t.Fatalf("sent = %d (total %d), want 3", len(sent), total)
	}

	received, total, err := ledger.Find(context.Background(), domain.LedgerFilter{ParticipantID: alice, Direction: domain.DirectionReceived}, 1, 10)
	if err != nil {
		t.Fatalf("find received: %v", err)
	}
	if total != 1 || len(received) != 1 {
		t.Fatalf("received = %d (total %d), want 1", len(received), total)
	}

	// Page past the end is empty but still reports the full count.
	none, total, err := ledger.Find(context.Background(), domain.LedgerFilter{ParticipantID: alice, Direction: domain.DirectionAll}, 3, 2)
	if err != nil {
		t.Fatalf("find page 3: %v", err)
	}
	if len(none) != 0 || total != 4 {
		t.Fatalf("page 3 = %d entries (total %d), want 0 and 4", len(none), total)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store := memory.NewStore()
	ledger := store.Ledger()
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	now := time.Now().UTC()
	ledger.Create(context.Background(), newEntry(alice, bob, now))
	ledger.Create(context.Background(), newEntry(bob, alice, now))
	ledger.Create(context.Background(), newEntry(bob, carol, now))

	if err := store.DeleteAllForUser(context.Background(), nil, alice); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	_, total, _ := ledger.Find(context.Background(), domain.LedgerFilter{ParticipantID: alice, Direction: domain.DirectionAll}, 1, 10)
	if total != 0 {
		t.Errorf("alice still has %d entries", total)
	}
	_, total, _ = ledger.Find(context.Background(), domain.LedgerFilter{ParticipantID: bob, Direction: domain.DirectionAll}, 1, 10)
	if total != 1 {
		t.Errorf("bob has %d entries, want 1 (the carol one)", total)
	}
}

func TestUpdateStatusUnknownEntry(t *testing.T) {
	store := memory.NewStore()

	if _, err := store.UpdateStatus(context.Background(), nil, uuid.New(), domain.StatusFailed); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("err = %v, want ErrEntryNotFound", err)
	}
}

func TestUpdateStatusTerminalIsImmutable(t *testing.T) {
	store := memory.NewStore()
	ledger := store.Ledger()

	entry := newEntry(uuid.New(), uuid.New(), time.Now().UTC())
	entry.Status = domain.StatusPending
	if _, err := ledger.Create(context.Background(), entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	updated, err := store.UpdateStatus(context.Background(), nil, entry.ID, domain.StatusCompleted)
	if err != nil {
		t.Fatalf("update to completed: %v", err)
	}
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want completed", updated.Status)
	}

	// A late failure marker must not undo the completed transition.
	after, err := store.UpdateStatus(context.Background(), nil, entry.ID, domain.StatusFailed)
	if err != nil {
		t.Fatalf("update to failed: %v", err)
	}
	if after.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed to stick", after.Status)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := memory.NewStore()
	users := store.Users()

	_, err := users.Create(context.Background(), nil, domain.User{ID: uuid.New(), Email: "a@b.c"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.Create(context.Background(), nil, domain.User{ID: uuid.New(), Email: "A@B.C"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRunInTxRollsBackUserWrites(t *testing.T) {
	store := memory.NewStore()
	users := store.Users()
	id := uuid.New()

	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(uow port.UnitOfWork) error {
		if _, err := users.Create(context.Background(), uow, domain.User{ID: id, Email: "x@y.z"}); err != nil {
			return err
		}
		if _, err := store.Create(context.Background(), uow, id, dec("10")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if _, err := users.GetByEmail(context.Background(), "x@y.z"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("user survived rollback: err = %v", err)
	}
	if _, err := store.Get(context.Background(), id); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("account survived rollback: err = %v", err)
	}
}
