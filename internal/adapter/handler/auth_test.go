package handler_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/adapter/handler"
	"github.com/pscode22/payment-app/internal/adapter/storage/memory"
	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/port"
)

type tokenStoreStub struct {
	saved   int
	revoked []uuid.UUID
}

func (s *tokenStoreStub) Save(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	s.saved++
	return nil
}

func (s *tokenStoreStub) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

func newAuthHandler(store *memory.Store, tokens *tokenStoreStub) *handler.AuthHandler {
	return &handler.AuthHandler{
		Users:    store.Users(),
		Accounts: store.Accounts(),
		Tokens:   tokens,
		Tx:       store,
		GrantMax: 100,
	}
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

const registerBody = `{"email":"ada@example.com","firstName":"Ada","lastName":"Lovelace","password":"hunter22"}`

func TestRegisterCreatesUserAndAccount(t *testing.T) {
	store := memory.NewStore()
	tokens := &tokenStoreStub{}
	authHandler := newAuthHandler(store, tokens)

	app := fiber.New()
	app.Post("/v1/auth/register", authHandler.Register)

	resp := postJSON(t, app, "/v1/auth/register", registerBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if payload["token"] == "" || payload["token"] == nil {
		t.Error("missing session token")
	}

	userID, err := uuid.Parse(payload["userId"].(string))
	if err != nil {
		t.Fatalf("bad userId in response: %v", err)
	}
	acc, err := store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("account missing after register: %v", err)
	}
	if acc.Balance.LessThan(decimal.NewFromInt(1)) || acc.Balance.GreaterThan(decimal.NewFromInt(100)) {
		t.Errorf("starting balance = %s, want within [1, 100]", acc.Balance)
	}
	if tokens.saved != 1 {
		t.Errorf("tokens saved = %d, want 1", tokens.saved)
	}
}

// failingAccounts rejects every account creation.
type failingAccounts struct {
	port.AccountStore
}

func (failingAccounts) Create(ctx context.Context, uow port.UnitOfWork, userID uuid.UUID, initialBalance decimal.Decimal) (domain.Account, error) {
	return domain.Account{}, errors.New("disk full")
}

func TestRegisterRollsBackUserWhenAccountFails(t *testing.T) {
	store := memory.NewStore()
	tokens := &tokenStoreStub{}
	broken := newAuthHandler(store, tokens)
	broken.Accounts = failingAccounts{AccountStore: store.Accounts()}

	app := fiber.New()
	app.Post("/v1/auth/register", broken.Register)

	resp := postJSON(t, app, "/v1/auth/register", registerBody)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	// No half-registered user may survive.
	if _, err := store.Users().GetByEmail(context.Background(), "ada@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("user survived failed registration: err = %v", err)
	}
	if tokens.saved != 0 {
		t.Errorf("tokens saved = %d, want 0", tokens.saved)
	}

	// The email is free again, so a retry goes through.
	working := newAuthHandler(store, tokens)
	retryApp := fiber.New()
	retryApp.Post("/v1/auth/register", working.Register)
	if resp := postJSON(t, retryApp, "/v1/auth/register", registerBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("retry status = %d, want 201", resp.StatusCode)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := memory.NewStore()
	authHandler := newAuthHandler(store, &tokenStoreStub{})

	app := fiber.New()
	app.Post("/v1/auth/register", authHandler.Register)

	if resp := postJSON(t, app, "/v1/auth/register", registerBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register: status = %d, want 201", resp.StatusCode)
	}
	if resp := postJSON(t, app, "/v1/auth/register", registerBody); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second register: status = %d, want 400", resp.StatusCode)
	}
}

func TestLogoutRevokesSessions(t *testing.T) {
	store := memory.NewStore()
	tokens := &tokenStoreStub{}
	authHandler := newAuthHandler(store, tokens)
	caller := uuid.New()

	app := fiber.New()
	app.Post("/v1/auth/logout", asUser(caller), authHandler.Logout)

	resp := postJSON(t, app, "/v1/auth/logout", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(tokens.revoked) != 1 || tokens.revoked[0] != caller {
		t.Errorf("revoked = %v, want exactly [%s]", tokens.revoked, caller)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	authHandler := newAuthHandler(memory.NewStore(), &tokenStoreStub{})

	app := fiber.New()
	app.Post("/v1/auth/logout", authHandler.Logout)

	resp := postJSON(t, app, "/v1/auth/logout", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
