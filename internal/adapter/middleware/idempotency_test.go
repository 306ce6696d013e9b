package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/pscode22/payment-app/internal/adapter/middleware"
)

type keyRow struct {
	status *int
	body   []byte
}

// fakeKeyStore mirrors the repository semantics in memory: a row without a
// status is a reservation.
type fakeKeyStore struct {
	mu   sync.Mutex
	rows map[string]*keyRow
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{rows: make(map[string]*keyRow)}
}

func (s *fakeKeyStore) Reserve(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key]; ok {
		return false, nil
	}
	s.rows[key] = &keyRow{}
	return true, nil
}

func (s *fakeKeyStore) Lookup(ctx context.Context, key string) (int, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok || row.status == nil {
		return 0, nil, false, nil
	}
	return *row.status, row.body, true, nil
}

func (s *fakeKeyStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[key]; ok && row.status == nil {
		row.status = &status
		row.body = append([]byte(nil), body...)
	}
	return nil
}

func (s *fakeKeyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[key]; ok && row.status == nil {
		delete(s.rows, key)
	}
	return nil
}

func newKeyedApp(store middleware.IdempotencyStore, h fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Post("/pay", middleware.Idempotency(store), h)
	return app
}

func send(t *testing.T, app *fiber.App, key string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/pay", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestIdempotencyReplaysRecordedResponse(t *testing.T) {
	var calls int
	app := newKeyedApp(newFakeKeyStore(), func(c *fiber.Ctx) error {
		calls++
		return c.JSON(fiber.Map{"n": calls})
	})

	first := send(t, app, "k1")
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.StatusCode)
	}
	firstBody, _ := io.ReadAll(first.Body)

	second := send(t, app, "k1")
	if second.StatusCode != http.StatusOK {
		t.Fatalf("second status = %d, want 200", second.StatusCode)
	}
	if second.Header.Get("X-Idempotency-Hit") != "true" {
		t.Error("missing idempotency hit header on replay")
	}
	secondBody, _ := io.ReadAll(second.Body)
	if string(firstBody) != string(secondBody) {
		t.Errorf("replayed body %q differs from recorded %q", secondBody, firstBody)
	}
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeKeyStore()
	// First attempt holds the key but has not finished.
	if _, err := store.Reserve(context.Background(), "k2"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var calls int
	app := newKeyedApp(store, func(c *fiber.Ctx) error {
		calls++
		return c.SendStatus(http.StatusOK)
	})

	resp := send(t, app, "k2")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if calls != 0 {
		t.Errorf("handler ran %d times behind an in-flight key, want 0", calls)
	}
}

func TestIdempotencyDoesNotPinServerFailures(t *testing.T) {
	var calls int
	app := newKeyedApp(newFakeKeyStore(), func(c *fiber.Ctx) error {
		calls++
		if calls == 1 {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	if resp := send(t, app, "k3"); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("first status = %d, want 500", resp.StatusCode)
	}
	// The failure was not recorded, so the retry reaches the handler.
	if resp := send(t, app, "k3"); resp.StatusCode != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", resp.StatusCode)
	}
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestIdempotencySkipsRequestsWithoutKey(t *testing.T) {
	var calls int
	app := newKeyedApp(newFakeKeyStore(), func(c *fiber.Ctx) error {
		calls++
		return c.SendStatus(http.StatusOK)
	})

	send(t, app, "")
	send(t, app, "")
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}
