package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// IdempotencyStore persists request keys and their recorded responses.
type IdempotencyStore interface {
	// Reserve claims the key; false means another request holds it.
	Reserve(ctx context.Context, key string) (bool, error)
	// Lookup returns the recorded response, if the holder finished.
	Lookup(ctx context.Context, key string) (status int, body []byte, recorded bool, err error)
	// Complete records the response against the reservation.
	Complete(ctx context.Context, key string, status int, body []byte) error
	// Release drops an unfinished reservation.
	Release(ctx context.Context, key string) error
}

// Idempotency replays the recorded response for a repeated Idempotency-Key,
// so a retried transfer request cannot move money twice.
//
// The key is reserved before the handler runs; a concurrent duplicate sees
// the reservation and is rejected instead of racing the first attempt. Server
// failures release the reservation so the client can retry the same key.
func Idempotency(store IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		claimed, err := store.Reserve(c.Context(), key)
		if err != nil {
			slog.Error("Failed to reserve idempotency key", "error", err, "key", key)
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
		if !claimed {
			status, body, recorded, err := store.Lookup(c.Context(), key)
			if err != nil {
				slog.Error("Failed to look up idempotency key", "error", err, "key", key)
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
			}
			if !recorded {
				// The first attempt is still in flight.
				return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "Request with this key is already in progress"})
			}
			slog.Info("Idempotency hit, returning recorded response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(status).Send(body)
		}

		if err := c.Next(); err != nil {
			if relErr := store.Release(c.Context(), key); relErr != nil {
				slog.Error("Failed to release idempotency key", "error", relErr, "key", key)
			}
			return err
		}

		resStatus := c.Response().StatusCode()
		if resStatus >= http.StatusInternalServerError {
			// Server faults are not pinned; the client may retry the key.
			if err := store.Release(c.Context(), key); err != nil {
				slog.Error("Failed to release idempotency key", "error", err, "key", key)
			}
			return nil
		}

		if err := store.Complete(c.Context(), key, resStatus, c.Response().Body()); err != nil {
			slog.Error("Failed to save idempotency key", "error", err, "key", key)
		}
		return nil
	}
}
