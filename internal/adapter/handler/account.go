package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pscode22/payment-app/internal/adapter/middleware"
	"github.com/pscode22/payment-app/internal/adapter/storage"
	"github.com/pscode22/payment-app/internal/core/engine"
)

type AccountHandler struct {
	Engine *engine.Engine
	Users  *storage.UserRepository
}

func (h *AccountHandler) GetBalance(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	balance, err := h.Engine.GetBalance(c.Context(), callerID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}
	return c.JSON(fiber.Map{"balance": balance})
}

// DeleteAccount cascades: ledger entries and the account go in one unit of
// work, then the user record and every session token.
func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := h.Engine.DeleteAccount(c.Context(), callerID); err != nil {
		slog.Error("Failed to delete account", "error", err, "user_id", callerID)
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	// Token rows cascade off the user delete.
	if err := h.Users.Delete(c.Context(), nil, callerID); err != nil {
		slog.Error("Account deleted but user row removal failed", "error", err, "user_id", callerID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	slog.Info("Account deleted", "user_id", callerID)
	return c.JSON(fiber.Map{"message": "Account deleted"})
}
