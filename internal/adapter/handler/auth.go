package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pscode22/payment-app/internal/adapter/middleware"
	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/engine"
	"github.com/pscode22/payment-app/internal/core/port"
	"github.com/pscode22/payment-app/internal/core/security"
)

// TokenStore is the session-token surface the auth flows need.
type TokenStore interface {
	Save(ctx context.Context, userID uuid.UUID, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type AuthHandler struct {
	Users    port.UserStore
	Accounts port.AccountStore
	Tokens   TokenStore
	Tx       port.TxRunner

	// GrantMax caps the pseudo-random starting balance for new accounts.
	GrantMax float64
}

type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Valid email is required"})
	}
	if req.FirstName == "" || req.LastName == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "First and last name are required"})
	}
	if len(req.Password) < 6 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 6 characters"})
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	// User and account land together or not at all; a half-registered user
	// with no account cannot exist.
	var user domain.User
	var account domain.Account
	txErr := h.Tx.RunInTx(c.Context(), func(uow port.UnitOfWork) error {
		var err error
		user, err = h.Users.Create(c.Context(), uow, domain.User{
			ID:           uuid.New(),
			Email:        req.Email,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			PasswordHash: passwordHash,
		})
		if err != nil {
			return err
		}
		account, err = h.Accounts.Create(c.Context(), uow, user.ID, engine.InitialGrant(h.GrantMax))
		return err
	})
	if txErr != nil {
		if errors.Is(txErr, domain.ErrEmailTaken) {
			return c.Status(statusForError(txErr)).JSON(fiber.Map{"error": clientMessage(txErr)})
		}
		slog.Error("Registration failed", "error", txErr)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	token, err := h.issueToken(c, user.ID)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	slog.Info("User registered", "user_id", user.ID, "starting_balance", account.Balance)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully.",
		"userId":  user.ID,
		"token":   token,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.Users.GetByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !security.CheckPassword(req.Password, user.PasswordHash) {
		// Same answer for unknown email and wrong password.
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	// One active session per user: drop older tokens first.
	if err := h.Tokens.RevokeAllForUser(c.Context(), user.ID); err != nil {
		slog.Error("Failed to revoke old sessions", "error", err, "user_id", user.ID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	token, err := h.issueToken(c, user.ID)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{"userId": user.ID, "token": token})
}

// Logout revokes every session the caller holds. Tokens are stored server
// side, so the presented token stops working immediately.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := h.Tokens.RevokeAllForUser(c.Context(), callerID); err != nil {
		slog.Error("Failed to revoke sessions", "error", err, "user_id", callerID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"message": "Logged out."})
}

func (h *AuthHandler) issueToken(c *fiber.Ctx, userID uuid.UUID) (string, error) {
	token, tokenHash, err := security.GenerateSessionToken()
	if err != nil {
		slog.Error("Failed to generate session token", "error", err, "user_id", userID)
		return "", err
	}
	if err := h.Tokens.Save(c.Context(), userID, tokenHash); err != nil {
		slog.Error("Failed to save session token", "error", err, "user_id", userID)
		return "", err
	}
	return token, nil
}
