package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pscode22/payment-app/internal/adapter/middleware"
	"github.com/pscode22/payment-app/internal/adapter/storage"
)

type UserHandler struct {
	Users *storage.UserRepository
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	user, err := h.Users.GetByID(c.Context(), callerID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":        user.ID,
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
		},
	})
}

type SearchRequest struct {
	Name string `json:"name"`
}

// Search lists other users matching a name fragment. Exposes directory fields
// only; balances and emails stay private.
func (h *UserHandler) Search(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	users, err := h.Users.Search(c.Context(), req.Name, callerID)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	results := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		results = append(results, fiber.Map{
			"id":        u.ID,
			"firstName": u.FirstName,
			"lastName":  u.LastName,
		})
	}
	return c.JSON(fiber.Map{"users": results})
}
