package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/adapter/middleware"
	"github.com/pscode22/payment-app/internal/core/domain"
	"github.com/pscode22/payment-app/internal/core/engine"
)

type TransferHandler struct {
	Engine *engine.Engine
}

type TransferRequest struct {
	ToUserID    string          `json:"toUserId"`
	Amount      decimal.Decimal `json:"amount"`
	Password    string          `json:"password"`
	Description string          `json:"description"`
}

type entryResponse struct {
	ID          uuid.UUID       `json:"id"`
	FromUserID  uuid.UUID       `json:"fromUserId"`
	ToUserID    uuid.UUID       `json:"toUserId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toEntryResponse(e domain.LedgerEntry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		FromUserID:  e.FromUserID,
		ToUserID:    e.ToUserID,
		Amount:      e.Amount,
		Status:      string(e.Status),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid receiver id"})
	}

	entry, err := h.Engine.Transfer(c.Context(), callerID, toUserID, req.Amount, req.Password, req.Description)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	return c.JSON(fiber.Map{
		"message":       "Transfer successful",
		"transactionId": entry.ID,
		"amount":        entry.Amount,
	})
}

func (h *TransferHandler) GetHistory(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	// Malformed numbers parse to zero and fall back to the engine defaults.
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	direction := domain.ParseDirection(c.Query("direction"))

	entries, pagination, err := h.Engine.ListTransactions(c.Context(), callerID, direction, page, limit)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": clientMessage(err)})
	}

	responses := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, toEntryResponse(entry))
	}

	return c.JSON(fiber.Map{
		"entries":    responses,
		"pagination": pagination,
	})
}
