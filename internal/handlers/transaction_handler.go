package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wingyshop/internal/middleware"
	"wingyshop/internal/models"
	"wingyshop/internal/services"
	"wingyshop/pkg/logger"
)

// TransactionHandler handles purchases and their confirmation.
type TransactionHandler struct {
	service *services.TransactionService
	log     logger.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(service *services.TransactionService, log logger.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, log: log}
}

// PurchaseRequest is the body of a purchase.
type PurchaseRequest struct {
	ProductID uint `json:"productId"`
}

// RegisterRoutes registers the transaction routes.
func (h *TransactionHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	transactionRoutes := router.Group("/transactions")
	transactionRoutes.Post("/", authRequired, h.HandleCreatePurchase)
	transactionRoutes.Patch("/:id/confirm", authRequired, h.HandleConfirm)
	transactionRoutes.Get("/user/:userId", h.HandleListForUser)
}

func (h *TransactionHandler) HandleCreatePurchase(c *fiber.Ctx) error {
	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.ProductID == 0 {
		return writeError(c, h.log, models.NewValidationError("productId", "is required"))
	}

	tx, err := h.service.CreatePurchase(middleware.UserID(c), req.ProductID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

// HandleConfirm records the caller's confirmation and returns the transaction,
// settled when this confirmation completed it.
func (h *TransactionHandler) HandleConfirm(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	tx, err := h.service.Confirm(id, middleware.UserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(tx)
}

func (h *TransactionHandler) HandleListForUser(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return writeError(c, h.log, err)
	}
	transactions, err := h.service.ListForUser(userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(transactions)
}
