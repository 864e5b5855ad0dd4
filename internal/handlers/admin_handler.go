package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wingyshop/internal/middleware"
	"wingyshop/internal/models"
	"wingyshop/internal/services"
	"wingyshop/pkg/logger"
)

// AdminHandler serves the moderation queue and the full transaction list.
type AdminHandler struct {
	products     *services.ProductService
	transactions *services.TransactionService
	log          logger.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(products *services.ProductService, transactions *services.TransactionService, log logger.Logger) *AdminHandler {
	return &AdminHandler{products: products, transactions: transactions, log: log}
}

// StatusRequest is the body of a moderation decision.
type StatusRequest struct {
	Status string `json:"status"`
}

// RegisterRoutes registers the admin routes behind authRequired and adminRequired.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, authRequired, adminRequired fiber.Handler) {
	adminRoutes := router.Group("/admin", authRequired, adminRequired)
	adminRoutes.Get("/products/pending", h.HandlePendingProducts)
	adminRoutes.Patch("/products/:id/status", h.HandleModerate)
	adminRoutes.Get("/transactions", h.HandleTransactions)
}

func (h *AdminHandler) HandlePendingProducts(c *fiber.Ctx) error {
	products, err := h.products.ListProducts(string(models.ProductStatusPending))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(products)
}

func (h *AdminHandler) HandleModerate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	product, err := h.products.ModerateProduct(middleware.UserID(c), id, req.Status)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(product)
}

func (h *AdminHandler) HandleTransactions(c *fiber.Ctx) error {
	transactions, err := h.transactions.ListAll(middleware.UserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(transactions)
}
