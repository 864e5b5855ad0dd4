package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wingyshop/internal/middleware"
	"wingyshop/internal/services"
	"wingyshop/pkg/logger"
)

// ProductHandler handles HTTP requests for the public catalog and listing submission.
type ProductHandler struct {
	service *services.ProductService
	log     logger.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log logger.Logger) *ProductHandler {
	return &ProductHandler{service: service, log: log}
}

// RegisterRoutes registers the product routes. Only submission needs authentication.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/user/:userId", h.HandleListBySeller)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", authRequired, h.HandleSubmitProduct)
}

func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.Query("status"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	product, err := h.service.GetProduct(id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleListBySeller(c *fiber.Ctx) error {
	sellerID, err := paramID(c, "userId")
	if err != nil {
		return writeError(c, h.log, err)
	}
	products, err := h.service.ListProductsBySeller(sellerID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(products)
}

// HandleSubmitProduct creates a pending listing owned by the caller.
func (h *ProductHandler) HandleSubmitProduct(c *fiber.Ctx) error {
	var req services.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	product, err := h.service.SubmitProduct(middleware.UserID(c), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}
