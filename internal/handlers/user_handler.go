package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wingyshop/internal/middleware"
	"wingyshop/internal/services"
	"wingyshop/pkg/logger"
)

// UserHandler serves profiles and balances of authenticated users.
type UserHandler struct {
	service *services.UserService
	log     logger.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, log logger.Logger) *UserHandler {
	return &UserHandler{service: service, log: log}
}

// CheckBalanceRequest selects whose balance to check; the caller when UserID is absent.
type CheckBalanceRequest struct {
	UserID *uint `json:"userId"`
}

// RegisterRoutes registers the user routes behind authRequired.
func (h *UserHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	router.Get("/user/profile", authRequired, h.HandleProfile)
	router.Get("/user/:id", authRequired, h.HandleRefreshProfile)
	router.Post("/check-balance", authRequired, h.HandleCheckBalance)
}

func (h *UserHandler) HandleProfile(c *fiber.Ctx) error {
	user, err := h.service.Profile(middleware.UserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleRefreshProfile(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	user, err := h.service.RefreshProfile(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *UserHandler) HandleCheckBalance(c *fiber.Ctx) error {
	var req CheckBalanceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	target := middleware.UserID(c)
	if req.UserID != nil && *req.UserID != 0 {
		target = *req.UserID
	}

	balance, err := h.service.CheckBalance(c.UserContext(), target)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(balance)
}
