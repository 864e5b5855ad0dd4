package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"wingyshop/internal/models"
	"wingyshop/pkg/logger"
	"wingyshop/pkg/wingycoin"
)

var statusBySentinel = []struct {
	err     error
	status  int
	message string
}{
	{models.ErrNotFound, fiber.StatusNotFound, ""},
	{models.ErrUnauthenticated, fiber.StatusUnauthorized, "Access token required"},
	{models.ErrInvalidCredentials, fiber.StatusUnauthorized, "Incorrect email or password"},
	{models.ErrForbidden, fiber.StatusForbidden, "Forbidden"},
	{models.ErrConflict, fiber.StatusConflict, ""},
	{models.ErrInsufficientBalance, fiber.StatusBadRequest, "Insufficient balance"},
	{models.ErrOutOfStock, fiber.StatusBadRequest, "Product out of stock"},
	{models.ErrSelfPurchase, fiber.StatusBadRequest, "Cannot buy your own product"},
	{models.ErrStockExhausted, fiber.StatusBadRequest, "Product sold out before the transaction could settle"},
	{models.ErrProductUnavailable, fiber.StatusBadRequest, "Product is not available for purchase"},
	{models.ErrAlreadySettled, fiber.StatusBadRequest, "Transaction already settled"},
}

// writeError maps err to a status code and a {"message": ...} body. Errors outside the
// known taxonomy are logged and reported as an opaque 500.
func writeError(c *fiber.Ctx, log logger.Logger, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": verr.Error(),
			"field":   verr.Field,
		})
	}

	var gwErr *wingycoin.GatewayError
	if errors.As(err, &gwErr) {
		log.Warn("wingy coin rejected request", map[string]interface{}{"path": c.Path(), "error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": gwErr.Message})
	}

	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			message := s.message
			if message == "" {
				message = err.Error()
			}
			return c.Status(s.status).JSON(fiber.Map{"message": message})
		}
	}

	log.Error("request failed", map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
		"error":  err,
	})
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
}

// paramID reads a positive numeric path parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError(name, "must be a positive integer")
	}
	return uint(id), nil
}
