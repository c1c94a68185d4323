package handlers

import (
	"errors"
	"log/slog"

	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/couchers-org/couchers-backend/internal/visibility"
	"github.com/gofiber/fiber/v2"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// serviceError maps service errors to HTTP statuses. Unknown errors are
// logged and reported as fallback with a 500.
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, visibility.ErrInvalidContext), errors.Is(err, viewer.ErrNoViewer):
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrFriendRequestNotFound),
		errors.Is(err, services.ErrNotBlocked):
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSelfBlock),
		errors.Is(err, services.ErrSelfReport),
		errors.Is(err, services.ErrSelfFriend):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAlreadyBlocked),
		errors.Is(err, services.ErrAlreadyFriends),
		errors.Is(err, services.ErrFriendRequestResponded):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	}

	slog.Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", c.Locals("requestid"),
		"error", err,
	)
	return errorJSON(c, fiber.StatusInternalServerError, fallback)
}

// pagination reads limit and offset, capping limit at 100.
func pagination(c *fiber.Ctx) (int, int) {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
