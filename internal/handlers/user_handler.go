package handlers

import (
	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	limit, offset := pagination(c)

	users, total, err := h.userService.ListVisible(v, limit, offset)
	if err != nil {
		return serviceError(c, err, "Failed to list users")
	}

	return c.JSON(dto.UsersListResponse{
		Users:  dto.NewUserResponses(users),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *UserHandler) Count(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	n, err := h.userService.CountVisible(v)
	if err != nil {
		return serviceError(c, err, "Failed to count users")
	}
	return c.JSON(dto.CountResponse{Count: n})
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	user, err := h.userService.GetVisible(v, userID)
	if err != nil {
		return serviceError(c, err, "Failed to get user")
	}
	return c.JSON(dto.NewUserResponse(user))
}

// SetOwnInvisible lets the viewer hide or unhide their own profile.
func (h *UserHandler) SetOwnInvisible(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.SetFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.userService.SetInvisible(v.UserID, *req.Value); err != nil {
		return serviceError(c, err, "Failed to update account")
	}
	return c.JSON(dto.MessageResponse{Message: "Account updated"})
}

func (h *UserHandler) DeleteAccount(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	if err := h.userService.MarkDeleted(v.UserID); err != nil {
		return serviceError(c, err, "Failed to delete account")
	}
	return c.JSON(dto.MessageResponse{Message: "Account deleted"})
}

// --- Admin ---

func (h *UserHandler) SetBanned(c *fiber.Ctx) error {
	return h.setFlag(c, h.userService.SetBanned)
}

func (h *UserHandler) SetInvisible(c *fiber.Ctx) error {
	return h.setFlag(c, h.userService.SetInvisible)
}

func (h *UserHandler) setFlag(c *fiber.Ctx, set func(uuid.UUID, bool) error) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req dto.SetFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	if err := set(userID, *req.Value); err != nil {
		return serviceError(c, err, "Failed to update user")
	}
	return c.JSON(dto.MessageResponse{Message: "User updated"})
}
