package communities

import (
	"errors"
	"strconv"

	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/couchers-org/couchers-backend/internal/visibility"
	"github.com/gofiber/fiber/v2"
)

type CommunityHandler struct {
	service *CommunityService
}

func NewCommunityHandler(service *CommunityService) *CommunityHandler {
	return &CommunityHandler{service: service}
}

// --- Request DTOs ---

type UpdateDescriptionRequest struct {
	Description string `json:"description" validate:"required"`
	Override    bool   `json:"override"`
}

type AdminRequest struct {
	Username string `json:"username" validate:"required,max=64"`
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func (h *CommunityHandler) serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, visibility.ErrInvalidContext):
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrCommunityNotFound), errors.Is(err, ErrDiscussionNotFound), errors.Is(err, ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrDescriptionTooLong):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyAdmin), errors.Is(err, ErrNotAdmin):
		return fail(c, fiber.StatusConflict, err.Error())
	default:
		return fail(c, fiber.StatusInternalServerError, fallback)
	}
}

func idParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// --- Protected handlers (require JWT) ---

func (h *CommunityHandler) ListMembers(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	clusterID, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid community ID")
	}

	users, err := h.service.ListMembers(v, clusterID)
	if err != nil {
		return h.serviceError(c, err, "Failed to list members")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

func (h *CommunityHandler) ListAdmins(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	clusterID, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid community ID")
	}

	users, err := h.service.ListAdmins(v, clusterID)
	if err != nil {
		return h.serviceError(c, err, "Failed to list admins")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

func (h *CommunityHandler) ListDiscussions(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	clusterID, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid community ID")
	}

	discussions, err := h.service.ListDiscussions(v, clusterID)
	if err != nil {
		return h.serviceError(c, err, "Failed to list discussions")
	}
	return c.JSON(fiber.Map{"data": discussions})
}

// --- Admin handlers ---

func (h *CommunityHandler) UpdateDescription(c *fiber.Ctx) error {
	nodeID, ok := idParam(c, "node_id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid node ID")
	}

	var req UpdateDescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	cluster, err := h.service.UpdateDescription(nodeID, req.Description, req.Override)
	if err != nil {
		return h.serviceError(c, err, "Failed to update description")
	}
	return c.JSON(cluster)
}

func (h *CommunityHandler) AddAdmin(c *fiber.Ctx) error {
	nodeID, ok := idParam(c, "node_id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid node ID")
	}

	var req AdminRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	cluster, err := h.service.AddAdmin(nodeID, req.Username)
	if err != nil {
		return h.serviceError(c, err, "Failed to add admin")
	}
	return c.JSON(dto.MessageResponse{Message: req.Username + " is now an admin of " + cluster.Name})
}

func (h *CommunityHandler) RemoveAdmin(c *fiber.Ctx) error {
	nodeID, ok := idParam(c, "node_id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid node ID")
	}

	var req AdminRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	cluster, err := h.service.RemoveAdmin(nodeID, req.Username)
	if err != nil {
		return h.serviceError(c, err, "Failed to remove admin")
	}
	return c.JSON(dto.MessageResponse{Message: req.Username + " has been removed as an admin from " + cluster.Name})
}

func (h *CommunityHandler) DeleteDiscussion(c *fiber.Ctx) error {
	discussionID, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid discussion ID")
	}

	if err := h.service.DeleteDiscussion(discussionID); err != nil {
		return h.serviceError(c, err, "Failed to delete discussion")
	}
	return c.JSON(dto.MessageResponse{Message: "Discussion deleted"})
}

func (h *CommunityHandler) Incomplete(c *fiber.Ctx) error {
	rows, err := h.service.IncompleteCommunities()
	if err != nil {
		return h.serviceError(c, err, "Failed to list communities")
	}
	return c.JSON(fiber.Map{"data": rows})
}
