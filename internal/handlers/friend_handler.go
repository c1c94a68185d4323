package handlers

import (
	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FriendHandler struct {
	friendService *services.FriendService
}

func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

func (h *FriendHandler) List(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	friends, err := h.friendService.ListFriends(v)
	if err != nil {
		return serviceError(c, err, "Failed to list friends")
	}
	return c.JSON(fiber.Map{
		"friends": dto.NewUserResponses(friends),
		"total":   len(friends),
	})
}

func (h *FriendHandler) ListRequests(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	requests, err := h.friendService.ListPendingRequests(v)
	if err != nil {
		return serviceError(c, err, "Failed to list friend requests")
	}

	out := make([]dto.FriendRequestResponse, len(requests))
	for i := range requests {
		out[i] = dto.NewFriendRequestResponse(&requests[i])
	}
	return c.JSON(fiber.Map{"requests": out})
}

func (h *FriendHandler) SendRequest(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.SendFriendRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	rel, err := h.friendService.SendRequest(v, req.UserID)
	if err != nil {
		return serviceError(c, err, "Failed to send friend request")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewFriendRequestResponse(rel))
}

func (h *FriendHandler) RespondRequest(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request ID")
	}

	var req dto.RespondFriendRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	rel, err := h.friendService.RespondRequest(v, requestID, *req.Accept)
	if err != nil {
		return serviceError(c, err, "Failed to respond to friend request")
	}
	return c.JSON(dto.NewFriendRequestResponse(rel))
}
