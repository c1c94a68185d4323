package handlers

import (
	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.moderationService.CreateReport(v.UserID, &req)
	if err != nil {
		return serviceError(c, err, "Failed to create report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ModerationHandler) BlockUser(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.BlockUserRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.moderationService.BlockUser(v.UserID, req.BlockedID); err != nil {
		return serviceError(c, err, "Failed to block user")
	}
	return c.JSON(dto.MessageResponse{Message: "User blocked successfully"})
}

func (h *ModerationHandler) UnblockUser(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	blockedID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	if err := h.moderationService.UnblockUser(v.UserID, blockedID); err != nil {
		return serviceError(c, err, "Failed to unblock user")
	}
	return c.JSON(dto.MessageResponse{Message: "User unblocked successfully"})
}

func (h *ModerationHandler) ListBlocked(c *fiber.Ctx) error {
	v, err := viewer.FromFiber(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	users, err := h.moderationService.ListBlocked(v.UserID)
	if err != nil {
		return serviceError(c, err, "Failed to list blocked users")
	}
	return c.JSON(fiber.Map{"blocked": dto.NewUserResponses(users)})
}

// --- Admin ---

func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	status := c.Query("status", "")
	limit, offset := pagination(c)

	reports, total, err := h.moderationService.ListReports(status, limit, offset)
	if err != nil {
		return serviceError(c, err, "Failed to fetch reports")
	}

	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *ModerationHandler) ActionReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	var req dto.ActionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.moderationService.ActionReport(reportID, &req); err != nil {
		return serviceError(c, err, "Failed to update report")
	}
	return c.JSON(dto.MessageResponse{Message: "Report updated successfully"})
}
