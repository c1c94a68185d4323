package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/couchers-org/couchers-backend/internal/config"
	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminRequired lets a request through when the X-Admin-Token header matches
// ADMIN_TOKEN, when the viewer is listed in ADMIN_USER_IDS, or when the viewer
// is a superuser in the database.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if adminTokenMatches(cfg.AdminToken, c.Get("X-Admin-Token")) {
			return c.Next()
		}

		v, err := viewer.FromFiber(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if contains(adminUserIDs, v.UserID.String()) {
			return c.Next()
		}

		var user models.User
		if err := db.Select("is_superuser").First(&user, "id = ?", v.UserID).Error; err == nil && user.IsSuperuser {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

// adminTokenMatches accepts ADMIN_TOKEN either in plain text or as a bcrypt hash.
func adminTokenMatches(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	if isBcryptHash(expected) {
		return bcrypt.CompareHashAndPassword([]byte(expected), []byte(got)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
