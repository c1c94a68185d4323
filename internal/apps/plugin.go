package apps

import (
	"github.com/couchers-org/couchers-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin is a feature module mounted under /api/p.
type Plugin interface {
	// ID returns the unique plugin identifier used in logs.
	ID() string

	// Models returns the GORM model pointers to AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts routes on a group that already requires a JWT.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// AdminPlugin is a Plugin that also mounts routes under /api/admin.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts routes on a group that requires an admin.
	RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}
