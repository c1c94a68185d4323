package routes

import (
	"time"

	"github.com/couchers-org/couchers-backend/internal/apps"
	"github.com/couchers-org/couchers-backend/internal/config"
	"github.com/couchers-org/couchers-backend/internal/handlers"
	"github.com/couchers-org/couchers-backend/internal/metrics"
	"github.com/couchers-org/couchers-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	m *metrics.Metrics,
	healthHandler *handlers.HealthHandler,
	userHandler *handlers.UserHandler,
	friendHandler *handlers.FriendHandler,
	moderationHandler *handlers.ModerationHandler,
	plugins []apps.Plugin,
) {
	app.Get("/metrics", m.Handler())

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	jwt := middleware.JWTProtected(cfg)

	// Users, listed through the viewer's visibility
	api.Get("/users", jwt, userHandler.List)
	api.Get("/users/count", jwt, userHandler.Count)
	api.Get("/users/:id", jwt, userHandler.Get)

	api.Put("/account/invisible", jwt, userHandler.SetOwnInvisible)
	api.Delete("/account", jwt, userHandler.DeleteAccount)

	api.Get("/friends", jwt, friendHandler.List)
	api.Get("/friends/requests", jwt, friendHandler.ListRequests)
	api.Post("/friends/requests", jwt, friendHandler.SendRequest)
	api.Put("/friends/requests/:id", jwt, friendHandler.RespondRequest)

	// Moderation, user endpoints
	api.Get("/blocks", jwt, moderationHandler.ListBlocked)
	api.Post("/blocks", jwt, moderationHandler.BlockUser)
	api.Delete("/blocks/:id", jwt, moderationHandler.UnblockUser)
	api.Post("/reports", jwt, moderationHandler.CreateReport)

	// Admin panel (JWT + admin required)
	admin := api.Group("/admin", jwt, middleware.AdminRequired(db, cfg))
	admin.Get("/moderation/reports", moderationHandler.ListReports)
	admin.Put("/moderation/reports/:id", moderationHandler.ActionReport)
	admin.Put("/users/:id/ban", userHandler.SetBanned)
	admin.Put("/users/:id/invisible", userHandler.SetInvisible)

	// Plugin routes live under /api/p so the JWT group never shadows the routes above
	protected := api.Group("/p", jwt)
	for _, p := range plugins {
		p.RegisterRoutes(protected, db, cfg)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, db, cfg)
		}
	}
}
