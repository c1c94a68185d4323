// Package communities is the plugin for geographic communities: clusters,
// their admins, main pages and discussions.
package communities

import (
	"github.com/couchers-org/couchers-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CommunitiesPlugin struct{}

func New() *CommunitiesPlugin {
	return &CommunitiesPlugin{}
}

func (p *CommunitiesPlugin) ID() string { return "communities" }

func (p *CommunitiesPlugin) Models() []interface{} {
	return []interface{}{
		&Node{},
		&Cluster{},
		&ClusterSubscription{},
		&Page{},
		&PageVersion{},
		&Thread{},
		&Discussion{},
		&Comment{},
		&Reply{},
	}
}

func (p *CommunitiesPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := NewCommunityHandler(NewCommunityService(db, cfg.AppBaseURL))

	router.Get("/communities/:id/members", h.ListMembers)
	router.Get("/communities/:id/admins", h.ListAdmins)
	router.Get("/communities/:id/discussions", h.ListDiscussions)
}

func (p *CommunitiesPlugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := NewCommunityHandler(NewCommunityService(db, cfg.AppBaseURL))

	router.Get("/communities/incomplete", h.Incomplete)
	router.Put("/communities/:node_id/description", h.UpdateDescription)
	router.Post("/communities/:node_id/admins", h.AddAdmin)
	router.Delete("/communities/:node_id/admins", h.RemoveAdmin)
	router.Delete("/discussions/:id", h.DeleteDiscussion)
}
