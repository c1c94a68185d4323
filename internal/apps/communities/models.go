package communities

import (
	"time"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/google/uuid"
)

type ClusterRole string

const (
	RoleMember ClusterRole = "member"
	RoleAdmin  ClusterRole = "admin"
)

type PageType string

const (
	PageTypeMain  PageType = "main_page"
	PageTypePlace PageType = "place"
	PageTypeGuide PageType = "guide"
)

// Node is a geographic area. Its official cluster is the community.
type Node struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ParentNodeID *uint     `gorm:"index" json:"parent_node_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Cluster is a group of users. The official cluster of a node is that
// node's community.
type Cluster struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ParentNodeID      uint      `gorm:"not null;index" json:"parent_node_id"`
	Name              string    `gorm:"size:255;not null" json:"name"`
	Slug              string    `gorm:"size:255;not null" json:"slug"`
	Description       string    `gorm:"type:text;not null" json:"description"`
	IsOfficialCluster bool      `gorm:"not null;default:false;index" json:"is_official_cluster"`
	CreatedAt         time.Time `json:"created_at"`
	ParentNode        Node      `gorm:"foreignKey:ParentNodeID" json:"-"`
}

type ClusterSubscription struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_cluster_subscriptions_pair" json:"user_id"`
	ClusterID uint        `gorm:"not null;uniqueIndex:idx_cluster_subscriptions_pair" json:"cluster_id"`
	Role      ClusterRole `gorm:"size:20;not null;default:'member'" json:"role"`
	JoinedAt  time.Time   `gorm:"autoCreateTime" json:"joined_at"`
	User      models.User `gorm:"foreignKey:UserID" json:"-"`
	Cluster   Cluster     `gorm:"foreignKey:ClusterID" json:"-"`
}

type Page struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	Type           PageType      `gorm:"size:20;not null" json:"type"`
	CreatorUserID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"creator_user_id"`
	OwnerClusterID *uint         `gorm:"index" json:"owner_cluster_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	Creator        models.User   `gorm:"foreignKey:CreatorUserID" json:"-"`
	Versions       []PageVersion `gorm:"foreignKey:PageID" json:"-"`
}

type PageVersion struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	PageID       uint        `gorm:"not null;index" json:"page_id"`
	EditorUserID uuid.UUID   `gorm:"type:uuid;not null" json:"editor_user_id"`
	Title        string      `gorm:"size:255;not null" json:"title"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time   `json:"created_at"`
	Editor       models.User `gorm:"foreignKey:EditorUserID" json:"-"`
}

type Thread struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type Discussion struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Title          string      `gorm:"size:255;not null" json:"title"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	ThreadID       uint        `gorm:"not null;uniqueIndex" json:"thread_id"`
	CreatorUserID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"creator_user_id"`
	OwnerClusterID uint        `gorm:"not null;index" json:"owner_cluster_id"`
	CreatedAt      time.Time   `json:"created_at"`
	Creator        models.User `gorm:"foreignKey:CreatorUserID" json:"-"`
}

type Comment struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	ThreadID     uint        `gorm:"not null;index" json:"thread_id"`
	AuthorUserID uuid.UUID   `gorm:"type:uuid;not null;index" json:"author_user_id"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time   `json:"created_at"`
	Author       models.User `gorm:"foreignKey:AuthorUserID" json:"-"`
}

type Reply struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	CommentID    uint        `gorm:"not null;index" json:"comment_id"`
	AuthorUserID uuid.UUID   `gorm:"type:uuid;not null;index" json:"author_user_id"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time   `json:"created_at"`
	Author       models.User `gorm:"foreignKey:AuthorUserID" json:"-"`
}
