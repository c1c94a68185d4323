package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a platform member. A user is visible when it is neither banned,
// deleted nor flagged invisible; the three flags are toggled independently.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"-"`
	Name        string    `gorm:"size:255" json:"name"`
	Gender      string    `gorm:"size:50" json:"gender"`
	IsSuperuser bool      `gorm:"not null;default:false" json:"-"`
	IsBanned    bool      `gorm:"not null;default:false;index" json:"-"`
	IsDeleted   bool      `gorm:"not null;default:false;index" json:"-"`
	IsInvisible bool      `gorm:"not null;default:false;index" json:"-"`
	Joined      time.Time `gorm:"not null;index" json:"joined"`
	LastActive  time.Time `json:"last_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Joined.IsZero() {
		u.Joined = time.Now().UTC()
	}
	return nil
}

// IsVisible mirrors visibility.Visible for a loaded row.
func (u *User) IsVisible() bool {
	return !u.IsBanned && !u.IsDeleted && !u.IsInvisible
}
