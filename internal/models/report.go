package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusActioned  ReportStatus = "actioned"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// Report is a user-submitted complaint about another user.
type Report struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ReportingUserID uuid.UUID    `gorm:"type:uuid;not null;index" json:"reporting_user_id"`
	ReportedUserID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"reported_user_id"`
	Reason          string       `gorm:"size:100;not null" json:"reason"`
	Description     string       `gorm:"type:text" json:"description"`
	Status          ReportStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	AdminNote       string       `gorm:"size:1000" json:"admin_note,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	ReportingUser   User         `gorm:"foreignKey:ReportingUserID" json:"-"`
	ReportedUser    User         `gorm:"foreignKey:ReportedUserID" json:"-"`
}

func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
