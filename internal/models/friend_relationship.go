package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FriendStatus string

const (
	FriendStatusPending   FriendStatus = "pending"
	FriendStatusAccepted  FriendStatus = "accepted"
	FriendStatusRejected  FriendStatus = "rejected"
	FriendStatusCancelled FriendStatus = "cancelled"
)

// FriendRelationship is stored directionally (request sender to recipient) but
// an accepted row is a friendship for both ends.
type FriendRelationship struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	FromUserID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"from_user_id"`
	ToUserID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"to_user_id"`
	Status        FriendStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	TimeSent      time.Time    `gorm:"not null" json:"time_sent"`
	TimeResponded *time.Time   `json:"time_responded,omitempty"`
	FromUser      User         `gorm:"foreignKey:FromUserID" json:"-"`
	ToUser        User         `gorm:"foreignKey:ToUserID" json:"-"`
}

func (FriendRelationship) TableName() string {
	return "friend_relationships"
}

func (f *FriendRelationship) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.TimeSent.IsZero() {
		f.TimeSent = time.Now().UTC()
	}
	return nil
}

// Other returns the id at the opposite end of the relationship from userID.
func (f *FriendRelationship) Other(userID uuid.UUID) uuid.UUID {
	if f.FromUserID == userID {
		return f.ToUserID
	}
	return f.FromUserID
}
