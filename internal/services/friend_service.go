package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/couchers-org/couchers-backend/internal/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSelfFriend             = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends         = errors.New("already friends or request pending")
	ErrFriendRequestNotFound  = errors.New("friend request not found")
	ErrFriendRequestResponded = errors.New("friend request already responded to")
)

type FriendService struct {
	db    *gorm.DB
	users *UserService
}

func NewFriendService(db *gorm.DB, users *UserService) *FriendService {
	return &FriendService{db: db, users: users}
}

// SendRequest creates a pending request from v to the user toID. The
// recipient must be visible to the sender.
func (s *FriendService) SendRequest(v *viewer.Context, toID uuid.UUID) (*models.FriendRelationship, error) {
	if v != nil && v.UserID == toID {
		return nil, ErrSelfFriend
	}

	ok, err := s.users.IsVisibleTo(v, toID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	rel := models.FriendRelationship{
		FromUserID: v.UserID,
		ToUserID:   toID,
		Status:     models.FriendStatusPending,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// both ends are locked in id order so requests within a pair serialize
		var ends []models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id IN ?", []uuid.UUID{v.UserID, toID}).
			Order("id").
			Find(&ends).Error; err != nil {
			return fmt.Errorf("failed to lock users: %w", err)
		}

		var existing int64
		if err := tx.Model(&models.FriendRelationship{}).
			Where("((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))",
				v.UserID, toID, toID, v.UserID).
			Where("status IN ?", []models.FriendStatus{models.FriendStatusPending, models.FriendStatusAccepted}).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check friend relationship: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyFriends
		}

		if err := tx.Create(&rel).Error; err != nil {
			return fmt.Errorf("failed to create friend request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// RespondRequest accepts or rejects a pending request addressed to v.
func (s *FriendService) RespondRequest(v *viewer.Context, requestID uuid.UUID, accept bool) (*models.FriendRelationship, error) {
	var rel models.FriendRelationship
	err := s.db.Model(&models.FriendRelationship{}).
		Scopes(visibility.UsersColumnVisible(v, "from_user_id")).
		Where("friend_relationships.id = ? AND to_user_id = ?", requestID, v.UserID).
		First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	if rel.Status != models.FriendStatusPending {
		return nil, ErrFriendRequestResponded
	}

	now := time.Now().UTC()
	rel.TimeResponded = &now
	rel.Status = models.FriendStatusRejected
	if accept {
		rel.Status = models.FriendStatusAccepted
	}
	if err := s.db.Model(&rel).Updates(map[string]interface{}{
		"status":         rel.Status,
		"time_responded": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to respond to friend request: %w", err)
	}
	return &rel, nil
}

// ListFriends returns the users v is friends with and can see.
func (s *FriendService) ListFriends(v *viewer.Context) ([]models.User, error) {
	if v == nil {
		return nil, visibility.ErrInvalidContext
	}

	sent := s.db.Model(&models.FriendRelationship{}).Select("to_user_id").
		Where("from_user_id = ? AND status = ?", v.UserID, models.FriendStatusAccepted)
	received := s.db.Model(&models.FriendRelationship{}).Select("from_user_id").
		Where("to_user_id = ? AND status = ?", v.UserID, models.FriendStatusAccepted)

	var friends []models.User
	err := s.db.Model(&models.User{}).
		Scopes(visibility.UsersVisible(v)).
		Where("users.id IN (?) OR users.id IN (?)", sent, received).
		Order("username ASC").
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

// CountFriends counts accepted relationships of v whose other end is visible
// to v. SendRequest keeps a pair to at most one live relationship, so the two
// directions can be summed.
func (s *FriendService) CountFriends(v *viewer.Context) (int64, error) {
	if v == nil {
		return 0, visibility.ErrInvalidContext
	}

	var sent, received int64
	err := s.db.Model(&models.FriendRelationship{}).
		Scopes(visibility.UsersColumnVisible(v, "to_user_id")).
		Where("from_user_id = ? AND status = ?", v.UserID, models.FriendStatusAccepted).
		Count(&sent).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count friends: %w", err)
	}

	err = s.db.Model(&models.FriendRelationship{}).
		Scopes(visibility.UsersColumnVisible(v, "from_user_id")).
		Where("to_user_id = ? AND status = ?", v.UserID, models.FriendStatusAccepted).
		Count(&received).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count friends: %w", err)
	}
	return sent + received, nil
}

// ListPendingRequests returns requests awaiting v's answer from senders v can see.
func (s *FriendService) ListPendingRequests(v *viewer.Context) ([]models.FriendRelationship, error) {
	if v == nil {
		return nil, visibility.ErrInvalidContext
	}

	var requests []models.FriendRelationship
	err := s.db.Model(&models.FriendRelationship{}).
		Scopes(visibility.UsersColumnVisible(v, "from_user_id")).
		Where("to_user_id = ? AND status = ?", v.UserID, models.FriendStatusPending).
		Preload("FromUser").
		Order("time_sent DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	return requests, nil
}
