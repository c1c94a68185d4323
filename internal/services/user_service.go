package services

import (
	"errors"
	"fmt"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/couchers-org/couchers-backend/internal/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) visibleUsers(v *viewer.Context) *gorm.DB {
	return s.db.Model(&models.User{}).Scopes(visibility.UsersVisible(v))
}

// ListVisible returns one page of the users visible to v, ordered by username.
func (s *UserService) ListVisible(v *viewer.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := s.visibleUsers(v).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := s.visibleUsers(v).
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) CountVisible(v *viewer.Context) (int64, error) {
	var total int64
	if err := s.visibleUsers(v).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// GetVisible returns ErrUserNotFound for users hidden from v, so callers
// cannot tell a hidden user from a missing one.
func (s *UserService) GetVisible(v *viewer.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.visibleUsers(v).Where("users.id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *UserService) IsVisibleTo(v *viewer.Context, userID uuid.UUID) (bool, error) {
	var n int64
	if err := s.visibleUsers(v).Where("users.id = ?", userID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByUsername ignores visibility; it is meant for admin tooling.
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *UserService) ListVisibleNoViewer(limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.Scopes(visibility.UsersVisibleNoViewer()).Order("username ASC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) SetInvisible(userID uuid.UUID, invisible bool) error {
	return s.setFlag(userID, "is_invisible", invisible)
}

func (s *UserService) SetBanned(userID uuid.UUID, banned bool) error {
	return s.setFlag(userID, "is_banned", banned)
}

func (s *UserService) MarkDeleted(userID uuid.UUID) error {
	return s.setFlag(userID, "is_deleted", true)
}

func (s *UserService) setFlag(userID uuid.UUID, column string, value bool) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
