package services

import (
	"errors"
	"fmt"

	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrAlreadyBlocked = errors.New("user already blocked")
	ErrNotBlocked     = errors.New("user is not blocked")
	ErrSelfBlock      = errors.New("cannot block yourself")
	ErrSelfReport     = errors.New("cannot report yourself")
)

type ModerationService struct {
	db *gorm.DB
}

func NewModerationService(db *gorm.DB) *ModerationService {
	return &ModerationService{db: db}
}

func (s *ModerationService) userExists(userID uuid.UUID) (bool, error) {
	var n int64
	if err := s.db.Model(&models.User{}).Where("id = ? AND is_deleted = ?", userID, false).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// BlockUser blocks blockedID for blockerID. Blocking hides the pair from each
// other everywhere the visibility filters apply.
func (s *ModerationService) BlockUser(blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	ok, err := s.userExists(blockedID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}

	var existing models.UserBlock
	err = s.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&existing).Error
	if err == nil {
		return ErrAlreadyBlocked
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check block: %w", err)
	}

	block := models.UserBlock{
		BlockerID: blockerID,
		BlockedID: blockedID,
	}
	if err := s.db.Create(&block).Error; err != nil {
		return fmt.Errorf("failed to create block: %w", err)
	}
	return nil
}

func (s *ModerationService) UnblockUser(blockerID, blockedID uuid.UUID) error {
	result := s.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).Delete(&models.UserBlock{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete block: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotBlocked
	}
	return nil
}

// ListBlocked returns the users blockerID has blocked. Visibility filters do
// not apply: a blocked user is hidden by definition.
func (s *ModerationService) ListBlocked(blockerID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := s.db.Model(&models.User{}).
		Joins("JOIN user_blocks ON user_blocks.blocked_id = users.id").
		Where("user_blocks.blocker_id = ?", blockerID).
		Order("user_blocks.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	return users, nil
}

func (s *ModerationService) CreateReport(reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	if reporterID == req.ReportedUserID {
		return nil, ErrSelfReport
	}

	ok, err := s.userExists(req.ReportedUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	report := models.Report{
		ReportingUserID: reporterID,
		ReportedUserID:  req.ReportedUserID,
		Reason:          req.Reason,
		Description:     req.Description,
		Status:          models.ReportStatusPending,
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

func (s *ModerationService) ListReports(status string, limit, offset int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

func (s *ModerationService) ActionReport(reportID uuid.UUID, req *dto.ActionReportRequest) error {
	result := s.db.Model(&models.Report{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"admin_note": req.AdminNote,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}
