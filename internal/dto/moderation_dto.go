package dto

import "github.com/google/uuid"

type CreateReportRequest struct {
	ReportedUserID uuid.UUID `json:"reported_user_id" validate:"required"`
	Reason         string    `json:"reason" validate:"required,max=100"`
	Description    string    `json:"description" validate:"max=5000"`
}

type ActionReportRequest struct {
	Status    string `json:"status" validate:"required,oneof=reviewed actioned dismissed"`
	AdminNote string `json:"admin_note" validate:"max=1000"`
}

type BlockUserRequest struct {
	BlockedID uuid.UUID `json:"blocked_id" validate:"required"`
}

// SetFlagRequest toggles a boolean user flag (invisible, banned).
type SetFlagRequest struct {
	Value *bool `json:"value" validate:"required"`
}
