package dto

import (
	"time"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/google/uuid"
)

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Gender   string    `json:"gender"`
	Joined   time.Time `json:"joined"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Gender:   u.Gender,
		Joined:   u.Joined,
	}
}

func NewUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = NewUserResponse(&users[i])
	}
	return out
}

type UsersListResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type SendFriendRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type RespondFriendRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

type FriendRequestResponse struct {
	ID       uuid.UUID           `json:"id"`
	FromUser *UserResponse       `json:"from_user,omitempty"`
	ToUserID uuid.UUID           `json:"to_user_id"`
	Status   models.FriendStatus `json:"status"`
	TimeSent time.Time           `json:"time_sent"`
}

func NewFriendRequestResponse(rel *models.FriendRelationship) FriendRequestResponse {
	resp := FriendRequestResponse{
		ID:       rel.ID,
		ToUserID: rel.ToUserID,
		Status:   rel.Status,
		TimeSent: rel.TimeSent,
	}
	if rel.FromUser.ID != uuid.Nil {
		from := NewUserResponse(&rel.FromUser)
		resp.FromUser = &from
	}
	return resp
}
