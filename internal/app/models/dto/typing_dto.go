package dto

import (
	"time"

	"github.com/flexlog/flexchat/internal/app/models"
)

// TypingUserResponse is one non-expired typer in a conversation
type TypingUserResponse struct {
	UserID      int64     `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TypingListResponse lists everyone currently typing, excluding the caller.
// RotationMillis tells the display layer how often to rotate the shown name
// when more than one user is typing; rotation itself is client-side.
type TypingListResponse struct {
	Typing         []TypingUserResponse `json:"typing"`
	RotationMillis int64                `json:"rotationMillis"`
}

// ToTypingUserResponse converts a typing status row
func ToTypingUserResponse(t *models.TypingStatus) TypingUserResponse {
	resp := TypingUserResponse{
		UserID:    t.UserID,
		StartedAt: t.StartedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.User != nil {
		resp.DisplayName = t.User.DisplayName
	}
	return resp
}
