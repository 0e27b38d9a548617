package dto

import (
	"time"

	"github.com/flexlog/flexchat/internal/app/models"
)

// ConversationViewResponse merges the four realtime streams for one
// conversation into a single view model
type ConversationViewResponse struct {
	ConversationID int64              `json:"conversationId"`
	Messages       []MessageResponse  `json:"messages"`
	Typing         TypingListResponse `json:"typing"`
	Presence       []PresenceResponse `json:"presence"`
	PinnedIDs      []int64            `json:"pinnedIds,omitempty"`
}

// PinnedMessagesResponse is the pinned sub-view, ordered oldest-first
type PinnedMessagesResponse struct {
	ConversationID int64             `json:"conversationId"`
	Messages       []MessageResponse `json:"messages"`
}

// ParticipantResponse is one row of the membership roster
type ParticipantResponse struct {
	UserID      int64     `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// ToParticipantResponse converts a participant row with its profile join
func ToParticipantResponse(p *models.ConversationParticipant) ParticipantResponse {
	resp := ParticipantResponse{
		UserID:   p.UserID,
		Role:     string(p.Role),
		JoinedAt: p.JoinedAt,
	}
	if p.User != nil {
		resp.DisplayName = p.User.DisplayName
		resp.AvatarURL = p.User.AvatarURL
	}
	return resp
}
