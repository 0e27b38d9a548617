package dto

import (
	"time"

	"github.com/flexlog/flexchat/internal/app/models"
)

// HeartbeatRequest reports client activity. ActiveConversationID scopes
// per-conversation presence queries; nil means no conversation focused.
type HeartbeatRequest struct {
	ActiveConversationID *int64 `json:"activeConversationId,omitempty"`
}

// PresenceResponse is one user's derived availability
type PresenceResponse struct {
	UserID               int64                 `json:"userId"`
	DisplayName          string                `json:"displayName,omitempty"`
	AvatarURL            *string               `json:"avatarUrl,omitempty"`
	Status               models.PresenceStatus `json:"status"`
	LastSeenAt           time.Time             `json:"lastSeenAt"`
	ActiveConversationID *int64                `json:"activeConversationId,omitempty"`
}

// ToPresenceResponse converts a presence row
func ToPresenceResponse(p *models.Presence) PresenceResponse {
	resp := PresenceResponse{
		UserID:               p.UserID,
		Status:               p.Status,
		LastSeenAt:           p.LastSeenAt,
		ActiveConversationID: p.ActiveConversationID,
	}
	if p.User != nil {
		resp.DisplayName = p.User.DisplayName
		resp.AvatarURL = p.User.AvatarURL
	}
	return resp
}
