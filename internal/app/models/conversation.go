package models

import "time"

// ParticipantRole is the authorization role inside a conversation
type ParticipantRole string

const (
	RoleMember ParticipantRole = "MEMBER"
	RoleAdmin  ParticipantRole = "ADMIN"
)

// ConversationParticipant represents a row in 'conversation_participants'.
// Membership here is the authoritative source for who may see a
// conversation's messages, typing status and presence.
type ConversationParticipant struct {
	ConversationID int64           `json:"conversationId" db:"conversation_id"`
	UserID         int64           `json:"userId" db:"user_id"`
	Role           ParticipantRole `json:"role" db:"role"`
	JoinedAt       time.Time       `json:"joinedAt" db:"joined_at"`

	User *Profile `json:"user,omitempty"`
}
