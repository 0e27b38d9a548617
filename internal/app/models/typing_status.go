package models

import "time"

// TypingStatus represents a row in the 'typing_status' table, keyed by
// (user_id, conversation_id). A row whose updated_at is older than the
// configured expiry window counts as absent even before it is deleted;
// readers must filter by recency, not rely on deletion alone.
type TypingStatus struct {
	UserID         int64     `json:"userId" db:"user_id"`
	ConversationID int64     `json:"conversationId" db:"conversation_id"`
	StartedAt      time.Time `json:"startedAt" db:"started_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`

	// Display name of the typer, joined from profiles on read
	User *Profile `json:"user,omitempty"`
}

// Expired reports whether the status is older than the expiry window at now.
func (t *TypingStatus) Expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(t.UpdatedAt) >= expiry
}
