package models

import "time"

// PresenceStatus is the derived availability of a user
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "ONLINE"
	PresenceIdle    PresenceStatus = "IDLE"
	PresenceOffline PresenceStatus = "OFFLINE"
)

// Presence represents a row in the 'presence' table, keyed by user_id.
// Multiple clients may upsert the same row; last-write-wins is acceptable
// because each writer only writes its own key.
type Presence struct {
	UserID               int64          `json:"userId" db:"user_id"`
	Status               PresenceStatus `json:"status" db:"status"`
	LastSeenAt           time.Time      `json:"lastSeenAt" db:"last_seen_at"`
	ActiveConversationID *int64         `json:"activeConversationId,omitempty" db:"active_conversation_id"`

	User *Profile `json:"user,omitempty"`
}

// ComputePresenceStatus derives status purely from elapsed time since the
// last observed activity. Consumers apply the same function to stored rows,
// so a lost best-effort offline write self-heals once last_seen_at goes stale.
func ComputePresenceStatus(now, lastActivity time.Time, idleAfter, offlineAfter time.Duration) PresenceStatus {
	elapsed := now.Sub(lastActivity)
	switch {
	case elapsed >= offlineAfter:
		return PresenceOffline
	case elapsed >= idleAfter:
		return PresenceIdle
	default:
		return PresenceOnline
	}
}
