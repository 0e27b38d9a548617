package models

import "time"

// Reaction represents a row in the 'reactions' table. The table carries a
// UNIQUE(message_id, user_id, emoji) constraint: a user may react with the
// same emoji at most once, multiple distinct emojis are allowed.
type Reaction struct {
	ID        int64     `json:"id" db:"id"`
	MessageID int64     `json:"messageId" db:"message_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Emoji     string    `json:"emoji" db:"emoji"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ReactionSummary is the derived per-emoji aggregate for one message.
// Recomputed from the raw reaction set on every read, never stored.
type ReactionSummary struct {
	Emoji                string  `json:"emoji"`
	Count                int     `json:"count"`
	ReactedByCurrentUser bool    `json:"reactedByCurrentUser"`
	ReactorIDs           []int64 `json:"reactorIds"`
}
