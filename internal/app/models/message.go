package models

import "time"

// MediaType tags the kind of media attached to a message
type MediaType string

const (
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
	MediaTypeGif   MediaType = "GIF"
)

// DeliveryStatus is the client-visible lifecycle state of a message.
// Only the in-memory delivery registry ever holds sending/failed; a row
// that reached the store is by definition sent.
type DeliveryStatus string

const (
	DeliveryStatusSending DeliveryStatus = "SENDING"
	DeliveryStatusSent    DeliveryStatus = "SENT"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
)

// Message represents a persisted row in the 'messages' table
type Message struct {
	ID             int64      `json:"id" db:"id"`
	ConversationID int64      `json:"conversationId" db:"conversation_id"`
	AuthorID       int64      `json:"authorId" db:"author_id"`
	Body           *string    `json:"body,omitempty" db:"body"`
	MediaURL       *string    `json:"mediaUrl,omitempty" db:"media_url"`
	MediaType      *MediaType `json:"mediaType,omitempty" db:"media_type"`
	ReplyToID      *int64     `json:"replyToId,omitempty" db:"reply_to_id"`
	Pinned         bool       `json:"pinned" db:"pinned"`
	Hidden         bool       `json:"hidden" db:"hidden"`
	Read           bool       `json:"read" db:"read"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`

	// Related entities, populated on read
	Author *Profile `json:"author,omitempty"`
}

// HasContent reports whether the message carries a body or media.
// A message with neither is invalid and must never reach the store.
func (m *Message) HasContent() bool {
	return (m.Body != nil && *m.Body != "") || (m.MediaURL != nil && *m.MediaURL != "")
}
