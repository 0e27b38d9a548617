package dto

import (
	"time"

	"github.com/flexlog/flexchat/internal/app/models"
)

// --- Request DTOs ---

// SendMessageRequest represents data for sending a new message.
// Body or media must be present; the service rejects an empty message
// before any storage write.
type SendMessageRequest struct {
	Body                 *string `json:"body,omitempty"`
	MediaURL             *string `json:"mediaUrl,omitempty"`
	MediaType            *string `json:"mediaType,omitempty" binding:"omitempty,oneof=IMAGE VIDEO GIF"`
	ReplyToID            *int64  `json:"replyToId,omitempty"`
	ReplyToProvisionalID *string `json:"replyToProvisionalId,omitempty"`
	// ProvisionalID lets the client pick its own id for optimistic
	// rendering and dedup; the pipeline assigns one when absent.
	ProvisionalID string `json:"provisionalId,omitempty"`
}

// --- Response DTOs ---

// ProvisionalMessageResponse is the delivery pipeline's view of one send:
// the provisional identity, the reconciled server identity once known, and
// the delivery status.
type ProvisionalMessageResponse struct {
	ProvisionalID  string                `json:"provisionalId"`
	ServerID       *int64                `json:"serverId,omitempty"`
	Status         models.DeliveryStatus `json:"status"`
	ConversationID int64                 `json:"conversationId"`
	AuthorID       int64                 `json:"authorId"`
	Body           *string               `json:"body,omitempty"`
	MediaURL       *string               `json:"mediaUrl,omitempty"`
	MediaType      *string               `json:"mediaType,omitempty"`
	ReplyToID      *int64                `json:"replyToId,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// ReplyPreviewResponse is the denormalized projection of a reply target,
// recomputed at read time. Available is false when the target was deleted
// or hidden; the client renders a placeholder instead of erroring.
type ReplyPreviewResponse struct {
	MessageID  int64   `json:"messageId"`
	Available  bool    `json:"available"`
	AuthorName string  `json:"authorName,omitempty"`
	AvatarURL  *string `json:"avatarUrl,omitempty"`
	Body       *string `json:"body,omitempty"`
	MediaLabel *string `json:"mediaLabel,omitempty"`
}

// MessageResponse represents a persisted message with its read-side joins
type MessageResponse struct {
	ID             int64                    `json:"id"`
	ConversationID int64                    `json:"conversationId"`
	AuthorID       int64                    `json:"authorId"`
	AuthorName     string                   `json:"authorName,omitempty"`
	Body           *string                  `json:"body,omitempty"`
	MediaURL       *string                  `json:"mediaUrl,omitempty"`
	MediaType      *string                  `json:"mediaType,omitempty"`
	Pinned         bool                     `json:"pinned"`
	Read           bool                     `json:"read"`
	Status         models.DeliveryStatus    `json:"status"`
	CreatedAt      time.Time                `json:"createdAt"`
	ReplyPreview   *ReplyPreviewResponse    `json:"replyPreview,omitempty"`
	Reactions      []models.ReactionSummary `json:"reactions,omitempty"`
}

// ToMessageResponse converts a persisted row. Everything read back from the
// store is by definition sent.
func ToMessageResponse(m *models.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		AuthorID:       m.AuthorID,
		Body:           m.Body,
		MediaURL:       m.MediaURL,
		Pinned:         m.Pinned,
		Read:           m.Read,
		Status:         models.DeliveryStatusSent,
		CreatedAt:      m.CreatedAt,
	}
	if m.MediaType != nil {
		mt := string(*m.MediaType)
		resp.MediaType = &mt
	}
	if m.Author != nil {
		resp.AuthorName = m.Author.DisplayName
	}
	return resp
}
