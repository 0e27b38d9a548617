package services

import (
	"context"
	"time"

	"github.com/flexlog/flexchat/internal/app/models"
)

// Store interfaces consumed by the services. The pgx-backed repositories
// satisfy them; tests substitute in-memory fakes.

// MessageStore persists and reads message rows
type MessageStore interface {
	Insert(ctx context.Context, message *models.Message) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID int64, before *time.Time, limit int) ([]*models.Message, error)
	ListPinned(ctx context.Context, conversationID int64) ([]*models.Message, error)
	SetPinned(ctx context.Context, id int64, pinned bool) error
	MarkRead(ctx context.Context, id int64) error
}

// TypingStore persists typing status rows keyed by (user, conversation)
type TypingStore interface {
	Upsert(ctx context.Context, status *models.TypingStatus) error
	Delete(ctx context.Context, userID, conversationID int64) error
	ListActive(ctx context.Context, conversationID, excludeUserID int64, since time.Time) ([]*models.TypingStatus, error)
}

// PresenceStore persists presence rows keyed by user
type PresenceStore interface {
	Upsert(ctx context.Context, presence *models.Presence) error
	ListOnline(ctx context.Context, conversationID *int64, staleBefore time.Time) ([]*models.Presence, error)
}

// ReactionStore persists reaction rows
type ReactionStore interface {
	Insert(ctx context.Context, reaction *models.Reaction) (bool, error)
	Delete(ctx context.Context, messageID, userID int64, emoji string) (bool, error)
	ListByMessage(ctx context.Context, messageID int64) ([]*models.Reaction, error)
	ListByMessages(ctx context.Context, messageIDs []int64) (map[int64][]*models.Reaction, error)
}

// MembershipStore answers conversation authorization questions and lists
// the membership roster
type MembershipStore interface {
	IsMember(ctx context.Context, conversationID, userID int64) (bool, error)
	IsAdmin(ctx context.Context, conversationID, userID int64) (bool, error)
	ListByConversation(ctx context.Context, conversationID int64) ([]*models.ConversationParticipant, error)
}
