package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/flexlog/flexchat/internal/app/models"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
	"github.com/flexlog/flexchat/internal/pkg/changefeed"
)

// ReactionService manages emoji reactions and their per-message aggregates
type ReactionService interface {
	AddReaction(ctx context.Context, messageID, userID int64, emoji string) error
	RemoveReaction(ctx context.Context, messageID, userID int64, emoji string) error
	ListForMessage(ctx context.Context, messageID, viewerID int64) ([]models.ReactionSummary, error)
	SummarizeForMessages(ctx context.Context, messageIDs []int64, viewerID int64) (map[int64][]models.ReactionSummary, error)
}

// reactionServiceImpl implements ReactionService
type reactionServiceImpl struct {
	reactions  ReactionStore
	messages   MessageStore
	membership MembershipStore
	feed       *changefeed.Broker
	logger     zerolog.Logger
}

// NewReactionService creates a new ReactionService
func NewReactionService(
	reactions ReactionStore,
	messages MessageStore,
	membership MembershipStore,
	feed *changefeed.Broker,
	logger zerolog.Logger,
) ReactionService {
	return &reactionServiceImpl{
		reactions:  reactions,
		messages:   messages,
		membership: membership,
		feed:       feed,
		logger:     logger,
	}
}

// AddReaction records one (message, user, emoji) reaction. Adding the same
// reaction twice is a no-op, not an error; uniqueness is enforced by the
// storage constraint so concurrent duplicates collapse to one row.
func (s *reactionServiceImpl) AddReaction(ctx context.Context, messageID, userID int64, emoji string) error {
	if emoji == "" {
		return apperrors.NewValidationError("emoji must not be empty")
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return apperrors.NewResourceNotFoundError("message not found")
	}

	isMember, err := s.membership.IsMember(ctx, message.ConversationID, userID)
	if err != nil {
		return apperrors.NewAuthorizationError("could not verify conversation membership")
	}
	if !isMember {
		return apperrors.NewAuthorizationError("user is not a member of this conversation")
	}

	inserted, err := s.reactions.Insert(ctx, &models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	})
	if err != nil {
		return fmt.Errorf("error adding reaction: %w", err)
	}
	if !inserted {
		// Duplicate of an existing reaction.
		return nil
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableReactions,
		Kind:           changefeed.EventInsert,
		ConversationID: message.ConversationID,
		UserID:         userID,
		RowID:          messageID,
	})
	return nil
}

// RemoveReaction deletes the user's reaction. Removing one that does not
// exist is a no-op.
func (s *reactionServiceImpl) RemoveReaction(ctx context.Context, messageID, userID int64, emoji string) error {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return apperrors.NewResourceNotFoundError("message not found")
	}

	removed, err := s.reactions.Delete(ctx, messageID, userID, emoji)
	if err != nil {
		return fmt.Errorf("error removing reaction: %w", err)
	}
	if !removed {
		return nil
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableReactions,
		Kind:           changefeed.EventDelete,
		ConversationID: message.ConversationID,
		UserID:         userID,
		RowID:          messageID,
	})
	return nil
}

// ListForMessage returns the per-emoji aggregates for one message.
func (s *reactionServiceImpl) ListForMessage(ctx context.Context, messageID, viewerID int64) ([]models.ReactionSummary, error) {
	reactions, err := s.reactions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving reactions: %w", err)
	}
	return SummarizeReactions(reactions, viewerID), nil
}

// SummarizeForMessages batches aggregation across the messages of a view.
func (s *reactionServiceImpl) SummarizeForMessages(ctx context.Context, messageIDs []int64, viewerID int64) (map[int64][]models.ReactionSummary, error) {
	if len(messageIDs) == 0 {
		return map[int64][]models.ReactionSummary{}, nil
	}

	byMessage, err := s.reactions.ListByMessages(ctx, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("error retrieving reactions: %w", err)
	}

	summaries := make(map[int64][]models.ReactionSummary, len(byMessage))
	for messageID, reactions := range byMessage {
		summaries[messageID] = SummarizeReactions(reactions, viewerID)
	}
	return summaries, nil
}

// SummarizeReactions folds raw reaction rows into per-emoji aggregates.
// Groups are ordered by count descending, ties broken by first appearance
// in the input, which the store returns in insertion order.
func SummarizeReactions(reactions []*models.Reaction, viewerID int64) []models.ReactionSummary {
	index := make(map[string]int)
	summaries := make([]models.ReactionSummary, 0)

	for _, reaction := range reactions {
		i, ok := index[reaction.Emoji]
		if !ok {
			i = len(summaries)
			index[reaction.Emoji] = i
			summaries = append(summaries, models.ReactionSummary{Emoji: reaction.Emoji})
		}
		summaries[i].Count++
		summaries[i].ReactorIDs = append(summaries[i].ReactorIDs, reaction.UserID)
		if reaction.UserID == viewerID {
			summaries[i].ReactedByCurrentUser = true
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return summaries
}
