package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
)

const defaultViewLimit = 50

// ConversationService composes the full conversation view: the message
// window with reply previews and reaction aggregates, who is typing and
// who is present. Clients re-request the view when the change feed marks
// it dirty; no partial state is pushed to them.
type ConversationService interface {
	ComposeView(ctx context.Context, conversationID, viewerID int64, before *time.Time, limit int) (*dto.ConversationViewResponse, error)
	ListParticipants(ctx context.Context, conversationID, viewerID int64) ([]dto.ParticipantResponse, error)
}

// conversationServiceImpl implements ConversationService
type conversationServiceImpl struct {
	messageService  MessageService
	reactionService ReactionService
	typingService   TypingService
	presenceService PresenceService
	messages        MessageStore
	membership      MembershipStore
	logger          zerolog.Logger
}

// NewConversationService creates a new ConversationService
func NewConversationService(
	messageService MessageService,
	reactionService ReactionService,
	typingService TypingService,
	presenceService PresenceService,
	messages MessageStore,
	membership MembershipStore,
	logger zerolog.Logger,
) ConversationService {
	return &conversationServiceImpl{
		messageService:  messageService,
		reactionService: reactionService,
		typingService:   typingService,
		presenceService: presenceService,
		messages:        messages,
		membership:      membership,
		logger:          logger,
	}
}

// ComposeView builds the conversation view for one member. A membership
// check that cannot be completed denies access; there is no degraded
// fallback for authorization.
func (s *conversationServiceImpl) ComposeView(
	ctx context.Context,
	conversationID, viewerID int64,
	before *time.Time,
	limit int,
) (*dto.ConversationViewResponse, error) {
	isMember, err := s.membership.IsMember(ctx, conversationID, viewerID)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("conversationID", conversationID).
			Int64("userID", viewerID).
			Msg("Failed to check membership")
		return nil, apperrors.NewAuthorizationError("could not verify conversation membership")
	}
	if !isMember {
		return nil, apperrors.NewAuthorizationError("user is not a member of this conversation")
	}

	if limit <= 0 {
		limit = defaultViewLimit
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("error retrieving messages: %w", err)
	}

	messageIDs := make([]int64, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	reactions, err := s.reactionService.SummarizeForMessages(ctx, messageIDs, viewerID)
	if err != nil {
		return nil, err
	}

	pinnedIDs := make([]int64, 0)
	responses := make([]dto.MessageResponse, 0, len(messages))
	for _, message := range messages {
		resp := dto.ToMessageResponse(message)
		resp.Reactions = reactions[message.ID]
		if message.ReplyToID != nil {
			resp.ReplyPreview = s.messageService.ReplyPreview(ctx, *message.ReplyToID)
		}
		if message.Pinned {
			pinnedIDs = append(pinnedIDs, message.ID)
		}
		responses = append(responses, resp)
	}

	typing, err := s.typingService.ListTyping(ctx, conversationID, viewerID)
	if err != nil {
		// Typing is decorative; the view stays useful without it.
		s.logger.Warn().Err(err).
			Int64("conversationID", conversationID).
			Msg("Composed view without typing indicators")
		typing = &dto.TypingListResponse{Typing: []dto.TypingUserResponse{}}
	}

	presence, err := s.presenceService.FetchOnline(ctx, &conversationID)
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("conversationID", conversationID).
			Msg("Composed view without presence")
		presence = []dto.PresenceResponse{}
	}

	return &dto.ConversationViewResponse{
		ConversationID: conversationID,
		Messages:       responses,
		Typing:         *typing,
		Presence:       presence,
		PinnedIDs:      pinnedIDs,
	}, nil
}

// ListParticipants returns the membership roster with joined display names.
func (s *conversationServiceImpl) ListParticipants(ctx context.Context, conversationID, viewerID int64) ([]dto.ParticipantResponse, error) {
	isMember, err := s.membership.IsMember(ctx, conversationID, viewerID)
	if err != nil {
		return nil, apperrors.NewAuthorizationError("could not verify conversation membership")
	}
	if !isMember {
		return nil, apperrors.NewAuthorizationError("user is not a member of this conversation")
	}

	participants, err := s.membership.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving participants: %w", err)
	}

	responses := make([]dto.ParticipantResponse, 0, len(participants))
	for _, participant := range participants {
		responses = append(responses, dto.ToParticipantResponse(participant))
	}
	return responses, nil
}
