package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flexlog/flexchat/internal/app/models"
	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
	"github.com/flexlog/flexchat/internal/pkg/changefeed"
)

// MessageService is the delivery pipeline: optimistic local append,
// persisted insert, status transitions and the retry affordance.
type MessageService interface {
	Send(ctx context.Context, conversationID, authorID int64, req *dto.SendMessageRequest) (*dto.ProvisionalMessageResponse, error)
	Retry(ctx context.Context, authorID int64, provisionalID string) (*dto.ProvisionalMessageResponse, error)
	Pin(ctx context.Context, messageID, userID int64) error
	Unpin(ctx context.Context, messageID, userID int64) error
	MarkRead(ctx context.Context, messageID, userID int64) error
	ListPinned(ctx context.Context, conversationID, userID int64) ([]dto.MessageResponse, error)
	ReplyPreview(ctx context.Context, targetID int64) *dto.ReplyPreviewResponse
	ResolveProvisional(provisionalID string) (int64, bool)
}

// deliveryEntry is one in-flight or settled send held by the registry.
// The retained payload makes retry resubmit exactly what was sent.
type deliveryEntry struct {
	provisionalID  string
	conversationID int64
	authorID       int64
	body           *string
	mediaURL       *string
	mediaType      *models.MediaType
	replyToID      *int64
	replyToProv    *string
	status         models.DeliveryStatus
	serverID       *int64
	createdAt      time.Time
}

func (e *deliveryEntry) toResponse() *dto.ProvisionalMessageResponse {
	resp := &dto.ProvisionalMessageResponse{
		ProvisionalID:  e.provisionalID,
		ServerID:       e.serverID,
		Status:         e.status,
		ConversationID: e.conversationID,
		AuthorID:       e.authorID,
		Body:           e.body,
		MediaURL:       e.mediaURL,
		ReplyToID:      e.replyToID,
		CreatedAt:      e.createdAt,
	}
	if e.mediaType != nil {
		mt := string(*e.mediaType)
		resp.MediaType = &mt
	}
	return resp
}

// messageServiceImpl implements MessageService
type messageServiceImpl struct {
	messages   MessageStore
	membership MembershipStore
	feed       *changefeed.Broker
	logger     zerolog.Logger
	retention  time.Duration

	// registry holds delivery entries keyed by provisional id; arena maps
	// settled provisional ids to their server-assigned identity so pending
	// references retarget transparently once the real id is known. Settled
	// SENT entries and their arena bindings are evicted after the retention
	// window; FAILED entries stay until retried so the payload survives.
	mu       sync.Mutex
	registry map[string]*deliveryEntry
	arena    map[string]int64
}

// NewMessageService creates a new MessageService
func NewMessageService(
	messages MessageStore,
	membership MembershipStore,
	feed *changefeed.Broker,
	logger zerolog.Logger,
	retention time.Duration,
) MessageService {
	return &messageServiceImpl{
		messages:   messages,
		membership: membership,
		feed:       feed,
		logger:     logger,
		retention:  retention,
		registry:   make(map[string]*deliveryEntry),
		arena:      make(map[string]int64),
	}
}

// Send materializes a provisional message, persists it and reconciles the
// provisional identity with the server-assigned one. A persist failure
// leaves the entry in FAILED with its payload intact for Retry; it is not
// an error from the pipeline's perspective.
func (s *messageServiceImpl) Send(
	ctx context.Context,
	conversationID, authorID int64,
	req *dto.SendMessageRequest,
) (*dto.ProvisionalMessageResponse, error) {
	draft := models.Message{Body: req.Body, MediaURL: req.MediaURL}
	if !draft.HasContent() {
		return nil, apperrors.NewEmptyMessageError("message must carry a body or media")
	}
	if req.MediaURL != nil && *req.MediaURL != "" && req.MediaType == nil {
		return nil, apperrors.NewInvalidMediaError("media requires a media type")
	}

	isMember, err := s.membership.IsMember(ctx, conversationID, authorID)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("conversationID", conversationID).
			Int64("userID", authorID).
			Msg("Failed to check membership")
		return nil, apperrors.NewAuthorizationError("could not verify conversation membership")
	}
	if !isMember {
		return nil, apperrors.NewAuthorizationError("user is not a member of this conversation")
	}

	provisionalID := req.ProvisionalID
	if provisionalID == "" {
		provisionalID = uuid.New().String()
	}

	s.mu.Lock()
	if existing, ok := s.registry[provisionalID]; ok {
		if existing.authorID != authorID || existing.conversationID != conversationID {
			// The id belongs to someone else's send; handing back that
			// entry would leak its payload across conversations.
			s.mu.Unlock()
			return nil, apperrors.NewConflictError("provisional id is already bound to another message")
		}
		// At-least-once from the caller: the same provisional id is the
		// dedup key, return the current state instead of double-sending.
		resp := existing.toResponse()
		s.mu.Unlock()
		return resp, nil
	}

	entry := &deliveryEntry{
		provisionalID:  provisionalID,
		conversationID: conversationID,
		authorID:       authorID,
		body:           req.Body,
		mediaURL:       req.MediaURL,
		replyToID:      req.ReplyToID,
		replyToProv:    req.ReplyToProvisionalID,
		status:         models.DeliveryStatusSending,
		createdAt:      time.Now(),
	}
	if req.MediaType != nil {
		mt := models.MediaType(*req.MediaType)
		entry.mediaType = &mt
	}
	s.registry[provisionalID] = entry
	s.mu.Unlock()

	s.persist(ctx, entry)
	return s.snapshot(provisionalID), nil
}

// Retry resubmits the identical retained payload of a failed send.
func (s *messageServiceImpl) Retry(
	ctx context.Context,
	authorID int64,
	provisionalID string,
) (*dto.ProvisionalMessageResponse, error) {
	s.mu.Lock()
	entry, ok := s.registry[provisionalID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NewResourceNotFoundError("no pending message with this provisional id")
	}
	if entry.authorID != authorID {
		s.mu.Unlock()
		return nil, apperrors.NewForbiddenError("only the author may retry a message")
	}
	if entry.status != models.DeliveryStatusFailed {
		// Already sent or still in flight: report the current state.
		resp := entry.toResponse()
		s.mu.Unlock()
		return resp, nil
	}
	entry.status = models.DeliveryStatusSending
	s.mu.Unlock()

	s.persist(ctx, entry)
	return s.snapshot(provisionalID), nil
}

// persist issues the storage write and settles the entry's status.
func (s *messageServiceImpl) persist(ctx context.Context, entry *deliveryEntry) {
	message := &models.Message{
		ConversationID: entry.conversationID,
		AuthorID:       entry.authorID,
		Body:           entry.body,
		MediaURL:       entry.mediaURL,
		MediaType:      entry.mediaType,
		ReplyToID:      s.resolveReplyTarget(entry),
	}

	id, err := s.messages.Insert(ctx, message)

	s.mu.Lock()
	if err != nil {
		entry.status = models.DeliveryStatusFailed
		s.mu.Unlock()
		s.logger.Warn().Err(err).
			Str("provisionalID", entry.provisionalID).
			Int64("conversationID", entry.conversationID).
			Msg("Message persist failed, kept for retry")
		return
	}

	entry.status = models.DeliveryStatusSent
	entry.serverID = &id
	entry.replyToID = message.ReplyToID
	entry.createdAt = message.CreatedAt
	s.arena[entry.provisionalID] = id
	s.mu.Unlock()

	// The settled entry only serves dedup and reply retargeting now, so it
	// is dropped after the retention window instead of accruing forever.
	time.AfterFunc(s.retention, func() {
		s.evict(entry.provisionalID)
	})

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableMessages,
		Kind:           changefeed.EventInsert,
		ConversationID: entry.conversationID,
		UserID:         entry.authorID,
		RowID:          id,
	})
}

// evict drops a settled entry and its arena binding. A FAILED entry is
// never evicted; its retained payload is what makes Retry possible.
func (s *messageServiceImpl) evict(provisionalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.registry[provisionalID]
	if !ok || entry.status != models.DeliveryStatusSent {
		return
	}
	delete(s.registry, provisionalID)
	delete(s.arena, provisionalID)
}

// resolveReplyTarget maps a provisional reply reference through the arena.
// A target that never settled resolves to no reply rather than an error;
// the read side degrades the preview the same way it does for a deleted
// target.
func (s *messageServiceImpl) resolveReplyTarget(entry *deliveryEntry) *int64 {
	if entry.replyToID != nil {
		return entry.replyToID
	}
	if entry.replyToProv == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.arena[*entry.replyToProv]; ok {
		return &id
	}
	return nil
}

// ResolveProvisional returns the server identity bound to a provisional id.
func (s *messageServiceImpl) ResolveProvisional(provisionalID string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.arena[provisionalID]
	return id, ok
}

func (s *messageServiceImpl) snapshot(provisionalID string) *dto.ProvisionalMessageResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.registry[provisionalID]; ok {
		return entry.toResponse()
	}
	return nil
}

// Pin marks a message pinned. Any member may pin.
func (s *messageServiceImpl) Pin(ctx context.Context, messageID, userID int64) error {
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

	if err := s.messages.SetPinned(ctx, messageID, true); err != nil {
		return fmt.Errorf("error pinning message: %w", err)
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableMessages,
		Kind:           changefeed.EventUpdate,
		ConversationID: message.ConversationID,
		UserID:         userID,
		RowID:          messageID,
	})
	return nil
}

// Unpin removes the pinned flag. Only a conversation admin may unpin.
func (s *messageServiceImpl) Unpin(ctx context.Context, messageID, userID int64) error {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return apperrors.NewResourceNotFoundError("message not found")
	}

	isAdmin, err := s.membership.IsAdmin(ctx, message.ConversationID, userID)
	if err != nil {
		return apperrors.NewAuthorizationError("could not verify conversation membership")
	}
	if !isAdmin {
		return apperrors.NewAdminRequiredError("only a conversation admin can unpin messages")
	}

	if err := s.messages.SetPinned(ctx, messageID, false); err != nil {
		return fmt.Errorf("error unpinning message: %w", err)
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableMessages,
		Kind:           changefeed.EventUpdate,
		ConversationID: message.ConversationID,
		UserID:         userID,
		RowID:          messageID,
	})
	return nil
}

// MarkRead records that a member has seen a message. Marking an already
// read message is a no-op at the storage layer.
func (s *messageServiceImpl) MarkRead(ctx context.Context, messageID, userID int64) error {
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

	if err := s.messages.MarkRead(ctx, messageID); err != nil {
		return fmt.Errorf("error marking message read: %w", err)
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableMessages,
		Kind:           changefeed.EventUpdate,
		ConversationID: message.ConversationID,
		UserID:         userID,
		RowID:          messageID,
	})
	return nil
}

// ListPinned returns the pinned sub-view, oldest-first.
func (s *messageServiceImpl) ListPinned(ctx context.Context, conversationID, userID int64) ([]dto.MessageResponse, error) {
	isMember, err := s.membership.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, apperrors.NewAuthorizationError("could not verify conversation membership")
	}
	if !isMember {
		return nil, apperrors.NewAuthorizationError("user is not a member of this conversation")
	}

	messages, err := s.messages.ListPinned(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving pinned messages: %w", err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	responses := make([]dto.MessageResponse, 0, len(messages))
	for _, message := range messages {
		resp := dto.ToMessageResponse(message)
		if message.ReplyToID != nil {
			resp.ReplyPreview = s.ReplyPreview(ctx, *message.ReplyToID)
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

// ReplyPreview resolves the minimal projection of a reply target. A
// missing, hidden or unreadable target degrades to an unavailable
// placeholder; it never propagates an error into the view.
func (s *messageServiceImpl) ReplyPreview(ctx context.Context, targetID int64) *dto.ReplyPreviewResponse {
	target, err := s.messages.GetByID(ctx, targetID)
	if err != nil || target == nil || target.Hidden {
		return &dto.ReplyPreviewResponse{MessageID: targetID, Available: false}
	}

	preview := &dto.ReplyPreviewResponse{
		MessageID: targetID,
		Available: true,
	}
	if target.Author != nil {
		preview.AuthorName = target.Author.DisplayName
		preview.AvatarURL = target.Author.AvatarURL
	}
	if target.Body != nil && *target.Body != "" {
		preview.Body = target.Body
	} else if target.MediaType != nil {
		label := mediaLabel(*target.MediaType)
		preview.MediaLabel = &label
	}
	return preview
}

func mediaLabel(mt models.MediaType) string {
	switch mt {
	case models.MediaTypeImage:
		return "Photo"
	case models.MediaTypeVideo:
		return "Video"
	case models.MediaTypeGif:
		return "GIF"
	default:
		return "Attachment"
	}
}
