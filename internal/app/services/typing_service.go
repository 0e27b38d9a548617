package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexlog/flexchat/internal/app/models"
	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
	"github.com/flexlog/flexchat/internal/pkg/changefeed"
)

// TypingService coordinates typing indicators. Input activity is debounced
// before the first shared write, the shared row is refreshed while typing
// continues and expires a fixed interval after the last refresh. All writes
// are best-effort; a dropped indicator is never surfaced to the caller.
type TypingService interface {
	SetTyping(ctx context.Context, conversationID, userID int64)
	ClearTyping(ctx context.Context, conversationID, userID int64)
	ListTyping(ctx context.Context, conversationID, viewerID int64) (*dto.TypingListResponse, error)
	Shutdown()
}

type typingPhase int

const (
	typingIdle typingPhase = iota
	typingPending
	typingActive
)

// typingSession tracks one (user, conversation) indicator through
// idle -> pending -> active. The debounce timer runs from the first
// keystroke and is not reset by further input; a clear that lands before
// it fires cancels the write entirely.
type typingSession struct {
	conversationID int64
	userID         int64
	phase          typingPhase
	debounce       *time.Timer
	expiry         *time.Timer
}

type typingKey struct {
	conversationID int64
	userID         int64
}

// typingServiceImpl implements TypingService
type typingServiceImpl struct {
	store    TypingStore
	feed     *changefeed.Broker
	logger   zerolog.Logger
	debounce time.Duration
	expiry   time.Duration
	rotation time.Duration

	mu       sync.Mutex
	sessions map[typingKey]*typingSession
	closed   bool
}

// NewTypingService creates a new TypingService
func NewTypingService(
	store TypingStore,
	feed *changefeed.Broker,
	logger zerolog.Logger,
	debounce, expiry, rotation time.Duration,
) TypingService {
	return &typingServiceImpl{
		store:    store,
		feed:     feed,
		logger:   logger,
		debounce: debounce,
		expiry:   expiry,
		rotation: rotation,
		sessions: make(map[typingKey]*typingSession),
	}
}

// SetTyping records input activity. The first call arms the debounce timer;
// while the session is active each call refreshes the shared row and pushes
// the expiry out.
func (s *typingServiceImpl) SetTyping(ctx context.Context, conversationID, userID int64) {
	key := typingKey{conversationID: conversationID, userID: userID}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	session, ok := s.sessions[key]
	if !ok {
		session = &typingSession{conversationID: conversationID, userID: userID}
		s.sessions[key] = session
	}

	refresh := false
	switch session.phase {
	case typingIdle:
		session.phase = typingPending
		session.debounce = time.AfterFunc(s.debounce, func() {
			s.activate(key)
		})
	case typingPending:
		// Debounce runs from the first keystroke; nothing to do.
	case typingActive:
		s.armExpiryLocked(session)
		refresh = true
	}
	s.mu.Unlock()

	if refresh {
		s.writeIndicator(conversationID, userID)
	}
}

// activate fires when the debounce elapses without a clear.
func (s *typingServiceImpl) activate(key typingKey) {
	s.mu.Lock()
	session, ok := s.sessions[key]
	if !ok || session.phase != typingPending || s.closed {
		s.mu.Unlock()
		return
	}
	session.phase = typingActive
	s.armExpiryLocked(session)
	s.mu.Unlock()

	s.writeIndicator(key.conversationID, key.userID)
}

// armExpiryLocked re-arms the expiry timer. Callers hold s.mu.
func (s *typingServiceImpl) armExpiryLocked(session *typingSession) {
	if session.expiry != nil {
		session.expiry.Stop()
	}
	key := typingKey{conversationID: session.conversationID, userID: session.userID}
	session.expiry = time.AfterFunc(s.expiry, func() {
		s.expire(key)
	})
}

// writeIndicator upserts the shared row outside the session lock so one
// slow storage round trip cannot stall every other typing session.
// Best-effort: a failed write drops this refresh, nothing retries it.
func (s *typingServiceImpl) writeIndicator(conversationID, userID int64) {
	status := &models.TypingStatus{UserID: userID, ConversationID: conversationID}
	if err := s.store.Upsert(context.Background(), status); err != nil {
		s.logger.Debug().Err(err).
			Int64("conversationID", conversationID).
			Int64("userID", userID).
			Msg("Dropped typing indicator write")
		return
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableTypingStatus,
		Kind:           changefeed.EventUpdate,
		ConversationID: conversationID,
		UserID:         userID,
	})
}

// ClearTyping ends the indicator immediately. A clear during the debounce
// window means the shared row is never written at all.
func (s *typingServiceImpl) ClearTyping(ctx context.Context, conversationID, userID int64) {
	key := typingKey{conversationID: conversationID, userID: userID}

	s.mu.Lock()
	session, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	phase := session.phase
	s.removeLocked(key, session)
	s.mu.Unlock()

	if phase != typingActive {
		return
	}

	if err := s.store.Delete(context.Background(), userID, conversationID); err != nil {
		s.logger.Debug().Err(err).
			Int64("conversationID", conversationID).
			Int64("userID", userID).
			Msg("Dropped typing indicator clear")
		return
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableTypingStatus,
		Kind:           changefeed.EventDelete,
		ConversationID: conversationID,
		UserID:         userID,
	})
}

// expire fires when no refresh arrived within the expiry window.
func (s *typingServiceImpl) expire(key typingKey) {
	s.mu.Lock()
	session, ok := s.sessions[key]
	if !ok || session.phase != typingActive {
		s.mu.Unlock()
		return
	}
	s.removeLocked(key, session)
	s.mu.Unlock()

	if err := s.store.Delete(context.Background(), key.userID, key.conversationID); err != nil {
		s.logger.Debug().Err(err).
			Int64("conversationID", key.conversationID).
			Int64("userID", key.userID).
			Msg("Dropped typing indicator expiry")
		return
	}

	s.feed.Publish(changefeed.Event{
		Table:          changefeed.TableTypingStatus,
		Kind:           changefeed.EventDelete,
		ConversationID: key.conversationID,
		UserID:         key.userID,
	})
}

// removeLocked stops timers and drops the session. Callers hold s.mu.
func (s *typingServiceImpl) removeLocked(key typingKey, session *typingSession) {
	if session.debounce != nil {
		session.debounce.Stop()
	}
	if session.expiry != nil {
		session.expiry.Stop()
	}
	delete(s.sessions, key)
}

// ListTyping returns who is currently typing in a conversation, excluding
// the viewer. Recency is enforced at read time so a crashed writer's stale
// row never renders.
func (s *typingServiceImpl) ListTyping(ctx context.Context, conversationID, viewerID int64) (*dto.TypingListResponse, error) {
	now := time.Now()
	statuses, err := s.store.ListActive(ctx, conversationID, viewerID, now.Add(-s.expiry))
	if err != nil {
		return nil, apperrors.NewTransientError("could not read typing indicators")
	}

	typing := make([]dto.TypingUserResponse, 0, len(statuses))
	for _, status := range statuses {
		if status.Expired(now, s.expiry) {
			continue
		}
		typing = append(typing, dto.ToTypingUserResponse(status))
	}

	return &dto.TypingListResponse{
		Typing:         typing,
		RotationMillis: s.rotation.Milliseconds(),
	}, nil
}

// Shutdown stops every pending timer. In-flight rows are left to expire
// by recency on the read side.
func (s *typingServiceImpl) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, session := range s.sessions {
		s.removeLocked(key, session)
	}
}
