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

// PresenceService tracks per-user presence. A connected session heartbeats
// on an interval; status is never stored, it is derived from the elapsed
// time since last activity whenever presence is read.
type PresenceService interface {
	Connect(ctx context.Context, userID int64, activeConversationID *int64)
	Heartbeat(ctx context.Context, userID int64, activeConversationID *int64)
	Touch(ctx context.Context, userID int64)
	Disconnect(ctx context.Context, userID int64)
	FetchOnline(ctx context.Context, conversationID *int64) ([]dto.PresenceResponse, error)
	Shutdown()
}

// presenceSession is one user's heartbeat loop.
type presenceSession struct {
	userID       int64
	activeConvID *int64
	lastActivity time.Time
	cancel       chan struct{}
}

// presenceServiceImpl implements PresenceService
type presenceServiceImpl struct {
	store     PresenceStore
	feed      *changefeed.Broker
	logger    zerolog.Logger
	heartbeat time.Duration
	idle      time.Duration
	offline   time.Duration

	mu       sync.Mutex
	sessions map[int64]*presenceSession
	closed   bool
}

// NewPresenceService creates a new PresenceService
func NewPresenceService(
	store PresenceStore,
	feed *changefeed.Broker,
	logger zerolog.Logger,
	heartbeat, idle, offline time.Duration,
) PresenceService {
	return &presenceServiceImpl{
		store:     store,
		feed:      feed,
		logger:    logger,
		heartbeat: heartbeat,
		idle:      idle,
		offline:   offline,
		sessions:  make(map[int64]*presenceSession),
	}
}

// Connect starts a heartbeat loop for the user and writes the first row.
// A reconnect replaces the previous loop.
func (s *presenceServiceImpl) Connect(ctx context.Context, userID int64, activeConversationID *int64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if existing, ok := s.sessions[userID]; ok {
		close(existing.cancel)
	}
	session := &presenceSession{
		userID:       userID,
		activeConvID: activeConversationID,
		lastActivity: time.Now(),
		cancel:       make(chan struct{}),
	}
	s.sessions[userID] = session
	s.mu.Unlock()

	s.write(session, models.PresenceOnline)
	go s.run(session)
}

// run repeats the presence write on the heartbeat interval until disconnect.
func (s *presenceServiceImpl) run(session *presenceSession) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-session.cancel:
			return
		case <-ticker.C:
			s.mu.Lock()
			last := session.lastActivity
			s.mu.Unlock()
			s.write(session, models.ComputePresenceStatus(time.Now(), last, s.idle, s.offline))
		}
	}
}

// Heartbeat is the explicit client ping. It refreshes activity and the
// active conversation without restarting the loop.
func (s *presenceServiceImpl) Heartbeat(ctx context.Context, userID int64, activeConversationID *int64) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	if ok {
		session.lastActivity = time.Now()
		session.activeConvID = activeConversationID
	}
	s.mu.Unlock()

	if !ok {
		s.Connect(ctx, userID, activeConversationID)
		return
	}
	s.write(session, models.PresenceOnline)
}

// Touch refreshes last activity without a storage write. Interaction
// anywhere in the app counts; the next heartbeat carries it.
func (s *presenceServiceImpl) Touch(ctx context.Context, userID int64) {
	s.mu.Lock()
	if session, ok := s.sessions[userID]; ok {
		session.lastActivity = time.Now()
	}
	s.mu.Unlock()
}

// Disconnect stops the loop and force-writes OFFLINE so other clients see
// the departure immediately instead of waiting out the offline threshold.
func (s *presenceServiceImpl) Disconnect(ctx context.Context, userID int64) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	if ok {
		close(session.cancel)
		delete(s.sessions, userID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.write(session, models.PresenceOffline)
}

// write upserts the presence row and signals the feed. Presence writes are
// best-effort like typing; a failed one is covered by the next beat.
func (s *presenceServiceImpl) write(session *presenceSession, status models.PresenceStatus) {
	s.mu.Lock()
	presence := &models.Presence{
		UserID:               session.userID,
		Status:               status,
		ActiveConversationID: session.activeConvID,
		LastSeenAt:           session.lastActivity,
	}
	s.mu.Unlock()

	if err := s.store.Upsert(context.Background(), presence); err != nil {
		s.logger.Debug().Err(err).
			Int64("userID", session.userID).
			Msg("Dropped presence write")
		return
	}

	event := changefeed.Event{
		Table:  changefeed.TablePresence,
		Kind:   changefeed.EventUpdate,
		UserID: presence.UserID,
	}
	if presence.ActiveConversationID != nil {
		event.ConversationID = *presence.ActiveConversationID
	}
	s.feed.Publish(event)
}

// FetchOnline lists users currently online or idle, optionally scoped to
// one conversation. Status is recomputed from last activity at read time.
func (s *presenceServiceImpl) FetchOnline(ctx context.Context, conversationID *int64) ([]dto.PresenceResponse, error) {
	staleBefore := time.Now().Add(-s.offline)
	rows, err := s.store.ListOnline(ctx, conversationID, staleBefore)
	if err != nil {
		return nil, apperrors.NewTransientError("could not read presence")
	}

	now := time.Now()
	responses := make([]dto.PresenceResponse, 0, len(rows))
	for _, row := range rows {
		status := models.ComputePresenceStatus(now, row.LastSeenAt, s.idle, s.offline)
		if status == models.PresenceOffline {
			continue
		}
		row.Status = status
		responses = append(responses, dto.ToPresenceResponse(row))
	}
	return responses, nil
}

// Shutdown stops every heartbeat loop and marks the users offline.
func (s *presenceServiceImpl) Shutdown() {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*presenceSession, 0, len(s.sessions))
	for userID, session := range s.sessions {
		close(session.cancel)
		sessions = append(sessions, session)
		delete(s.sessions, userID)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		s.write(session, models.PresenceOffline)
	}
}
