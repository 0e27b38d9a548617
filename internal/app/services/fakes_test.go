package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/flexlog/flexchat/internal/app/models"
)

var errRowNotFound = errors.New("row not found")

// In-memory store fakes. Each records its rows under a mutex so tests can
// assert on writes from timer goroutines, and exposes fail switches to
// exercise the degraded paths.

type fakeMessageStore struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[int64]*models.Message
	insertErr  error
	insertSeen int
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{nextID: 1, rows: make(map[int64]*models.Message)}
}

func (f *fakeMessageStore) Insert(ctx context.Context, message *models.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertSeen++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	id := f.nextID
	f.nextID++
	stored := *message
	stored.ID = id
	stored.CreatedAt = time.Now()
	f.rows[id] = &stored
	message.ID = id
	message.CreatedAt = stored.CreatedAt
	return id, nil
}

func (f *fakeMessageStore) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, errRowNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeMessageStore) ListByConversation(ctx context.Context, conversationID int64, before *time.Time, limit int) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Message, 0)
	for _, row := range f.rows {
		if row.ConversationID == conversationID && !row.Hidden {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) ListPinned(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Message, 0)
	for _, row := range f.rows {
		if row.ConversationID == conversationID && row.Pinned && !row.Hidden {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) SetPinned(ctx context.Context, id int64, pinned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[id]; ok {
		row.Pinned = pinned
	}
	return nil
}

func (f *fakeMessageStore) MarkRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[id]; ok {
		row.Read = true
	}
	return nil
}

type typingWrite struct {
	userID         int64
	conversationID int64
	deleted        bool
}

type fakeTypingStore struct {
	mu     sync.Mutex
	writes []typingWrite
	active map[typingKey]*models.TypingStatus

	// upsertGate, when set, stalls Upsert until the channel is closed.
	upsertGate chan struct{}
}

func newFakeTypingStore() *fakeTypingStore {
	return &fakeTypingStore{active: make(map[typingKey]*models.TypingStatus)}
}

func (f *fakeTypingStore) Upsert(ctx context.Context, status *models.TypingStatus) error {
	f.mu.Lock()
	gate := f.upsertGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, typingWrite{userID: status.UserID, conversationID: status.ConversationID})
	key := typingKey{conversationID: status.ConversationID, userID: status.UserID}
	now := time.Now()
	if existing, ok := f.active[key]; ok {
		existing.UpdatedAt = now
		return nil
	}
	f.active[key] = &models.TypingStatus{
		UserID:         status.UserID,
		ConversationID: status.ConversationID,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (f *fakeTypingStore) Delete(ctx context.Context, userID, conversationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, typingWrite{userID: userID, conversationID: conversationID, deleted: true})
	delete(f.active, typingKey{conversationID: conversationID, userID: userID})
	return nil
}

func (f *fakeTypingStore) ListActive(ctx context.Context, conversationID, excludeUserID int64, since time.Time) ([]*models.TypingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.TypingStatus, 0)
	for key, status := range f.active {
		if key.conversationID != conversationID || key.userID == excludeUserID {
			continue
		}
		if status.UpdatedAt.Before(since) {
			continue
		}
		copied := *status
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeTypingStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeTypingStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.writes {
		if !w.deleted {
			n++
		}
	}
	return n
}

func (f *fakeTypingStore) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.writes {
		if w.deleted {
			n++
		}
	}
	return n
}

type fakePresenceStore struct {
	mu      sync.Mutex
	rows    map[int64]*models.Presence
	upserts int
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{rows: make(map[int64]*models.Presence)}
}

func (f *fakePresenceStore) Upsert(ctx context.Context, presence *models.Presence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	copied := *presence
	f.rows[presence.UserID] = &copied
	return nil
}

func (f *fakePresenceStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakePresenceStore) ListOnline(ctx context.Context, conversationID *int64, staleBefore time.Time) ([]*models.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Presence, 0)
	for _, row := range f.rows {
		if row.Status == models.PresenceOffline || row.LastSeenAt.Before(staleBefore) {
			continue
		}
		if conversationID != nil {
			if row.ActiveConversationID == nil || *row.ActiveConversationID != *conversationID {
				continue
			}
		}
		copied := *row
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakePresenceStore) statusOf(userID int64) (models.PresenceStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return "", false
	}
	return row.Status, true
}

type reactionRow struct {
	messageID int64
	userID    int64
	emoji     string
}

type fakeReactionStore struct {
	mu   sync.Mutex
	rows []reactionRow
}

func newFakeReactionStore() *fakeReactionStore {
	return &fakeReactionStore{}
}

func (f *fakeReactionStore) Insert(ctx context.Context, reaction *models.Reaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.messageID == reaction.MessageID && row.userID == reaction.UserID && row.emoji == reaction.Emoji {
			return false, nil
		}
	}
	f.rows = append(f.rows, reactionRow{messageID: reaction.MessageID, userID: reaction.UserID, emoji: reaction.Emoji})
	return true, nil
}

func (f *fakeReactionStore) Delete(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range f.rows {
		if row.messageID == messageID && row.userID == userID && row.emoji == emoji {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReactionStore) ListByMessage(ctx context.Context, messageID int64) ([]*models.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Reaction, 0)
	for _, row := range f.rows {
		if row.messageID == messageID {
			out = append(out, &models.Reaction{MessageID: row.messageID, UserID: row.userID, Emoji: row.emoji})
		}
	}
	return out, nil
}

func (f *fakeReactionStore) ListByMessages(ctx context.Context, messageIDs []int64) (map[int64][]*models.Reaction, error) {
	out := make(map[int64][]*models.Reaction)
	for _, id := range messageIDs {
		reactions, _ := f.ListByMessage(ctx, id)
		if len(reactions) > 0 {
			out[id] = reactions
		}
	}
	return out, nil
}

type fakeMembershipStore struct {
	members map[int64]map[int64]bool
	admins  map[int64]map[int64]bool
	err     error
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{
		members: make(map[int64]map[int64]bool),
		admins:  make(map[int64]map[int64]bool),
	}
}

func (f *fakeMembershipStore) addMember(conversationID, userID int64) {
	if f.members[conversationID] == nil {
		f.members[conversationID] = make(map[int64]bool)
	}
	f.members[conversationID][userID] = true
}

func (f *fakeMembershipStore) addAdmin(conversationID, userID int64) {
	f.addMember(conversationID, userID)
	if f.admins[conversationID] == nil {
		f.admins[conversationID] = make(map[int64]bool)
	}
	f.admins[conversationID][userID] = true
}

func (f *fakeMembershipStore) IsMember(ctx context.Context, conversationID, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[conversationID][userID], nil
}

func (f *fakeMembershipStore) IsAdmin(ctx context.Context, conversationID, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.admins[conversationID][userID], nil
}

func (f *fakeMembershipStore) ListByConversation(ctx context.Context, conversationID int64) ([]*models.ConversationParticipant, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.ConversationParticipant, 0)
	for userID := range f.members[conversationID] {
		role := models.RoleMember
		if f.admins[conversationID][userID] {
			role = models.RoleAdmin
		}
		out = append(out, &models.ConversationParticipant{
			ConversationID: conversationID,
			UserID:         userID,
			Role:           role,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
