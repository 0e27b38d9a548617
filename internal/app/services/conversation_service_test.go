package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
	"github.com/flexlog/flexchat/internal/pkg/changefeed"
)

type composerFixture struct {
	conversations ConversationService
	messages      MessageService
	reactions     ReactionService
	typing        TypingService
	presence      PresenceService
	messageStore  *fakeMessageStore
	membership    *fakeMembershipStore
}

func newComposerFixture(t *testing.T) *composerFixture {
	t.Helper()
	messageStore := newFakeMessageStore()
	typingStore := newFakeTypingStore()
	presenceStore := newFakePresenceStore()
	reactionStore := newFakeReactionStore()
	membership := newFakeMembershipStore()
	membership.addMember(1, 100)
	membership.addMember(1, 101)

	feed := changefeed.NewBroker(zerolog.Nop())
	log := zerolog.Nop()

	messages := NewMessageService(messageStore, membership, feed, log, testRetention)
	reactions := NewReactionService(reactionStore, messageStore, membership, feed, log)
	typing := NewTypingService(typingStore, feed, log, testDebounce, testExpiry, testRotation)
	presence := NewPresenceService(presenceStore, feed, log, testHeartbeat, testIdle, testOffline)
	t.Cleanup(typing.Shutdown)
	t.Cleanup(presence.Shutdown)

	conversations := NewConversationService(messages, reactions, typing, presence, messageStore, membership, log)

	return &composerFixture{
		conversations: conversations,
		messages:      messages,
		reactions:     reactions,
		typing:        typing,
		presence:      presence,
		messageStore:  messageStore,
		membership:    membership,
	}
}

func TestComposeView_MergesStreams(t *testing.T) {
	f := newComposerFixture(t)
	ctx := context.Background()

	sent, err := f.messages.Send(ctx, 1, 100, &dto.SendMessageRequest{Body: strPtr("morning run done")})
	require.NoError(t, err)
	require.NoError(t, f.reactions.AddReaction(ctx, *sent.ServerID, 101, "💪"))

	conv := int64(1)
	f.presence.Connect(ctx, 101, &conv)

	view, err := f.conversations.ComposeView(ctx, 1, 100, nil, 0)
	require.NoError(t, err)

	require.Len(t, view.Messages, 1)
	assert.Equal(t, *sent.ServerID, view.Messages[0].ID)
	require.Len(t, view.Messages[0].Reactions, 1)
	assert.Equal(t, "💪", view.Messages[0].Reactions[0].Emoji)

	require.Len(t, view.Presence, 1)
	assert.Equal(t, int64(101), view.Presence[0].UserID)
	assert.Empty(t, view.Typing.Typing)
}

func TestComposeView_ReplyPreviewInline(t *testing.T) {
	f := newComposerFixture(t)
	ctx := context.Background()

	parent, err := f.messages.Send(ctx, 1, 100, &dto.SendMessageRequest{Body: strPtr("who's in for 6am?")})
	require.NoError(t, err)

	_, err = f.messages.Send(ctx, 1, 101, &dto.SendMessageRequest{
		Body:      strPtr("count me in"),
		ReplyToID: parent.ServerID,
	})
	require.NoError(t, err)

	view, err := f.conversations.ComposeView(ctx, 1, 100, nil, 0)
	require.NoError(t, err)
	require.Len(t, view.Messages, 2)

	var reply *dto.MessageResponse
	for i := range view.Messages {
		if view.Messages[i].ReplyPreview != nil {
			reply = &view.Messages[i]
		}
	}
	require.NotNil(t, reply)
	assert.True(t, reply.ReplyPreview.Available)
	assert.Equal(t, *parent.ServerID, reply.ReplyPreview.MessageID)
}

func TestComposeView_NonMemberDenied(t *testing.T) {
	f := newComposerFixture(t)

	_, err := f.conversations.ComposeView(context.Background(), 1, 999, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotConversationMember))
}

func TestComposeView_MembershipCheckFailureDenies(t *testing.T) {
	f := newComposerFixture(t)
	f.membership.err = errors.New("storage unreachable")

	_, err := f.conversations.ComposeView(context.Background(), 1, 100, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotConversationMember), "an unverifiable membership denies access, never degrades")
}

func TestListParticipants_Roster(t *testing.T) {
	f := newComposerFixture(t)
	f.membership.addAdmin(1, 101)

	participants, err := f.conversations.ListParticipants(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, int64(100), participants[0].UserID)
	assert.Equal(t, "MEMBER", participants[0].Role)
	assert.Equal(t, int64(101), participants[1].UserID)
	assert.Equal(t, "ADMIN", participants[1].Role)
}

func TestListParticipants_NonMemberDenied(t *testing.T) {
	f := newComposerFixture(t)

	_, err := f.conversations.ListParticipants(context.Background(), 1, 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotConversationMember))
}

func TestComposeView_PinnedIDsCollected(t *testing.T) {
	f := newComposerFixture(t)
	ctx := context.Background()

	sent, err := f.messages.Send(ctx, 1, 100, &dto.SendMessageRequest{Body: strPtr("route map")})
	require.NoError(t, err)
	require.NoError(t, f.messages.Pin(ctx, *sent.ServerID, 100))

	view, err := f.conversations.ComposeView(ctx, 1, 100, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{*sent.ServerID}, view.PinnedIDs)
}
