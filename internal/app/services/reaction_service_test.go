package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlog/flexchat/internal/app/models"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
	"github.com/flexlog/flexchat/internal/pkg/changefeed"
)

func newTestReactionService(t *testing.T) (ReactionService, *fakeReactionStore, *fakeMessageStore) {
	t.Helper()
	reactions := newFakeReactionStore()
	messages := newFakeMessageStore()
	membership := newFakeMembershipStore()
	membership.addMember(1, 100)
	membership.addMember(1, 101)
	membership.addMember(1, 102)
	feed := changefeed.NewBroker(zerolog.Nop())
	svc := NewReactionService(reactions, messages, membership, feed, zerolog.Nop())

	body := "post-run stretch routine"
	_, err := messages.Insert(context.Background(), &models.Message{ConversationID: 1, AuthorID: 100, Body: &body})
	require.NoError(t, err)
	return svc, reactions, messages
}

func TestAddReaction_DuplicateIsNoop(t *testing.T) {
	svc, store, _ := newTestReactionService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddReaction(ctx, 1, 100, "💪"))
	require.NoError(t, svc.AddReaction(ctx, 1, 100, "💪"), "adding the same reaction twice is not an error")

	rows, err := store.ListByMessage(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAddReaction_MultipleEmojisPerUser(t *testing.T) {
	svc, store, _ := newTestReactionService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddReaction(ctx, 1, 100, "💪"))
	require.NoError(t, svc.AddReaction(ctx, 1, 100, "🔥"))

	rows, err := store.ListByMessage(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestAddReaction_NonMemberDenied(t *testing.T) {
	svc, _, _ := newTestReactionService(t)

	err := svc.AddReaction(context.Background(), 1, 999, "👍")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotConversationMember))
}

func TestAddReaction_MissingMessage(t *testing.T) {
	svc, _, _ := newTestReactionService(t)

	err := svc.AddReaction(context.Background(), 404, 100, "👍")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
}

func TestRemoveReaction_AbsentIsNoop(t *testing.T) {
	svc, _, _ := newTestReactionService(t)

	require.NoError(t, svc.RemoveReaction(context.Background(), 1, 100, "👍"))
}

func TestRemoveThenReAdd(t *testing.T) {
	svc, _, _ := newTestReactionService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddReaction(ctx, 1, 100, "🔥"))
	require.NoError(t, svc.RemoveReaction(ctx, 1, 100, "🔥"))
	require.NoError(t, svc.AddReaction(ctx, 1, 100, "🔥"))

	summaries, err := svc.ListForMessage(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Count)
}

func TestSummarizeReactions_CountDescFirstSeenTieBreak(t *testing.T) {
	reactions := []*models.Reaction{
		{MessageID: 1, UserID: 100, Emoji: "👍"},
		{MessageID: 1, UserID: 101, Emoji: "🔥"},
		{MessageID: 1, UserID: 102, Emoji: "🔥"},
		{MessageID: 1, UserID: 102, Emoji: "🎉"},
	}

	summaries := SummarizeReactions(reactions, 102)
	require.Len(t, summaries, 3)

	assert.Equal(t, "🔥", summaries[0].Emoji)
	assert.Equal(t, 2, summaries[0].Count)
	assert.True(t, summaries[0].ReactedByCurrentUser)
	assert.Equal(t, []int64{101, 102}, summaries[0].ReactorIDs)

	// 👍 and 🎉 tie at one; 👍 appeared first in the input.
	assert.Equal(t, "👍", summaries[1].Emoji)
	assert.False(t, summaries[1].ReactedByCurrentUser)
	assert.Equal(t, "🎉", summaries[2].Emoji)
	assert.True(t, summaries[2].ReactedByCurrentUser)
}

func TestSummarizeReactions_Empty(t *testing.T) {
	summaries := SummarizeReactions(nil, 100)
	assert.Empty(t, summaries)
}

func TestSummarizeForMessages_Batches(t *testing.T) {
	svc, _, messages := newTestReactionService(t)
	ctx := context.Background()

	body := "second message"
	secondID, err := messages.Insert(ctx, &models.Message{ConversationID: 1, AuthorID: 101, Body: &body})
	require.NoError(t, err)

	require.NoError(t, svc.AddReaction(ctx, 1, 100, "💪"))
	require.NoError(t, svc.AddReaction(ctx, secondID, 101, "🔥"))

	byMessage, err := svc.SummarizeForMessages(ctx, []int64{1, secondID}, 100)
	require.NoError(t, err)
	require.Len(t, byMessage, 2)
	assert.Equal(t, "💪", byMessage[1][0].Emoji)
	assert.Equal(t, "🔥", byMessage[secondID][0].Emoji)
}
