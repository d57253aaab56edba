package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunkmate/internal/domain/entity"
	"bunkmate/pkg/errors"
)

type denyAll struct{}

func (denyAll) Allow(string, string) (bool, time.Duration) { return false, 3 * time.Second }

func TestConversationIDIsCommutative(t *testing.T) {
	env := newTestEnv(t)
	pairs := [][2]string{{"alice", "bob"}, {"zed", "amy"}, {"u1", "u1x"}}
	for _, p := range pairs {
		assert.Equal(t, env.direct.ConversationID(p[0], p[1]), env.direct.ConversationID(p[1], p[0]))
	}
	assert.Equal(t, "alice_bob", env.direct.ConversationID("bob", "alice"))
}

func TestScenarioSendReadReact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "hi"})
	require.NoError(t, err)
	assert.False(t, msg.IsRead)
	assert.Equal(t, "alice", msg.SenderID)

	chatID := env.direct.ConversationID("alice", "bob")
	viewer := NewConversationViewer(env.viewerDeps(), entity.DirectRef(chatID), "bob")
	messages, err := env.messages.List(ctx, entity.DirectRef(chatID))
	require.NoError(t, err)
	_, err = viewer.Observe(ctx, messages)
	require.NoError(t, err)

	stored, err := env.messages.GetByID(ctx, entity.DirectRef(chatID), msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)

	reacted, err := env.direct.React(ctx, chatID, msg.ID, "bob", "❤️")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"❤️": {"bob"}}, entity.GroupedReactions(reacted))
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	_, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "   "})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "alice", Text: "me"})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "ghost", Text: "boo"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = env.direct.Send(ctx, "", SendDirectMessageInput{RecipientID: "bob", Text: "hi"})
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	_, err = env.chats.GetByID(ctx, entity.ConversationID("alice", "bob"))
	assert.True(t, errors.Is(err, errors.CodeNotFound), "rejected sends create nothing")
}

func TestSendIsRateLimited(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.direct = NewDirectChatUseCase(env.chats, env.messages, env.users, denyAll{})

	_, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "hi"})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeTooManyRequests, appErr.Code)
	assert.Equal(t, 3*time.Second, appErr.RetryAfter)
}

func TestEditOnlyBySender(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	chatID := entity.ConversationID("alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "draft"})
	require.NoError(t, err)

	_, err = env.direct.Edit(ctx, chatID, msg.ID, "bob", "hijacked")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	unchanged, err := env.messages.GetByID(ctx, entity.DirectRef(chatID), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", unchanged.Text)
	assert.False(t, unchanged.Edited)

	_, err = env.direct.Edit(ctx, chatID, msg.ID, "alice", "  ")
	assert.True(t, errors.Is(err, errors.CodeValidation))

	edited, err := env.direct.Edit(ctx, chatID, msg.ID, "alice", "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Text)
	assert.True(t, edited.Edited)
	assert.True(t, edited.CreatedAt.After(msg.CreatedAt))
}

func TestDeleteOnlyBySender(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	chatID := entity.ConversationID("alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "oops"})
	require.NoError(t, err)

	assert.True(t, errors.Is(env.direct.Delete(ctx, chatID, msg.ID, "bob"), errors.CodeForbidden))
	require.NoError(t, env.direct.Delete(ctx, chatID, msg.ID, "alice"))

	_, err = env.messages.GetByID(ctx, entity.DirectRef(chatID), msg.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestReactReplacesEarlierReaction(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	chatID := entity.ConversationID("alice", "bob")

	msg, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "hi"})
	require.NoError(t, err)

	_, err = env.direct.React(ctx, chatID, msg.ID, "bob", "👍")
	require.NoError(t, err)
	_, err = env.direct.React(ctx, chatID, msg.ID, "alice", "👍")
	require.NoError(t, err)
	reacted, err := env.direct.React(ctx, chatID, msg.ID, "bob", "😂")
	require.NoError(t, err)

	bobs := 0
	for _, r := range reacted.Reactions {
		if r.UserID == "bob" {
			bobs++
			assert.Equal(t, "😂", r.Emoji)
		}
	}
	assert.Equal(t, 1, bobs)
	assert.Equal(t, map[string][]string{"👍": {"alice"}, "😂": {"bob"}}, entity.GroupedReactions(reacted))

	same, err := env.direct.Unreact(ctx, chatID, msg.ID, "bob", "👍")
	require.NoError(t, err)
	assert.Len(t, same.Reactions, 2, "removing a pair that is not there is a no-op")

	removed, err := env.direct.Unreact(ctx, chatID, msg.ID, "bob", "😂")
	require.NoError(t, err)
	assert.Equal(t, []entity.Reaction{{Emoji: "👍", UserID: "alice"}}, removed.Reactions)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	chatID := entity.ConversationID("alice", "bob")

	_, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "hi"})
	require.NoError(t, err)

	wrote, err := env.direct.MarkRead(ctx, chatID, "alice")
	require.NoError(t, err)
	assert.False(t, wrote, "senders do not mark their own messages")

	wrote, err = env.direct.MarkRead(ctx, chatID, "bob")
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = env.direct.MarkRead(ctx, chatID, "bob")
	require.NoError(t, err)
	assert.False(t, wrote)

	messages, err := env.direct.Messages(ctx, chatID, "bob")
	require.NoError(t, err)
	assert.True(t, messages[0].IsRead)

	_, err = env.direct.MarkRead(ctx, chatID, "mallory")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestReplySnapshotSurvivesDeletion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	chatID := entity.ConversationID("alice", "bob")

	original, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "original"})
	require.NoError(t, err)
	reply, err := env.direct.Send(ctx, "bob", SendDirectMessageInput{RecipientID: "alice", Text: "reply", ReplyToID: original.ID})
	require.NoError(t, err)

	_, err = env.direct.Edit(ctx, chatID, original.ID, "alice", "rewritten")
	require.NoError(t, err)
	require.NoError(t, env.direct.Delete(ctx, chatID, original.ID, "alice"))

	stored, err := env.messages.GetByID(ctx, entity.DirectRef(chatID), reply.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReplyTo)
	assert.Equal(t, "original", stored.ReplyTo.Text)
	assert.Equal(t, original.ID, stored.ReplyTo.MessageID)
	assert.Equal(t, "alice", stored.ReplyTo.SenderID)
}

func TestSetNicknamePostsSystemMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	chatID := entity.ConversationID("alice", "bob")

	msg, err := env.direct.SetNickname(ctx, "alice", "bob", " Bobby ")
	require.NoError(t, err)
	assert.True(t, msg.System)
	assert.Equal(t, entity.NotificationNickname, msg.NotificationType)
	assert.Equal(t, "alice", msg.ActorID)
	assert.Empty(t, msg.SenderID)
	assert.Equal(t, `alice set the nickname for bob to "Bobby".`, msg.Text)

	alice, err := env.users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Bobby", alice.Nicknames["bob"])

	messages, err := env.direct.Messages(ctx, chatID, "bob")
	require.NoError(t, err)
	require.Len(t, messages, 1)

	wrote, err := env.direct.MarkRead(ctx, chatID, "bob")
	require.NoError(t, err)
	assert.False(t, wrote, "system messages are never receipted")
}

func TestListChatsIncludesOtherUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob", "carol")

	_, err := env.direct.Send(ctx, "alice", SendDirectMessageInput{RecipientID: "bob", Text: "hi bob"})
	require.NoError(t, err)
	_, err = env.direct.Send(ctx, "carol", SendDirectMessageInput{RecipientID: "alice", Text: "hi alice"})
	require.NoError(t, err)

	chats, err := env.direct.ListChats(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "carol", chats[0].OtherUser.ID)
	assert.Equal(t, "hi alice", chats[0].LastMessage)
}
