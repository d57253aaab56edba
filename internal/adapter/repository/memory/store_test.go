package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"bunkmate/internal/domain/entity"
	"bunkmate/pkg/errors"
)

func TestWatchDeliversInitialAndLaterSnapshots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	store := NewStore()
	messages := NewMessageRepository(store)
	ref := entity.DirectRef(entity.ConversationID("alice", "bob"))

	require.NoError(t, messages.Create(ctx, ref, &entity.Message{SenderID: "alice", Text: "hi"}))

	stream, err := messages.Watch(ctx, ref)
	require.NoError(t, err)
	defer stream.Stop()

	first, err := stream.Next(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "hi", first[0].Text)

	require.NoError(t, messages.Create(ctx, ref, &entity.Message{SenderID: "bob", Text: "yo"}))

	second, err := stream.Next(ctx)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "yo", second[1].Text)
}

func TestStoppedStreamReturnsDone(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	stream, err := NewMessageRepository(store).Watch(ctx, entity.GroupRef("g1"))
	require.NoError(t, err)

	_, err = stream.Next(ctx)
	require.NoError(t, err)

	stream.Stop()
	stream.Stop()
	_, err = stream.Next(ctx)
	assert.Equal(t, iterator.Done, err)
}

func TestUpdateTextRefreshesTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	messages := NewMessageRepository(store)
	ref := entity.GroupRef("g1")

	first := &entity.Message{SenderID: "alice", Text: "one"}
	second := &entity.Message{SenderID: "bob", Text: "two"}
	require.NoError(t, messages.Create(ctx, ref, first))
	require.NoError(t, messages.Create(ctx, ref, second))

	require.NoError(t, messages.UpdateText(ctx, ref, first.ID, "one!"))

	list, err := messages.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "one!", list[1].Text)
	assert.True(t, list[1].Edited)
}

func TestRemoveLastMemberDeletesGroup(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	groups := NewGroupRepository(store)

	require.NoError(t, groups.Create(ctx, &entity.GroupConversation{
		ID: "g1", Members: []string{"alice", "bob"}, CreatedBy: "alice", Admins: []string{"bob"},
	}))

	deleted, err := groups.RemoveMember(ctx, "g1", "bob")
	require.NoError(t, err)
	assert.False(t, deleted)

	group, err := groups.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, group.Members)
	assert.Empty(t, group.Admins)

	deleted, err = groups.RemoveMember(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = groups.GetByID(ctx, "g1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	deleted, err = groups.RemoveMember(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFailNextIsConsumedOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	groups := NewGroupRepository(store)
	store.FailNext("Group.Delete", errors.StoreUnavailable("down", nil))

	assert.True(t, errors.IsRetryable(groups.Delete(ctx, "g1")))
	assert.NoError(t, groups.Delete(ctx, "g1"))
}
