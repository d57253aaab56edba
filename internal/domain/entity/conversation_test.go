package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDIsCommutative(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"u1", "u10"},
		{"Zed", "amy"},
		{"same", "same"},
	}
	for _, p := range pairs {
		assert.Equal(t, ConversationID(p[0], p[1]), ConversationID(p[1], p[0]))
	}
	assert.Equal(t, "alice_bob", ConversationID("bob", "alice"))
}

func TestNewDirectConversation(t *testing.T) {
	c := NewDirectConversation("bob", "alice")

	assert.Equal(t, "alice_bob", c.ID)
	assert.Equal(t, []string{"alice", "bob"}, c.Participants)
	assert.Equal(t, "bob", c.Other("alice"))
	assert.True(t, c.HasMember("bob"))
	assert.False(t, c.HasMember("carol"))
	assert.Equal(t, DirectRef("alice_bob"), c.Ref())
}

func TestUnionIDs(t *testing.T) {
	merged, added := UnionIDs([]string{"carol", "erin"}, []string{"erin", "frank", "frank", "", "gina"})

	assert.Equal(t, []string{"carol", "erin", "frank", "gina"}, merged)
	assert.Equal(t, []string{"frank", "gina"}, added)
}

func TestWithReactionKeepsOnePerUser(t *testing.T) {
	var reactions []Reaction
	reactions = WithReaction(reactions, "bob", "👍")
	reactions = WithReaction(reactions, "alice", "👍")
	reactions = WithReaction(reactions, "bob", "❤️")

	assert.Equal(t, []Reaction{
		{Emoji: "👍", UserID: "alice"},
		{Emoji: "❤️", UserID: "bob"},
	}, reactions)

	assert.Len(t, WithoutReaction(reactions, "bob", "👍"), 2, "removing a pair that is not present is a no-op")
	assert.Len(t, WithoutReaction(reactions, "bob", "❤️"), 1)
}

func TestGroupedReactions(t *testing.T) {
	m := &Message{Reactions: []Reaction{
		{Emoji: "❤️", UserID: "bob"},
		{Emoji: "😂", UserID: "carol"},
		{Emoji: "❤️", UserID: "alice"},
	}}

	assert.Equal(t, map[string][]string{
		"❤️": {"bob", "alice"},
		"😂":  {"carol"},
	}, GroupedReactions(m))

	groups := ReactionGroups(m)
	assert.Len(t, groups, 2)
	assert.Equal(t, "❤️", groups[0].Emoji)
	assert.Equal(t, 2, groups[0].Count)
	assert.Empty(t, GroupedReactions(nil))
}

func TestNewLiveSnapshotGroupsReactionsPerMessage(t *testing.T) {
	ref := GroupRef("g1")
	snapshot := NewLiveSnapshot(ref, []*Message{
		{ID: "m1", Text: "hi"},
		{ID: "m2", Text: "yo", Reactions: []Reaction{{Emoji: "👍", UserID: "bob"}}},
	})

	assert.Equal(t, ref, snapshot.Conversation)
	require.Len(t, snapshot.Messages, 2)
	assert.Equal(t, "m1", snapshot.Messages[0].ID)
	assert.Empty(t, snapshot.Messages[0].ReactionGroups)
	assert.Equal(t, []ReactionGroup{{Emoji: "👍", Count: 1, Users: []string{"bob"}}}, snapshot.Messages[1].ReactionGroups)
}

func TestSortMessagesTreatsPendingAsNewest(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []*Message{
		{ID: "pending"},
		{ID: "second", CreatedAt: base.Add(time.Minute)},
		{ID: "first", CreatedAt: base},
	}

	SortMessages(messages)

	assert.Equal(t, "first", messages[0].ID)
	assert.Equal(t, "second", messages[1].ID)
	assert.Equal(t, "pending", Newest(messages).ID)
	assert.Nil(t, Newest(nil))
}

func TestReplySnapshotIsACopy(t *testing.T) {
	original := &Message{ID: "m1", Text: "original", SenderID: "alice"}
	snap := original.Snapshot()

	original.Text = "edited"

	assert.Equal(t, "original", snap.Text)
}
