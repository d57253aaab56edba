package entity

import (
	"sort"
	"time"
)

// Tags carried by system messages.
const (
	NotificationNickname   = "nickname"
	NotificationMembership = "membership"
	NotificationSettings   = "settings"
)

type Reaction struct {
	Emoji  string `json:"emoji" firestore:"emoji"`
	UserID string `json:"user_id" firestore:"userId"`
}

// ReplySnapshot is a frozen copy of the replied-to message taken at send time.
// Later edits or deletion of the original do not touch it.
type ReplySnapshot struct {
	MessageID string `json:"message_id" firestore:"messageId"`
	Text      string `json:"text" firestore:"text"`
	SenderID  string `json:"sender_id" firestore:"senderId"`
}

type Message struct {
	ID             string `json:"id" firestore:"id"`
	ConversationID string `json:"conversation_id" firestore:"conversationId"`
	// SenderID is empty for system messages.
	SenderID string `json:"sender_id,omitempty" firestore:"senderId"`
	// ActorID is the user whose action produced a system message.
	ActorID string `json:"actor_id,omitempty" firestore:"actorId,omitempty"`
	Text    string `json:"text" firestore:"text"`
	// CreatedAt is assigned by the store; zero means the write is still pending.
	CreatedAt time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`

	IsRead           bool           `json:"is_read" firestore:"isRead"`
	Edited           bool           `json:"edited" firestore:"edited"`
	ReplyTo          *ReplySnapshot `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	Reactions        []Reaction     `json:"reactions" firestore:"reactions"`
	System           bool           `json:"system" firestore:"system"`
	NotificationType string         `json:"notification_type,omitempty" firestore:"notificationType,omitempty"`
}

// Snapshot freezes the fields a reply needs.
func (m *Message) Snapshot() *ReplySnapshot {
	return &ReplySnapshot{
		MessageID: m.ID,
		Text:      m.Text,
		SenderID:  m.SenderID,
	}
}

// Author is the user a message is attributed to: the sender, or the actor for system messages.
func (m *Message) Author() string {
	if m.System {
		return m.ActorID
	}
	return m.SenderID
}

// WithReaction returns the reaction list after userID reacts with emoji.
// Any earlier reaction by the same user is dropped regardless of emoji.
func WithReaction(reactions []Reaction, userID, emoji string) []Reaction {
	out := WithoutUserReactions(reactions, userID)
	return append(out, Reaction{Emoji: emoji, UserID: userID})
}

// WithoutReaction removes the exact (emoji, user) pair.
func WithoutReaction(reactions []Reaction, userID, emoji string) []Reaction {
	out := make([]Reaction, 0, len(reactions))
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			continue
		}
		out = append(out, r)
	}
	return out
}

func WithoutUserReactions(reactions []Reaction, userID string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	for _, r := range reactions {
		if r.UserID != userID {
			out = append(out, r)
		}
	}
	return out
}

// ReactionGroup is the display form of all reactions with one emoji.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// GroupedReactions maps emoji to reacting user ids in insertion order.
func GroupedReactions(m *Message) map[string][]string {
	grouped := make(map[string][]string)
	if m == nil {
		return grouped
	}
	for _, r := range m.Reactions {
		grouped[r.Emoji] = append(grouped[r.Emoji], r.UserID)
	}
	return grouped
}

// ReactionGroups is GroupedReactions ordered by first appearance, for JSON responses.
func ReactionGroups(m *Message) []ReactionGroup {
	groups := make([]ReactionGroup, 0)
	if m == nil {
		return groups
	}
	index := make(map[string]int)
	for _, r := range m.Reactions {
		i, ok := index[r.Emoji]
		if !ok {
			index[r.Emoji] = len(groups)
			groups = append(groups, ReactionGroup{Emoji: r.Emoji})
			i = len(groups) - 1
		}
		groups[i].Users = append(groups[i].Users, r.UserID)
		groups[i].Count++
	}
	return groups
}

// SortMessages orders by ascending creation time. Pending messages (zero time)
// are treated as newest; ties keep their relative order.
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i].CreatedAt, messages[j].CreatedAt
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.Before(b)
		}
	})
}

// Newest returns the last message of an ordered log.
func Newest(messages []*Message) *Message {
	if len(messages) == 0 {
		return nil
	}
	return messages[len(messages)-1]
}

// LiveMessage is a message as pushed to a joined socket, with its reactions grouped.
type LiveMessage struct {
	*Message
	ReactionGroups []ReactionGroup `json:"reaction_groups"`
}

// LiveSnapshot is the full ordered message log of one conversation.
type LiveSnapshot struct {
	Conversation ConversationRef `json:"conversation"`
	Messages     []LiveMessage   `json:"messages"`
}

// NewLiveSnapshot wraps an already ordered log.
func NewLiveSnapshot(ref ConversationRef, messages []*Message) LiveSnapshot {
	live := make([]LiveMessage, 0, len(messages))
	for _, m := range messages {
		live = append(live, LiveMessage{Message: m, ReactionGroups: ReactionGroups(m)})
	}
	return LiveSnapshot{Conversation: ref, Messages: live}
}
