package entity

import (
	"sort"
	"strings"
	"time"
)

type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

func (k ConversationKind) Valid() bool {
	return k == KindDirect || k == KindGroup
}

// ConversationRef locates a conversation's message log in the store.
type ConversationRef struct {
	Kind ConversationKind `json:"kind"`
	ID   string           `json:"id"`
}

func DirectRef(id string) ConversationRef { return ConversationRef{Kind: KindDirect, ID: id} }

func GroupRef(id string) ConversationRef { return ConversationRef{Kind: KindGroup, ID: id} }

func (r ConversationRef) String() string {
	return string(r.Kind) + "/" + r.ID
}

// Conversation is the capability shared by direct and group conversations.
type Conversation interface {
	Ref() ConversationRef
	HasMember(userID string) bool
	MemberIDs() []string
}

// ConversationID is the deterministic id of the direct conversation between a and b.
// It is commutative, so both participants resolve the same conversation without a lookup.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

type DirectConversation struct {
	ID            string    `json:"id" firestore:"id"`
	Participants  []string  `json:"participants" firestore:"participants"`
	LastMessage   string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastSenderID  string    `json:"last_sender_id,omitempty" firestore:"lastSenderId,omitempty"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}

// NewDirectConversation builds the two-party conversation between a and b.
func NewDirectConversation(a, b string) *DirectConversation {
	pair := []string{a, b}
	sort.Strings(pair)
	return &DirectConversation{
		ID:           ConversationID(a, b),
		Participants: pair,
	}
}

func (c *DirectConversation) Ref() ConversationRef { return DirectRef(c.ID) }

func (c *DirectConversation) HasMember(userID string) bool {
	return containsID(c.Participants, userID)
}

func (c *DirectConversation) MemberIDs() []string { return c.Participants }

// Other returns the participant that is not userID.
func (c *DirectConversation) Other(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func containsID(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, s := range ids {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

// UnionIDs appends ids not already present, preserving order. It returns the
// merged slice and the ids that were actually new.
func UnionIDs(existing, ids []string) (merged, added []string) {
	merged = append([]string(nil), existing...)
	seen := make(map[string]bool, len(existing)+len(ids))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, id)
		added = append(added, id)
	}
	return merged, added
}
