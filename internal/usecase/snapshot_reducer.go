package usecase

import (
	"fmt"
	"unicode/utf8"

	"bunkmate/internal/domain/entity"
)

// Snapshot is one full delivery of a conversation's ordered message log,
// plus the display names the reducer needs to word notifications.
type Snapshot struct {
	Conversation entity.ConversationRef
	// Title is the group name; empty for direct conversations.
	Title    string
	Messages []*entity.Message
	Names    map[string]string
}

// ViewState is what one viewer remembers between snapshots.
type ViewState struct {
	ViewerID     string
	Conversation entity.ConversationRef
	Initialized  bool
	NewestID     string
	Seen         map[string]bool
	// Reactions holds, per message id, the reaction keys already observed.
	Reactions map[string]map[string]bool
	// ReadRequested is the message a MarkReadEffect was last emitted for and
	// not reported failed. The effect is not repeated for it.
	ReadRequested string
}

func NewViewState(viewerID string, ref entity.ConversationRef) ViewState {
	return ViewState{
		ViewerID:     viewerID,
		Conversation: ref,
		Seen:         map[string]bool{},
		Reactions:    map[string]map[string]bool{},
	}
}

// ReadFailed forgets a mark-read request the store rejected, so the next
// snapshot that still shows the message unread asks again.
func (s ViewState) ReadFailed(messageID string) ViewState {
	if s.ReadRequested == messageID {
		s.ReadRequested = ""
	}
	return s
}

// Effect is a side effect requested by the reducer.
type Effect interface {
	isEffect()
}

type MarkReadEffect struct {
	Conversation entity.ConversationRef
	MessageID    string
}

type NotifyEffect struct {
	Event entity.NotificationEvent
}

func (MarkReadEffect) isEffect() {}
func (NotifyEffect) isEffect()   {}

// needsReadReceipt: direct messages only flip to read when someone other than
// the sender observes them, and system messages are never receipted.
func needsReadReceipt(m *entity.Message, viewerID string) bool {
	return m != nil && !m.System && !m.IsRead && m.SenderID != "" && m.SenderID != viewerID
}

func reactionKey(r entity.Reaction) string {
	return r.UserID + "\x00" + r.Emoji
}

// ReduceSnapshot derives the next view state and the side effects of observing
// snap. It does not mutate prev and has no side effects of its own. The first
// snapshot only establishes a baseline: history never raises notifications.
func ReduceSnapshot(prev ViewState, snap Snapshot) (ViewState, []Effect) {
	messages := append([]*entity.Message(nil), snap.Messages...)
	entity.SortMessages(messages)

	next := ViewState{
		ViewerID:      prev.ViewerID,
		Conversation:  snap.Conversation,
		Initialized:   true,
		Seen:          make(map[string]bool, len(messages)),
		Reactions:     make(map[string]map[string]bool, len(messages)),
		ReadRequested: prev.ReadRequested,
	}
	for _, m := range messages {
		next.Seen[m.ID] = true
		keys := make(map[string]bool, len(m.Reactions))
		for _, r := range m.Reactions {
			keys[reactionKey(r)] = true
		}
		next.Reactions[m.ID] = keys
	}

	var effects []Effect
	newest := entity.Newest(messages)
	if newest == nil {
		return next, effects
	}
	next.NewestID = newest.ID
	viewer := prev.ViewerID

	if snap.Conversation.Kind == entity.KindDirect && needsReadReceipt(newest, viewer) && prev.ReadRequested != newest.ID {
		next.ReadRequested = newest.ID
		effects = append(effects, MarkReadEffect{Conversation: snap.Conversation, MessageID: newest.ID})
	}

	if !prev.Initialized {
		return next, effects
	}

	if !prev.Seen[newest.ID] {
		if event, ok := messageEvent(viewer, snap, newest); ok {
			effects = append(effects, NotifyEffect{Event: event})
		}
	}

	before := prev.Reactions[newest.ID]
	for _, r := range newest.Reactions {
		if r.UserID == viewer || before[reactionKey(r)] {
			continue
		}
		effects = append(effects, NotifyEffect{Event: reactionEvent(viewer, snap, newest, r)})
	}
	return next, effects
}

func messageEvent(viewer string, snap Snapshot, m *entity.Message) (entity.NotificationEvent, bool) {
	author := m.Author()
	if author == "" || author == viewer {
		return entity.NotificationEvent{}, false
	}
	event := entity.NotificationEvent{
		TargetUserID: viewer,
		Conversation: snap.Conversation,
		MessageID:    m.ID,
		ActorID:      author,
	}
	name := displayName(snap.Names, author)

	switch {
	case !m.System:
		event.Type = entity.EventNewMessage
		if snap.Conversation.Kind == entity.KindGroup {
			event.Title = snap.Title
			event.Body = fmt.Sprintf("%s: %s", name, preview(m.Text))
		} else {
			event.Title = name
			event.Body = preview(m.Text)
		}
	case m.NotificationType == entity.NotificationNickname && snap.Conversation.Kind == entity.KindDirect:
		event.Type = entity.EventNicknameChanged
		event.Title = name
		event.Body = m.Text
	default:
		return entity.NotificationEvent{}, false
	}
	return event, true
}

func reactionEvent(viewer string, snap Snapshot, m *entity.Message, r entity.Reaction) entity.NotificationEvent {
	name := displayName(snap.Names, r.UserID)
	title := name
	if snap.Conversation.Kind == entity.KindGroup && snap.Title != "" {
		title = snap.Title
	}
	return entity.NotificationEvent{
		Type:         entity.EventNewReaction,
		TargetUserID: viewer,
		Conversation: snap.Conversation,
		MessageID:    m.ID,
		ActorID:      r.UserID,
		Title:        title,
		Body:         fmt.Sprintf("%s reacted %s to %q", name, r.Emoji, preview(m.Text)),
	}
}

func displayName(names map[string]string, id string) string {
	if name := names[id]; name != "" {
		return name
	}
	return id
}

const previewRunes = 80

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes-1]) + "…"
}
