package entity

type NotificationType string

const (
	EventNewMessage      NotificationType = "new_message"
	EventNicknameChanged NotificationType = "nickname_changed"
	EventNewReaction     NotificationType = "new_reaction"
)

// NotificationEvent is derived from a conversation snapshot for one viewer.
type NotificationEvent struct {
	Type         NotificationType `json:"type"`
	TargetUserID string           `json:"target_user_id"`
	Conversation ConversationRef  `json:"conversation"`
	MessageID    string           `json:"message_id"`
	ActorID      string           `json:"actor_id"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
}

// Payload is the title/body pair handed to a delivery transport.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func (e NotificationEvent) Payload() Payload {
	return Payload{
		Title: e.Title,
		Body:  e.Body,
		Data: map[string]string{
			"type":              string(e.Type),
			"conversation_kind": string(e.Conversation.Kind),
			"conversation_id":   e.Conversation.ID,
			"message_id":        e.MessageID,
		},
	}
}
