package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/infrastructure/notification"
)

// FCMTransport delivers payloads through Firebase Cloud Messaging.
type FCMTransport struct {
	client *messaging.Client
}

func NewFCMTransport(client *messaging.Client) *FCMTransport {
	return &FCMTransport{client: client}
}

func (t *FCMTransport) Deliver(ctx context.Context, token *entity.DeliveryToken, payload entity.Payload) error {
	_, err := t.client.Send(ctx, &messaging.Message{
		Token: token.Value,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Tag:   payload.Data["conversation_id"],
			},
		},
	})
	if err == nil {
		return nil
	}
	if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
		return fmt.Errorf("%w: %v", notification.ErrUnregistered, err)
	}
	return err
}
