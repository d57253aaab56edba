package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"bunkmate/internal/domain/entity"
)

// WebPushTransport delivers to browser push subscriptions signed with a VAPID key pair.
type WebPushTransport struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
	httpClient webpush.HTTPClient
}

func NewWebPushTransport(subscriber, publicKey, privateKey string) *WebPushTransport {
	return &WebPushTransport{
		subscriber: subscriber,
		publicKey:  publicKey,
		privateKey: privateKey,
		ttl:        60 * 60,
		httpClient: http.DefaultClient,
	}
}

func (t *WebPushTransport) Deliver(ctx context.Context, token *entity.DeliveryToken, payload entity.Payload) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(token.Value), &sub); err != nil {
		return fmt.Errorf("%w: malformed subscription: %v", ErrUnregistered, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &sub, &webpush.Options{
		HTTPClient:      t.httpClient,
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             t.ttl,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: push service answered %d", ErrUnregistered, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service answered %d", resp.StatusCode)
	}
	return nil
}
