package notification

import (
	"context"
	"errors"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/infrastructure/metrics"
	"bunkmate/pkg/logger"
)

// ErrUnregistered is returned by a Transport when the token no longer addresses a device.
var ErrUnregistered = errors.New("delivery token is no longer registered")

// ForegroundNotifier shows a notification inside a session the user is actively looking at.
type ForegroundNotifier interface {
	IsFocused(userID string) bool
	ShowForeground(userID string, payload entity.Payload) error
}

// TokenResolver finds a user's delivery token. A nil token with a nil error
// means the user has not registered a device.
type TokenResolver interface {
	Resolve(ctx context.Context, userID string) (*entity.DeliveryToken, error)
	Invalidate(ctx context.Context, userID string) error
}

type Transport interface {
	Deliver(ctx context.Context, token *entity.DeliveryToken, payload entity.Payload) error
}

// Dispatcher routes an event to the foreground session when the user has one
// focused, and to the push transport for their token otherwise.
type Dispatcher struct {
	foreground ForegroundNotifier
	tokens     TokenResolver
	transports map[entity.TokenKind]Transport
	metrics    *metrics.Metrics
}

func NewDispatcher(foreground ForegroundNotifier, tokens TokenResolver, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		foreground: foreground,
		tokens:     tokens,
		transports: make(map[entity.TokenKind]Transport),
		metrics:    m,
	}
}

// Register installs the transport used for tokens of kind.
func (d *Dispatcher) Register(kind entity.TokenKind, transport Transport) {
	d.transports[kind] = transport
}

func (d *Dispatcher) Dispatch(ctx context.Context, event entity.NotificationEvent) error {
	userID := event.TargetUserID
	payload := event.Payload()

	if d.foreground != nil && d.foreground.IsFocused(userID) {
		err := d.foreground.ShowForeground(userID, payload)
		if err == nil {
			d.metrics.NotificationSent("foreground", "delivered")
			return nil
		}
		logger.Warn("Foreground notification to %s failed, falling back to push: %v", userID, err)
	}

	token, err := d.tokens.Resolve(ctx, userID)
	if err != nil {
		d.metrics.NotificationSent("push", "failed")
		return err
	}
	if token == nil {
		d.metrics.NotificationSent("push", "no_token")
		return nil
	}

	transport, ok := d.transports[token.Kind]
	if !ok {
		logger.Warn("No transport for %s token of user %s", token.Kind, userID)
		d.metrics.NotificationSent(string(token.Kind), "no_transport")
		return nil
	}

	err = transport.Deliver(ctx, token, payload)
	switch {
	case err == nil:
		d.metrics.NotificationSent(string(token.Kind), "delivered")
		return nil
	case errors.Is(err, ErrUnregistered):
		logger.Info("Dropping unregistered %s token of user %s", token.Kind, userID)
		d.metrics.NotificationSent(string(token.Kind), "unregistered")
		return d.tokens.Invalidate(ctx, userID)
	default:
		d.metrics.NotificationSent(string(token.Kind), "failed")
		return err
	}
}
