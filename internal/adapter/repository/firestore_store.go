package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bunkmate/internal/domain/entity"
	"bunkmate/pkg/errors"
)

const (
	usersCollection          = "users"
	chatsCollection          = "chats"
	groupsCollection         = "groups"
	messagesCollection       = "messages"
	deliveryTokensCollection = "deliveryTokens"

	maxReadRetries = 3
)

func conversationCollection(kind entity.ConversationKind) string {
	if kind == entity.KindGroup {
		return groupsCollection
	}
	return chatsCollection
}

func messagesOf(client *firestore.Client, ref entity.ConversationRef) *firestore.CollectionRef {
	return client.Collection(conversationCollection(ref.Kind)).Doc(ref.ID).Collection(messagesCollection)
}

// storeError maps a Firestore failure onto the application error taxonomy.
// Errors that already carry an application code pass through untouched.
func storeError(resource, action string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	message := fmt.Sprintf("Failed to %s %s", action, strings.ToLower(resource))
	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(resource, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return errors.StoreUnavailable(message, err)
	case codes.PermissionDenied:
		return errors.Forbidden(message, err)
	default:
		return errors.Internal(message, err)
	}
}

// withReadRetry retries op with exponential backoff while it keeps failing
// with StoreUnavailable. Any other error stops the loop immediately.
func withReadRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !errors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxReadRetries), ctx))
}

func toInterfaces(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Ping issues a one-document read so health checks exercise the real connection.
func Ping(ctx context.Context, client *firestore.Client) error {
	iter := client.Collection(usersCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return storeError("Store", "ping", err)
	}
	return nil
}
