package entity

import "time"

type TokenKind string

const (
	TokenFCM     TokenKind = "fcm"
	TokenWebPush TokenKind = "webpush"
)

// DeliveryToken addresses one user's push endpoint. For web push the value is
// the JSON-encoded browser subscription.
type DeliveryToken struct {
	UserID    string    `json:"user_id" firestore:"userId"`
	Kind      TokenKind `json:"kind" firestore:"kind"`
	Value     string    `json:"value" firestore:"value"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
