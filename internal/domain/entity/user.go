package entity

import (
	"time"
)

type User struct {
	ID          string `json:"id" firestore:"id"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	Username    string `json:"username" firestore:"username"`
	Mobile      string `json:"mobile,omitempty" firestore:"mobile,omitempty"`
	Email       string `json:"email,omitempty" firestore:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`

	// Nicknames maps a friend's user id to the name this user calls them.
	Nicknames map[string]string `json:"nicknames,omitempty" firestore:"nicknames,omitempty"`
	Friends   []string          `json:"friends" firestore:"friends"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Name is the label used for this user in system messages.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}

// NameFor returns how viewer would see this user, preferring the viewer's nickname.
func (u *User) NameFor(viewer *User) string {
	if viewer != nil && u != nil {
		if nick := viewer.Nicknames[u.ID]; nick != "" {
			return nick
		}
	}
	return u.Name()
}

func (u *User) IsFriend(userID string) bool {
	return containsID(u.Friends, userID)
}

// Principal is the authenticated caller as reported by the identity provider.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}
