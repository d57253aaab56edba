package entity

import (
	"time"
)

// AccessLevel decides who may perform a gated group action.
type AccessLevel string

const (
	AccessAdmin AccessLevel = "admin"
	AccessAll   AccessLevel = "all"
)

func (a AccessLevel) Valid() bool {
	return a == AccessAdmin || a == AccessAll
}

// PermissionField names one of the three independent group permission flags.
type PermissionField string

const (
	PermissionEdit   PermissionField = "editAccess"
	PermissionInvite PermissionField = "inviteAccess"
	PermissionSend   PermissionField = "sendAccess"
)

func (f PermissionField) Valid() bool {
	return f == PermissionEdit || f == PermissionInvite || f == PermissionSend
}

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
	RoleNone   MemberRole = ""
)

type GroupConversation struct {
	ID          string `json:"id" firestore:"id"`
	Name        string `json:"name" firestore:"name"`
	Description string `json:"description" firestore:"description"`
	// Icon is either an emoji or an image URL.
	Icon      string   `json:"icon" firestore:"icon"`
	Members   []string `json:"members" firestore:"members"`
	CreatedBy string   `json:"created_by" firestore:"createdBy"`
	Admins    []string `json:"admins" firestore:"admins"`

	EditAccess   AccessLevel `json:"edit_access" firestore:"editAccess"`
	InviteAccess AccessLevel `json:"invite_access" firestore:"inviteAccess"`
	SendAccess   AccessLevel `json:"send_access" firestore:"sendAccess"`

	InviteToken string `json:"invite_token" firestore:"inviteToken"`
	// IsSystem marks protected groups members cannot leave.
	IsSystem bool `json:"is_system" firestore:"isSystem"`

	LastMessage   string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (g *GroupConversation) Ref() ConversationRef { return GroupRef(g.ID) }

func (g *GroupConversation) HasMember(userID string) bool {
	return containsID(g.Members, userID)
}

func (g *GroupConversation) MemberIDs() []string { return g.Members }

func (g *GroupConversation) IsCreator(userID string) bool {
	return userID != "" && g.CreatedBy == userID
}

// IsAdmin is true for explicit admins and for the creator, who is always admin-equivalent.
func (g *GroupConversation) IsAdmin(userID string) bool {
	return g.IsCreator(userID) || containsID(g.Admins, userID)
}

func (g *GroupConversation) Role(userID string) MemberRole {
	switch {
	case !g.HasMember(userID):
		return RoleNone
	case g.IsCreator(userID):
		return RoleOwner
	case containsID(g.Admins, userID):
		return RoleAdmin
	default:
		return RoleMember
	}
}

func (g *GroupConversation) allows(level AccessLevel, userID string) bool {
	return level == AccessAll || g.IsAdmin(userID)
}

// CanAddMembers: inviteAccess is all, or the requester is the creator or an admin.
func (g *GroupConversation) CanAddMembers(userID string) bool {
	return g.allows(g.InviteAccess, userID)
}

// CanEditGroupInfo: editAccess is all, or the requester is the creator or an admin.
func (g *GroupConversation) CanEditGroupInfo(userID string) bool {
	return g.allows(g.EditAccess, userID)
}

func (g *GroupConversation) CanSend(userID string) bool {
	return g.HasMember(userID) && g.allows(g.SendAccess, userID)
}

func (g *GroupConversation) CanManageMembers(userID string) bool {
	return g.HasMember(userID) && g.IsAdmin(userID)
}

// CanRemove applies the members-drawer rules: only the creator or an admin may
// remove, never the creator, never themselves, and only the creator removes admins.
func (g *GroupConversation) CanRemove(requesterID, targetID string) bool {
	if !g.CanManageMembers(requesterID) {
		return false
	}
	if g.IsCreator(targetID) || requesterID == targetID {
		return false
	}
	if containsID(g.Admins, targetID) && !g.IsCreator(requesterID) {
		return false
	}
	return true
}

func (g *GroupConversation) Access(field PermissionField) AccessLevel {
	switch field {
	case PermissionEdit:
		return g.EditAccess
	case PermissionInvite:
		return g.InviteAccess
	case PermissionSend:
		return g.SendAccess
	}
	return ""
}

func (g *GroupConversation) SetAccess(field PermissionField, level AccessLevel) {
	switch field {
	case PermissionEdit:
		g.EditAccess = level
	case PermissionInvite:
		g.InviteAccess = level
	case PermissionSend:
		g.SendAccess = level
	}
}

// WithoutMember returns members and admins after removing userID.
func (g *GroupConversation) WithoutMember(userID string) (members, admins []string) {
	return removeID(g.Members, userID), removeID(g.Admins, userID)
}

// GroupInfoUpdate carries the optional metadata fields of an updateInfo call.
type GroupInfoUpdate struct {
	Name        *string
	Description *string
	Icon        *string
}

func (u GroupInfoUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Icon == nil
}

// Diff keeps only the fields whose value differs from the group's current state.
func (g *GroupConversation) Diff(update GroupInfoUpdate) GroupInfoUpdate {
	var changes GroupInfoUpdate
	if update.Name != nil && *update.Name != g.Name {
		changes.Name = update.Name
	}
	if update.Description != nil && *update.Description != g.Description {
		changes.Description = update.Description
	}
	if update.Icon != nil && *update.Icon != g.Icon {
		changes.Icon = update.Icon
	}
	return changes
}

// InviteLink derives the shareable join URL for a group.
func InviteLink(origin, groupID string) string {
	return origin + "/group-invite/" + groupID
}
