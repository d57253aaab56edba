package usecase

import (
	"fmt"
	"strings"

	"bunkmate/internal/domain/entity"
)

// joinNames renders "a", "a and b", "a, b and c".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func createdGroupText(actor string) string {
	return fmt.Sprintf("%s created the group.", actor)
}

func addedMembersText(actor string, added []string) string {
	return fmt.Sprintf("%s added %s to the group.", actor, joinNames(added))
}

func removedMemberText(actor, target string) string {
	return fmt.Sprintf("%s removed %s from the group.", actor, target)
}

func leftGroupText(user string) string {
	return fmt.Sprintf("%s left the group.", user)
}

func joinedViaInviteText(user string) string {
	return fmt.Sprintf("%s joined the group via invite link.", user)
}

func adminChangedText(actor, target string, isAdmin bool) string {
	if isAdmin {
		return fmt.Sprintf("%s made %s an admin.", actor, target)
	}
	return fmt.Sprintf("%s removed %s as admin.", actor, target)
}

// groupInfoText describes every changed field in one sentence.
func groupInfoText(actor string, changes entity.GroupInfoUpdate) string {
	var parts []string
	if changes.Name != nil {
		parts = append(parts, fmt.Sprintf("renamed the group to %q", *changes.Name))
	}
	if changes.Description != nil {
		parts = append(parts, "updated the description")
	}
	if changes.Icon != nil {
		parts = append(parts, "updated the group icon")
	}
	return fmt.Sprintf("%s %s.", actor, strings.Join(parts, ", "))
}

func nicknameText(actor, target, nickname string) string {
	if nickname == "" {
		return fmt.Sprintf("%s cleared the nickname for %s.", actor, target)
	}
	return fmt.Sprintf("%s set the nickname for %s to %q.", actor, target, nickname)
}

// namesOf maps ids to display names, falling back to the id for unknown users.
func namesOf(users map[string]*entity.User, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, nameOf(users, id))
	}
	return names
}

func nameOf(users map[string]*entity.User, id string) string {
	if u, ok := users[id]; ok {
		return u.Name()
	}
	return id
}
