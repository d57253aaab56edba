package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGroup() *GroupConversation {
	return &GroupConversation{
		ID:           "g1",
		Name:         "Lisbon 2026",
		Members:      []string{"carol", "dave", "erin"},
		CreatedBy:    "carol",
		Admins:       []string{"dave"},
		EditAccess:   AccessAll,
		InviteAccess: AccessAdmin,
		SendAccess:   AccessAll,
	}
}

func TestGroupRoles(t *testing.T) {
	g := testGroup()

	assert.Equal(t, RoleOwner, g.Role("carol"))
	assert.Equal(t, RoleAdmin, g.Role("dave"))
	assert.Equal(t, RoleMember, g.Role("erin"))
	assert.Equal(t, RoleNone, g.Role("frank"))
	assert.True(t, g.IsAdmin("carol"), "creator is admin-equivalent without being listed")
}

func TestGroupPermissionFormulas(t *testing.T) {
	g := testGroup()

	assert.True(t, g.CanAddMembers("carol"))
	assert.True(t, g.CanAddMembers("dave"))
	assert.False(t, g.CanAddMembers("erin"))

	g.InviteAccess = AccessAll
	assert.True(t, g.CanAddMembers("erin"))

	assert.True(t, g.CanEditGroupInfo("erin"))
	g.EditAccess = AccessAdmin
	assert.False(t, g.CanEditGroupInfo("erin"))

	assert.True(t, g.CanSend("erin"))
	g.SendAccess = AccessAdmin
	assert.False(t, g.CanSend("erin"))
	assert.True(t, g.CanSend("dave"))
	assert.False(t, g.CanSend("frank"))
}

func TestGroupCanRemove(t *testing.T) {
	g := testGroup()

	assert.True(t, g.CanRemove("carol", "erin"))
	assert.True(t, g.CanRemove("carol", "dave"), "creator may remove admins")
	assert.True(t, g.CanRemove("dave", "erin"))
	assert.False(t, g.CanRemove("dave", "carol"), "creator is never removable")
	assert.False(t, g.CanRemove("erin", "dave"))
	assert.False(t, g.CanRemove("dave", "dave"))

	g.Admins = append(g.Admins, "erin")
	assert.False(t, g.CanRemove("dave", "erin"), "admins cannot remove each other")
}

func TestGroupDiff(t *testing.T) {
	g := testGroup()
	same := "Lisbon 2026"
	desc := "Flights on the 3rd"

	changes := g.Diff(GroupInfoUpdate{Name: &same, Description: &desc})

	assert.Nil(t, changes.Name)
	assert.Equal(t, &desc, changes.Description)
	assert.False(t, changes.Empty())
	assert.True(t, g.Diff(GroupInfoUpdate{Name: &same}).Empty())
}

func TestPermissionFieldAccess(t *testing.T) {
	g := testGroup()
	g.SetAccess(PermissionSend, AccessAdmin)

	assert.Equal(t, AccessAdmin, g.Access(PermissionSend))
	assert.True(t, PermissionInvite.Valid())
	assert.False(t, PermissionField("deleteAccess").Valid())
}

func TestInviteLink(t *testing.T) {
	assert.Equal(t, "https://bunkmate.app/group-invite/g1", InviteLink("https://bunkmate.app", "g1"))
}
