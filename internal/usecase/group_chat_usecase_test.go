package usecase

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunkmate/internal/domain/entity"
	"bunkmate/pkg/errors"
)

func createGroup(t *testing.T, env *testEnv, creator string, members ...string) *entity.GroupConversation {
	t.Helper()
	group, err := env.group.CreateGroup(context.Background(), creator, CreateGroupInput{
		Name:      "Trip",
		MemberIDs: members,
	})
	require.NoError(t, err)
	return group
}

func TestCreateGroupDefaults(t *testing.T) {
	env := newTestEnv(t, "carol", "erin")
	group := createGroup(t, env, "carol", "erin", "carol")

	assert.Equal(t, []string{"carol", "erin"}, group.Members)
	assert.Equal(t, entity.AccessAll, group.EditAccess)
	assert.Equal(t, entity.AccessAdmin, group.InviteAccess)
	assert.Equal(t, entity.AccessAll, group.SendAccess)
	assert.Equal(t, group.ID, group.InviteToken)
	assert.Equal(t, []string{"carol created the group."}, env.systemMessages(t, group.ID))

	_, err := env.group.CreateGroup(context.Background(), "carol", CreateGroupInput{Name: "  "})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = env.group.CreateGroup(context.Background(), "carol", CreateGroupInput{Name: "x", MemberIDs: []string{"ghost"}})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestScenarioInviteAccessGatesAddMembers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave", "erin")
	group := createGroup(t, env, "carol")

	_, err := env.group.AddMembers(ctx, group.ID, "dave", []string{"erin"})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	err = env.group.SetAdmin(ctx, group.ID, "dave", "dave", true)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	stored, err := env.groups.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, stored.Members)

	updated, err := env.group.AddMembers(ctx, group.ID, "carol", []string{"erin"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"carol", "erin"}, updated.Members)
	assert.Equal(t, []string{
		"carol created the group.",
		"carol added erin to the group.",
	}, env.systemMessages(t, group.ID))
}

func TestMemberCannotAddWhenInviteIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave", "erin")
	group := createGroup(t, env, "carol", "dave")

	_, err := env.group.AddMembers(ctx, group.ID, "dave", []string{"erin"})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	require.NoError(t, env.group.SetPermission(ctx, group.ID, "carol", entity.PermissionInvite, entity.AccessAll))
	_, err = env.group.AddMembers(ctx, group.ID, "dave", []string{"erin"})
	assert.NoError(t, err)
}

func TestAddMembersAnnouncesBatchOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "a", "b", "c", "d")
	group := createGroup(t, env, "a")

	_, err := env.group.AddMembers(ctx, group.ID, "a", []string{"b", "c", "d", "b"})
	require.NoError(t, err)
	_, err = env.group.AddMembers(ctx, group.ID, "a", []string{"c", "a"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a created the group.",
		"a added b, c and d to the group.",
	}, env.systemMessages(t, group.ID))

	_, err = env.group.AddMembers(ctx, group.ID, "a", []string{"ghost"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestScenarioRemoveThenCreatorExitDeletesGroup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "erin")
	group := createGroup(t, env, "carol", "erin")

	require.NoError(t, env.group.RemoveMember(ctx, group.ID, "carol", "erin"))
	stored, err := env.groups.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, stored.Members)
	assert.Contains(t, env.systemMessages(t, group.ID), "carol removed erin from the group.")

	result, err := env.group.ExitGroup(ctx, group.ID, "carol")
	require.NoError(t, err)
	assert.True(t, result.GroupDeleted)

	_, err = env.groups.GetByID(ctx, group.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	assert.Empty(t, env.systemMessages(t, group.ID), "the cascade purges the log and adds nothing")
}

func TestCascadeToleratesMessagePurgeFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol")
	group := createGroup(t, env, "carol")

	env.store.FailNext("Message.DeleteAll", errors.StoreUnavailable("down", nil))
	result, err := env.group.ExitGroup(ctx, group.ID, "carol")
	require.NoError(t, err)
	assert.True(t, result.GroupDeleted)

	_, err = env.groups.GetByID(ctx, group.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestCreatorStaysMemberThroughMembershipChanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave", "erin", "frank")
	group := createGroup(t, env, "carol", "dave")

	check := func() {
		stored, err := env.groups.GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.Contains(t, stored.Members, "carol")
		for _, admin := range stored.Admins {
			assert.Contains(t, stored.Members, admin)
		}
	}

	_, err := env.group.AddMembers(ctx, group.ID, "carol", []string{"erin", "frank"})
	require.NoError(t, err)
	check()
	require.NoError(t, env.group.SetAdmin(ctx, group.ID, "carol", "dave", true))
	check()

	err = env.group.RemoveMember(ctx, group.ID, "dave", "carol")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	check()

	_, err = env.group.ExitGroup(ctx, group.ID, "carol")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
	check()

	require.NoError(t, env.group.RemoveMember(ctx, group.ID, "dave", "erin"))
	check()
	_, err = env.group.ExitGroup(ctx, group.ID, "dave")
	require.NoError(t, err)
	check()
	_, err = env.group.ExitGroup(ctx, group.ID, "frank")
	require.NoError(t, err)
	check()

	result, err := env.group.ExitGroup(ctx, group.ID, "carol")
	require.NoError(t, err)
	assert.True(t, result.GroupDeleted)
}

func TestRemoveMemberRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave", "erin", "frank")
	group := createGroup(t, env, "carol", "dave", "erin", "frank")
	require.NoError(t, env.group.SetAdmin(ctx, group.ID, "carol", "dave", true))
	require.NoError(t, env.group.SetAdmin(ctx, group.ID, "carol", "erin", true))

	assert.True(t, errors.Is(env.group.RemoveMember(ctx, group.ID, "frank", "erin"), errors.CodeForbidden), "members cannot remove")
	assert.True(t, errors.Is(env.group.RemoveMember(ctx, group.ID, "dave", "erin"), errors.CodeForbidden), "admins cannot remove admins")
	assert.True(t, errors.Is(env.group.RemoveMember(ctx, group.ID, "dave", "dave"), errors.CodeForbidden), "no self removal")
	assert.True(t, errors.Is(env.group.RemoveMember(ctx, group.ID, "dave", "ghost"), errors.CodeNotFound))

	require.NoError(t, env.group.RemoveMember(ctx, group.ID, "dave", "frank"))
	require.NoError(t, env.group.RemoveMember(ctx, group.ID, "carol", "erin"))

	stored, err := env.groups.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"carol", "dave"}, stored.Members)
	assert.Equal(t, []string{"dave"}, stored.Admins)
}

func TestSetAdminTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave")
	group := createGroup(t, env, "carol", "dave")

	require.NoError(t, env.group.SetAdmin(ctx, group.ID, "carol", "dave", true))
	require.NoError(t, env.group.SetAdmin(ctx, group.ID, "carol", "dave", true))
	stored, err := env.groups.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, stored.Role("dave"))

	assert.True(t, errors.Is(env.group.SetAdmin(ctx, group.ID, "dave", "carol", false), errors.CodeBadRequest))

	require.NoError(t, env.group.SetAdmin(ctx, group.ID, "carol", "dave", false))
	stored, err = env.groups.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleMember, stored.Role("dave"))
	assert.Equal(t, entity.RoleOwner, stored.Role("carol"))

	assert.Equal(t, []string{
		"carol created the group.",
		"carol made dave an admin.",
		"carol removed dave as admin.",
	}, env.systemMessages(t, group.ID))
}

func TestUpdateInfoEmitsOneMessageOnlyForChanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave")
	group := createGroup(t, env, "carol", "dave")

	_, err := env.group.UpdateInfo(ctx, group.ID, "dave", entity.GroupInfoUpdate{
		Name:        strPtr("Bali"),
		Description: strPtr("Surf week"),
		Icon:        strPtr("🏄"),
	})
	require.NoError(t, err)

	_, err = env.group.UpdateInfo(ctx, group.ID, "dave", entity.GroupInfoUpdate{Name: strPtr("Bali")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"carol created the group.",
		`dave renamed the group to "Bali", updated the description, updated the group icon.`,
	}, env.systemMessages(t, group.ID))

	require.NoError(t, env.group.SetPermission(ctx, group.ID, "carol", entity.PermissionEdit, entity.AccessAdmin))
	_, err = env.group.UpdateInfo(ctx, group.ID, "dave", entity.GroupInfoUpdate{Name: strPtr("Lombok")})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = env.group.UpdateInfo(ctx, group.ID, "carol", entity.GroupInfoUpdate{})
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestSetPermissionIsSilentAndGated(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave")
	group := createGroup(t, env, "carol", "dave")
	before := env.systemMessages(t, group.ID)

	require.NoError(t, env.group.SetPermission(ctx, group.ID, "carol", entity.PermissionSend, entity.AccessAdmin))
	assert.Equal(t, before, env.systemMessages(t, group.ID))

	assert.True(t, errors.Is(env.group.SetPermission(ctx, group.ID, "dave", entity.PermissionSend, entity.AccessAll), errors.CodeForbidden))
	assert.True(t, errors.Is(env.group.SetPermission(ctx, group.ID, "carol", "colour", entity.AccessAll), errors.CodeValidation))

	_, err := env.group.Send(ctx, group.ID, "dave", "hello?", "")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	_, err = env.group.Send(ctx, group.ID, "carol", "admins only now", "")
	assert.NoError(t, err)
}

func TestJoinViaInvite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "gina")
	group := createGroup(t, env, "carol")

	assert.Equal(t, "https://bunkmate.app/group-invite/"+group.ID, env.group.InviteLink(group.ID))

	joined, err := env.group.JoinViaInvite(ctx, group.InviteToken, "gina")
	require.NoError(t, err)
	assert.Contains(t, joined.Members, "gina")

	_, err = env.group.JoinViaInvite(ctx, group.InviteToken, "gina")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"carol created the group.",
		"gina joined the group via invite link.",
	}, env.systemMessages(t, group.ID))

	_, err = env.group.JoinViaInvite(ctx, "missing", "gina")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSystemGroupCannotBeLeft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave")
	group, err := env.group.CreateGroup(ctx, "carol", CreateGroupInput{Name: "Everyone", MemberIDs: []string{"dave"}, IsSystem: true})
	require.NoError(t, err)

	_, err = env.group.ExitGroup(ctx, group.ID, "dave")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestConfiguredSystemGroupCannotBeLeft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave", "erin")
	protected := createGroup(t, env, "carol", "dave")
	other := createGroup(t, env, "carol", "erin")
	env.group.WithSystemGroups(protected.ID)

	_, err := env.group.ExitGroup(ctx, protected.ID, "dave")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = env.group.ExitGroup(ctx, other.ID, "erin")
	assert.NoError(t, err)
}

func TestGroupMessagesAreMembersOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol", "dave", "mallory")
	group := createGroup(t, env, "carol", "dave")

	msg, err := env.group.Send(ctx, group.ID, "dave", "hey", "")
	require.NoError(t, err)

	_, err = env.group.Send(ctx, group.ID, "mallory", "let me in", "")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	_, err = env.group.Messages(ctx, group.ID, "mallory")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = env.group.Edit(ctx, group.ID, msg.ID, "carol", "edited by carol")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	reacted, err := env.group.React(ctx, group.ID, msg.ID, "carol", "🔥")
	require.NoError(t, err)
	assert.Equal(t, []entity.ReactionGroup{{Emoji: "🔥", Count: 1, Users: []string{"carol"}}}, entity.ReactionGroups(reacted))

	require.NoError(t, env.group.Delete(ctx, group.ID, msg.ID, "dave"))

	detail, err := env.group.GetGroup(ctx, group.ID, "dave")
	require.NoError(t, err)
	assert.Equal(t, "hey", detail.LastMessage)
	assert.Equal(t, []GroupMember{
		{ID: "carol", Name: "carol", Role: entity.RoleOwner},
		{ID: "dave", Name: "dave", Role: entity.RoleMember},
	}, detail.MemberList)
}

type fakeIconStorage struct {
	uploaded []byte
}

func (f *fakeIconStorage) UploadGroupIcon(ctx context.Context, groupID string, file io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	f.uploaded = data
	return "https://storage.googleapis.com/icons/" + groupID + ".png", nil
}

func TestUploadIconUpdatesGroupInfo(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "carol")
	storage := &fakeIconStorage{}
	env.group = NewGroupChatUseCase(env.groups, env.messages, env.users, storage, AllowAll, "https://bunkmate.app")
	group := createGroup(t, env, "carol")

	_, err := env.group.UploadIcon(ctx, group.ID, "carol", bytes.NewReader([]byte("png")), "text/plain")
	assert.True(t, errors.Is(err, errors.CodeValidation))

	updated, err := env.group.UploadIcon(ctx, group.ID, "carol", bytes.NewReader([]byte("png")), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/icons/"+group.ID+".png", updated.Icon)
	assert.Equal(t, []byte("png"), storage.uploaded)
	assert.Contains(t, env.systemMessages(t, group.ID), "carol updated the group icon.")
}
