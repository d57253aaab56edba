package memory

import (
	"context"
	"sort"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
)

type directChatRepository struct {
	store *Store
}

func NewDirectChatRepository(store *Store) repository.DirectChatRepository {
	return &directChatRepository{store: store}
}

func (r *directChatRepository) Ensure(ctx context.Context, chat *entity.DirectConversation) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DirectChat.Ensure"); err != nil {
		return false, err
	}
	if _, ok := s.chats[chat.ID]; ok {
		return false, nil
	}
	now := s.stamp()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	s.chats[chat.ID] = copyChat(chat)
	return true, nil
}

func (r *directChatRepository) GetByID(ctx context.Context, id string) (*entity.DirectConversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DirectChat.GetByID"); err != nil {
		return nil, err
	}
	chat, ok := s.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return copyChat(chat), nil
}

func (r *directChatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.DirectConversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DirectChat.ListByUserID"); err != nil {
		return nil, err
	}
	chats := make([]*entity.DirectConversation, 0)
	for _, chat := range s.chats {
		if chat.HasMember(userID) {
			chats = append(chats, copyChat(chat))
		}
	}
	sort.SliceStable(chats, func(i, j int) bool {
		if chats[i].LastMessageAt.Equal(chats[j].LastMessageAt) {
			return chats[i].ID < chats[j].ID
		}
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats, nil
}

func (r *directChatRepository) TouchLastMessage(ctx context.Context, id string, message *entity.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DirectChat.TouchLastMessage"); err != nil {
		return err
	}
	chat, ok := s.chats[id]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	now := s.stamp()
	chat.LastMessage = message.Text
	chat.LastSenderID = message.SenderID
	chat.LastMessageAt = now
	chat.UpdatedAt = now
	return nil
}

type groupRepository struct {
	store *Store
}

func NewGroupRepository(store *Store) repository.GroupRepository {
	return &groupRepository{store: store}
}

// lookup must be called with mu held.
func (r *groupRepository) lookup(id string) (*entity.GroupConversation, error) {
	group, ok := r.store.groups[id]
	if !ok {
		return nil, errors.NotFound("Group", nil)
	}
	return group, nil
}

func (r *groupRepository) Create(ctx context.Context, group *entity.GroupConversation) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.Create"); err != nil {
		return err
	}
	if _, ok := s.groups[group.ID]; ok {
		return errors.Conflict("Group already exists")
	}
	now := s.stamp()
	group.CreatedAt = now
	group.UpdatedAt = now
	if group.Admins == nil {
		group.Admins = []string{}
	}
	s.groups[group.ID] = copyGroup(group)
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*entity.GroupConversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.GetByID"); err != nil {
		return nil, err
	}
	group, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return copyGroup(group), nil
}

func (r *groupRepository) ListByMember(ctx context.Context, userID string) ([]*entity.GroupConversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.ListByMember"); err != nil {
		return nil, err
	}
	groups := make([]*entity.GroupConversation, 0)
	for _, group := range s.groups {
		if group.HasMember(userID) {
			groups = append(groups, copyGroup(group))
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].LastMessageAt.Equal(groups[j].LastMessageAt) {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].LastMessageAt.After(groups[j].LastMessageAt)
	})
	return groups, nil
}

func (r *groupRepository) AddMembers(ctx context.Context, id string, userIDs []string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.AddMembers"); err != nil {
		return err
	}
	group, err := r.lookup(id)
	if err != nil {
		return err
	}
	group.Members, _ = entity.UnionIDs(group.Members, userIDs)
	group.UpdatedAt = s.stamp()
	return nil
}

func (r *groupRepository) RemoveMember(ctx context.Context, id, userID string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.RemoveMember"); err != nil {
		return false, err
	}
	group, ok := s.groups[id]
	if !ok || !group.HasMember(userID) {
		return false, nil
	}
	members, admins := group.WithoutMember(userID)
	if len(members) == 0 {
		delete(s.groups, id)
		return true, nil
	}
	group.Members = members
	group.Admins = admins
	group.UpdatedAt = s.stamp()
	return false, nil
}

func (r *groupRepository) SetAdmin(ctx context.Context, id, userID string, isAdmin bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.SetAdmin"); err != nil {
		return err
	}
	group, err := r.lookup(id)
	if err != nil {
		return err
	}
	if isAdmin {
		group.Admins, _ = entity.UnionIDs(group.Admins, []string{userID})
	} else {
		_, group.Admins = group.WithoutMember(userID)
	}
	group.UpdatedAt = s.stamp()
	return nil
}

func (r *groupRepository) UpdateInfo(ctx context.Context, id string, changes entity.GroupInfoUpdate) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.UpdateInfo"); err != nil {
		return err
	}
	group, err := r.lookup(id)
	if err != nil {
		return err
	}
	if changes.Name != nil {
		group.Name = *changes.Name
	}
	if changes.Description != nil {
		group.Description = *changes.Description
	}
	if changes.Icon != nil {
		group.Icon = *changes.Icon
	}
	group.UpdatedAt = s.stamp()
	return nil
}

func (r *groupRepository) SetPermission(ctx context.Context, id string, field entity.PermissionField, level entity.AccessLevel) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.SetPermission"); err != nil {
		return err
	}
	group, err := r.lookup(id)
	if err != nil {
		return err
	}
	group.SetAccess(field, level)
	group.UpdatedAt = s.stamp()
	return nil
}

func (r *groupRepository) TouchLastMessage(ctx context.Context, id string, message *entity.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.TouchLastMessage"); err != nil {
		return err
	}
	group, err := r.lookup(id)
	if err != nil {
		return err
	}
	group.LastMessage = message.Text
	group.LastMessageAt = s.stamp()
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Group.Delete"); err != nil {
		return err
	}
	delete(s.groups, id)
	return nil
}
