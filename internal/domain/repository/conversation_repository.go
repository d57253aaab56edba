package repository

import (
	"context"

	"bunkmate/internal/domain/entity"
)

type DirectChatRepository interface {
	// Ensure creates the conversation if it does not exist yet and reports whether it did.
	Ensure(ctx context.Context, chat *entity.DirectConversation) (bool, error)
	GetByID(ctx context.Context, id string) (*entity.DirectConversation, error)
	ListByUserID(ctx context.Context, userID string) ([]*entity.DirectConversation, error)
	TouchLastMessage(ctx context.Context, id string, message *entity.Message) error
}

type GroupRepository interface {
	Create(ctx context.Context, group *entity.GroupConversation) error
	GetByID(ctx context.Context, id string) (*entity.GroupConversation, error)
	ListByMember(ctx context.Context, userID string) ([]*entity.GroupConversation, error)

	// AddMembers is an array-union on the member set.
	AddMembers(ctx context.Context, id string, userIDs []string) error
	// RemoveMember removes userID from members and admins. When that leaves the
	// group empty the group document is deleted in the same atomic step and
	// deleted is true. Removing a non-member or from a missing group is a no-op.
	RemoveMember(ctx context.Context, id, userID string) (deleted bool, err error)
	SetAdmin(ctx context.Context, id, userID string, isAdmin bool) error
	UpdateInfo(ctx context.Context, id string, changes entity.GroupInfoUpdate) error
	SetPermission(ctx context.Context, id string, field entity.PermissionField, level entity.AccessLevel) error
	TouchLastMessage(ctx context.Context, id string, message *entity.Message) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
}
