package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
)

type firestoreGroupRepository struct {
	client *firestore.Client
}

func NewFirestoreGroupRepository(client *firestore.Client) repository.GroupRepository {
	return &firestoreGroupRepository{
		client: client,
	}
}

func (r *firestoreGroupRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(groupsCollection).Doc(id)
}

func (r *firestoreGroupRepository) Create(ctx context.Context, group *entity.GroupConversation) error {
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now
	if group.Admins == nil {
		group.Admins = []string{}
	}

	if _, err := r.doc(group.ID).Create(ctx, group); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Group already exists")
		}
		return storeError("Group", "create", err)
	}
	return nil
}

func (r *firestoreGroupRepository) GetByID(ctx context.Context, id string) (*entity.GroupConversation, error) {
	var group entity.GroupConversation
	err := withReadRetry(ctx, func() error {
		doc, err := r.doc(id).Get(ctx)
		if err != nil {
			return storeError("Group", "get", err)
		}
		if err := doc.DataTo(&group); err != nil {
			return errors.Internal("Failed to parse group data", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	group.ID = id
	return &group, nil
}

func (r *firestoreGroupRepository) ListByMember(ctx context.Context, userID string) ([]*entity.GroupConversation, error) {
	var groups []*entity.GroupConversation
	err := withReadRetry(ctx, func() error {
		docs, err := r.client.Collection(groupsCollection).
			Where("members", "array-contains", userID).
			Documents(ctx).GetAll()
		if err != nil {
			return storeError("Groups", "list", err)
		}
		groups = make([]*entity.GroupConversation, 0, len(docs))
		for _, doc := range docs {
			var group entity.GroupConversation
			if err := doc.DataTo(&group); err != nil {
				return errors.Internal("Failed to parse group data", err)
			}
			group.ID = doc.Ref.ID
			groups = append(groups, &group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].LastMessageAt.After(groups[j].LastMessageAt)
	})
	return groups, nil
}

func (r *firestoreGroupRepository) AddMembers(ctx context.Context, id string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: "members", Value: firestore.ArrayUnion(toInterfaces(userIDs)...)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return storeError("Group", "add members to", err)
}

func (r *firestoreGroupRepository) RemoveMember(ctx context.Context, id, userID string) (bool, error) {
	var deleted bool
	doc := r.doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = false

		snap, err := tx.Get(doc)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var group entity.GroupConversation
		if err := snap.DataTo(&group); err != nil {
			return errors.Internal("Failed to parse group data", err)
		}
		if !group.HasMember(userID) {
			return nil
		}

		members, _ := group.WithoutMember(userID)
		if len(members) == 0 {
			deleted = true
			return tx.Delete(doc)
		}
		return tx.Update(doc, []firestore.Update{
			{Path: "members", Value: firestore.ArrayRemove(userID)},
			{Path: "admins", Value: firestore.ArrayRemove(userID)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return false, storeError("Group", "remove member from", err)
	}
	return deleted, nil
}

func (r *firestoreGroupRepository) SetAdmin(ctx context.Context, id, userID string, isAdmin bool) error {
	var value interface{} = firestore.ArrayRemove(userID)
	if isAdmin {
		value = firestore.ArrayUnion(userID)
	}
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: "admins", Value: value},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return storeError("Group", "update admins of", err)
}

func (r *firestoreGroupRepository) UpdateInfo(ctx context.Context, id string, changes entity.GroupInfoUpdate) error {
	if changes.Empty() {
		return nil
	}
	updates := []firestore.Update{{Path: "updatedAt", Value: firestore.ServerTimestamp}}
	if changes.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *changes.Name})
	}
	if changes.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *changes.Description})
	}
	if changes.Icon != nil {
		updates = append(updates, firestore.Update{Path: "icon", Value: *changes.Icon})
	}
	_, err := r.doc(id).Update(ctx, updates)
	return storeError("Group", "update", err)
}

func (r *firestoreGroupRepository) SetPermission(ctx context.Context, id string, field entity.PermissionField, level entity.AccessLevel) error {
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: string(field), Value: string(level)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return storeError("Group", "update permissions of", err)
}

func (r *firestoreGroupRepository) TouchLastMessage(ctx context.Context, id string, message *entity.Message) error {
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: message.Text},
		{Path: "lastMessageAt", Value: firestore.ServerTimestamp},
	})
	return storeError("Group", "update", err)
}

func (r *firestoreGroupRepository) Delete(ctx context.Context, id string) error {
	_, err := r.doc(id).Delete(ctx)
	return storeError("Group", "delete", err)
}
