package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"bunkmate/internal/adapter/repository/memory"
	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
)

type testEnv struct {
	store    *memory.Store
	users    repository.UserRepository
	chats    repository.DirectChatRepository
	groups   repository.GroupRepository
	messages repository.MessageRepository
	direct   *DirectChatUseCase
	group    *GroupChatUseCase
	notifier *recordingNotifier
	feed     *recordingFeed
}

func newTestEnv(t *testing.T, userIDs ...string) *testEnv {
	t.Helper()
	store := memory.NewStore()
	env := &testEnv{
		store:    store,
		users:    memory.NewUserRepository(store),
		chats:    memory.NewDirectChatRepository(store),
		groups:   memory.NewGroupRepository(store),
		messages: memory.NewMessageRepository(store),
		notifier: &recordingNotifier{},
		feed:     &recordingFeed{},
	}
	env.direct = NewDirectChatUseCase(env.chats, env.messages, env.users, AllowAll)
	env.group = NewGroupChatUseCase(env.groups, env.messages, env.users, nil, AllowAll, "https://bunkmate.app/")

	for _, id := range userIDs {
		require.NoError(t, env.users.Create(context.Background(), &entity.User{ID: id, DisplayName: id}))
	}
	return env
}

func (env *testEnv) viewerDeps() ViewerDeps {
	return ViewerDeps{
		ChatRepo:    env.chats,
		GroupRepo:   env.groups,
		MessageRepo: env.messages,
		UserRepo:    env.users,
		Notifier:    env.notifier,
		Feed:        env.feed,
	}
}

func (env *testEnv) systemMessages(t *testing.T, groupID string) []string {
	t.Helper()
	messages, err := env.messages.List(context.Background(), entity.GroupRef(groupID))
	require.NoError(t, err)
	var texts []string
	for _, m := range messages {
		if m.System {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []entity.NotificationEvent
	err    error
}

func (n *recordingNotifier) Dispatch(ctx context.Context, event entity.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Events() []entity.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.NotificationEvent(nil), n.events...)
}

type recordingFeed struct {
	mu        sync.Mutex
	snapshots []entity.LiveSnapshot
	revoked   []entity.ConversationRef
}

func (f *recordingFeed) PublishSnapshot(viewerID string, snapshot entity.LiveSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
}

func (f *recordingFeed) Revoke(viewerID string, ref entity.ConversationRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, ref)
}

func (f *recordingFeed) Snapshots() []entity.LiveSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.LiveSnapshot(nil), f.snapshots...)
}

func (f *recordingFeed) Revoked() []entity.ConversationRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.ConversationRef(nil), f.revoked...)
}

func strPtr(s string) *string { return &s }
