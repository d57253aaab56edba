package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
)

type messageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) repository.MessageRepository {
	return &messageRepository{store: store}
}

// find must be called with mu held.
func (r *messageRepository) find(ref entity.ConversationRef, id string) (*entity.Message, error) {
	for _, m := range r.store.messages[ref] {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *messageRepository) Create(ctx context.Context, ref entity.ConversationRef, message *entity.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Message.Create"); err != nil {
		return err
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.ConversationID = ref.ID
	if message.Reactions == nil {
		message.Reactions = []entity.Reaction{}
	}
	message.CreatedAt = s.stamp()
	s.messages[ref] = append(s.messages[ref], copyMessage(message))
	s.publish(ref)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, ref entity.ConversationRef, id string) (*entity.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Message.GetByID"); err != nil {
		return nil, err
	}
	message, err := r.find(ref, id)
	if err != nil {
		return nil, err
	}
	return copyMessage(message), nil
}

func (r *messageRepository) List(ctx context.Context, ref entity.ConversationRef) ([]*entity.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Message.List"); err != nil {
		return nil, err
	}
	return s.snapshot(ref), nil
}

func (r *messageRepository) UpdateText(ctx context.Context, ref entity.ConversationRef, id, text string) error {
	return r.mutate("Message.UpdateText", ref, id, func(m *entity.Message) {
		m.Text = text
		m.Edited = true
		m.CreatedAt = r.store.stamp()
	})
}

func (r *messageRepository) MarkRead(ctx context.Context, ref entity.ConversationRef, id string) error {
	return r.mutate("Message.MarkRead", ref, id, func(m *entity.Message) {
		m.IsRead = true
	})
}

func (r *messageRepository) SetReaction(ctx context.Context, ref entity.ConversationRef, id, userID, emoji string) error {
	return r.mutate("Message.SetReaction", ref, id, func(m *entity.Message) {
		m.Reactions = entity.WithReaction(m.Reactions, userID, emoji)
	})
}

func (r *messageRepository) RemoveReaction(ctx context.Context, ref entity.ConversationRef, id, userID, emoji string) error {
	return r.mutate("Message.RemoveReaction", ref, id, func(m *entity.Message) {
		m.Reactions = entity.WithoutReaction(m.Reactions, userID, emoji)
	})
}

func (r *messageRepository) mutate(op string, ref entity.ConversationRef, id string, apply func(*entity.Message)) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(op); err != nil {
		return err
	}
	message, err := r.find(ref, id)
	if err != nil {
		return err
	}
	apply(message)
	s.publish(ref)
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, ref entity.ConversationRef, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Message.Delete"); err != nil {
		return err
	}
	messages := s.messages[ref]
	for i, m := range messages {
		if m.ID == id {
			s.messages[ref] = append(messages[:i:i], messages[i+1:]...)
			s.publish(ref)
			break
		}
	}
	return nil
}

func (r *messageRepository) DeleteAll(ctx context.Context, ref entity.ConversationRef) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Message.DeleteAll"); err != nil {
		return err
	}
	delete(s.messages, ref)
	s.publish(ref)
	return nil
}

func (r *messageRepository) Watch(ctx context.Context, ref entity.ConversationRef) (repository.MessageStream, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Message.Watch"); err != nil {
		return nil, err
	}

	stream := &messageStream{
		store:  s,
		ref:    ref,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		watch:  ctx,
	}
	if s.watchers[ref] == nil {
		s.watchers[ref] = make(map[*messageStream]struct{})
	}
	s.watchers[ref][stream] = struct{}{}
	stream.offer(s.snapshot(ref))
	return stream, nil
}

// snapshot must be called with mu held.
func (s *Store) snapshot(ref entity.ConversationRef) []*entity.Message {
	out := make([]*entity.Message, 0, len(s.messages[ref]))
	for _, m := range s.messages[ref] {
		out = append(out, copyMessage(m))
	}
	entity.SortMessages(out)
	return out
}

// publish must be called with mu held.
func (s *Store) publish(ref entity.ConversationRef) {
	for stream := range s.watchers[ref] {
		stream.offer(s.snapshot(ref))
	}
}

// messageStream keeps only the latest undelivered snapshot, so a slow reader
// skips intermediate states the way a Firestore listener does.
type messageStream struct {
	store  *Store
	ref    entity.ConversationRef
	watch  context.Context
	notify chan struct{}
	done   chan struct{}

	mu       sync.Mutex
	pending  []*entity.Message
	hasValue bool
	stopOnce sync.Once
}

func (st *messageStream) offer(messages []*entity.Message) {
	st.mu.Lock()
	st.pending = messages
	st.hasValue = true
	st.mu.Unlock()

	select {
	case st.notify <- struct{}{}:
	default:
	}
}

func (st *messageStream) take() ([]*entity.Message, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.hasValue {
		return nil, false
	}
	st.hasValue = false
	return st.pending, true
}

func (st *messageStream) Next(ctx context.Context) ([]*entity.Message, error) {
	for {
		select {
		case <-st.done:
			return nil, iterator.Done
		default:
		}
		if messages, ok := st.take(); ok {
			return messages, nil
		}
		select {
		case <-st.notify:
		case <-st.done:
			return nil, iterator.Done
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-st.watch.Done():
			return nil, st.watch.Err()
		}
	}
}

func (st *messageStream) Stop() {
	st.stopOnce.Do(func() {
		st.store.mu.Lock()
		delete(st.store.watchers[st.ref], st)
		st.store.mu.Unlock()
		close(st.done)
	})
}
