// Package memory holds in-process implementations of the domain repositories.
// They back STORE=memory for local development and the usecase tests.
package memory

import (
	"sync"
	"time"

	"bunkmate/internal/domain/entity"
)

// Store is the shared state behind every memory repository. One Store plays the
// role of one Firestore database.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	last     time.Time
	users    map[string]*entity.User
	chats    map[string]*entity.DirectConversation
	groups   map[string]*entity.GroupConversation
	messages map[entity.ConversationRef][]*entity.Message
	tokens   map[string]*entity.DeliveryToken
	watchers map[entity.ConversationRef]map[*messageStream]struct{}
	failures map[string]error
}

func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[string]*entity.User),
		chats:    make(map[string]*entity.DirectConversation),
		groups:   make(map[string]*entity.GroupConversation),
		messages: make(map[entity.ConversationRef][]*entity.Message),
		tokens:   make(map[string]*entity.DeliveryToken),
		watchers: make(map[entity.ConversationRef]map[*messageStream]struct{}),
		failures: make(map[string]error),
	}
}

// SetClock replaces the time source. Timestamps handed out stay strictly increasing.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// FailNext makes the next call of op return err. Ops are named
// "<Repository>.<Method>", for example "Message.DeleteAll".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	s.failures[op] = err
	s.mu.Unlock()
}

// fail must be called with mu held.
func (s *Store) fail(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

// stamp must be called with mu held.
func (s *Store) stamp() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func copyMessage(m *entity.Message) *entity.Message {
	out := *m
	out.Reactions = append([]entity.Reaction{}, m.Reactions...)
	if m.ReplyTo != nil {
		reply := *m.ReplyTo
		out.ReplyTo = &reply
	}
	return &out
}

func copyGroup(g *entity.GroupConversation) *entity.GroupConversation {
	out := *g
	out.Members = append([]string{}, g.Members...)
	out.Admins = append([]string{}, g.Admins...)
	return &out
}

func copyChat(c *entity.DirectConversation) *entity.DirectConversation {
	out := *c
	out.Participants = append([]string{}, c.Participants...)
	return &out
}

func copyUser(u *entity.User) *entity.User {
	out := *u
	out.Friends = append([]string{}, u.Friends...)
	out.Nicknames = make(map[string]string, len(u.Nicknames))
	for k, v := range u.Nicknames {
		out.Nicknames[k] = v
	}
	return &out
}
