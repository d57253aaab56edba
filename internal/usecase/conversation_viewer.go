package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/iterator"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/internal/infrastructure/metrics"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

// LiveFeed pushes conversation state to the sockets a viewer has joined.
// websocket.Manager satisfies it.
type LiveFeed interface {
	PublishSnapshot(viewerID string, snapshot entity.LiveSnapshot)
	// Revoke detaches the viewer's sockets from a conversation it may no longer see.
	Revoke(viewerID string, ref entity.ConversationRef)
}

// ViewerDeps are the collaborators every ConversationViewer shares.
type ViewerDeps struct {
	ChatRepo    repository.DirectChatRepository
	GroupRepo   repository.GroupRepository
	MessageRepo repository.MessageRepository
	UserRepo    repository.UserRepository
	Notifier    Notifier
	Feed        LiveFeed
	Metrics     *metrics.Metrics
}

// ConversationViewer follows one conversation on behalf of one viewer. It
// reduces every snapshot the store delivers and applies the resulting effects.
type ConversationViewer struct {
	deps     ViewerDeps
	ref      entity.ConversationRef
	viewerID string
	names    map[string]string
	title    string
	state    ViewState

	newBackOff func() backoff.BackOff
}

func NewConversationViewer(deps ViewerDeps, ref entity.ConversationRef, viewerID string) *ConversationViewer {
	return &ConversationViewer{
		deps:       deps,
		ref:        ref,
		viewerID:   viewerID,
		names:      map[string]string{},
		state:      NewViewState(viewerID, ref),
		newBackOff: resubscribeBackOff,
	}
}

func resubscribeBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0
	policy.MaxInterval = 30 * time.Second
	return policy
}

// Authorize checks the viewer belongs to the conversation and loads its title.
func (v *ConversationViewer) Authorize(ctx context.Context) error {
	if err := requireUser(v.viewerID); err != nil {
		return err
	}
	switch v.ref.Kind {
	case entity.KindDirect:
		chat, err := v.deps.ChatRepo.GetByID(ctx, v.ref.ID)
		if err != nil {
			return err
		}
		if !chat.HasMember(v.viewerID) {
			return errors.Forbidden("You are not a member of this conversation", nil)
		}
		return nil
	case entity.KindGroup:
		return v.refreshGroup(ctx)
	default:
		return errors.Validation("Unknown conversation kind")
	}
}

// refreshGroup re-reads the group: a viewer that was removed loses access and
// a rename reaches the notification title.
func (v *ConversationViewer) refreshGroup(ctx context.Context) error {
	group, err := v.deps.GroupRepo.GetByID(ctx, v.ref.ID)
	if err != nil {
		return err
	}
	if !group.HasMember(v.viewerID) {
		return errors.Forbidden("You are not a member of this conversation", nil)
	}
	v.title = group.Name
	return nil
}

// revoked reports errors after which the viewer must stop for good.
func revoked(err error) bool {
	return errors.Is(err, errors.CodeForbidden) || errors.Is(err, errors.CodeNotFound)
}

// Run follows the conversation until ctx is cancelled or the viewer loses
// access. A broken subscription is re-opened with exponential backoff; the view
// state survives the restart.
func (v *ConversationViewer) Run(ctx context.Context) error {
	v.deps.Metrics.ViewerStarted()
	defer v.deps.Metrics.ViewerStopped()

	policy := v.newBackOff()
	for {
		err := v.follow(ctx, policy)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}
		if revoked(err) {
			logger.Info("Viewer %s lost access to %s: %v", v.viewerID, v.ref, err)
			if v.deps.Feed != nil {
				v.deps.Feed.Revoke(v.viewerID, v.ref)
			}
			return nil
		}

		wait := policy.NextBackOff()
		logger.Warn("Viewer %s on %s lost its subscription, retrying in %v: %v", v.viewerID, v.ref, wait, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (v *ConversationViewer) follow(ctx context.Context, policy backoff.BackOff) error {
	stream, err := v.deps.MessageRepo.Watch(ctx, v.ref)
	if err != nil {
		return err
	}
	defer stream.Stop()

	for {
		messages, err := stream.Next(ctx)
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := v.Observe(ctx, messages); err != nil {
			return err
		}
		policy.Reset()
	}
}

// Observe publishes one snapshot to the viewer's sockets, reduces it and
// applies its effects. Group membership is re-checked first; a viewer that is
// no longer a member gets a FORBIDDEN error and sees nothing. Effect failures
// are collected and logged; they never stop the viewer.
func (v *ConversationViewer) Observe(ctx context.Context, messages []*entity.Message) ([]Effect, error) {
	if v.ref.Kind == entity.KindGroup {
		if err := v.refreshGroup(ctx); err != nil {
			return nil, err
		}
	}

	ordered := append([]*entity.Message(nil), messages...)
	entity.SortMessages(ordered)
	if v.deps.Feed != nil {
		v.deps.Feed.PublishSnapshot(v.viewerID, entity.NewLiveSnapshot(v.ref, ordered))
	}

	v.resolveNames(ctx, ordered)
	next, effects := ReduceSnapshot(v.state, Snapshot{
		Conversation: v.ref,
		Title:        v.title,
		Messages:     ordered,
		Names:        v.names,
	})
	v.state = next

	if err := v.apply(ctx, effects); err != nil {
		logger.Warn("Viewer %s on %s: %v", v.viewerID, v.ref, err)
	}
	return effects, nil
}

func (v *ConversationViewer) apply(ctx context.Context, effects []Effect) error {
	var result *multierror.Error
	for _, effect := range effects {
		switch e := effect.(type) {
		case MarkReadEffect:
			err := v.deps.MessageRepo.MarkRead(ctx, e.Conversation, e.MessageID)
			v.deps.Metrics.EffectApplied("mark_read", outcome(err))
			if err != nil {
				v.state = v.state.ReadFailed(e.MessageID)
				result = multierror.Append(result, err)
			}
		case NotifyEffect:
			if v.deps.Notifier == nil {
				continue
			}
			err := v.deps.Notifier.Dispatch(ctx, e.Event)
			v.deps.Metrics.EffectApplied("notify", outcome(err))
			if err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

// resolveNames fetches display names for authors and reactors not seen before.
func (v *ConversationViewer) resolveNames(ctx context.Context, messages []*entity.Message) {
	var missing []string
	want := func(id string) {
		if id == "" {
			return
		}
		if _, ok := v.names[id]; !ok {
			v.names[id] = ""
			missing = append(missing, id)
		}
	}
	for _, m := range messages {
		want(m.Author())
		for _, r := range m.Reactions {
			want(r.UserID)
		}
	}
	if len(missing) == 0 {
		return
	}

	users, err := v.deps.UserRepo.GetMany(ctx, missing)
	if err != nil {
		logger.Warn("Viewer %s could not resolve names: %v", v.viewerID, err)
		for _, id := range missing {
			delete(v.names, id)
		}
		return
	}
	for _, id := range missing {
		if u, ok := users[id]; ok {
			v.names[id] = u.Name()
		}
	}
}

type viewerKey struct {
	viewerID string
	ref      entity.ConversationRef
}

type runningViewer struct {
	cancel context.CancelFunc
	refs   int
}

// ViewerRegistry runs at most one ConversationViewer per (viewer, conversation),
// shared by every socket the viewer has open on that conversation.
type ViewerRegistry struct {
	deps ViewerDeps
	base context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	running map[viewerKey]*runningViewer
	wg      sync.WaitGroup
}

func NewViewerRegistry(deps ViewerDeps) *ViewerRegistry {
	base, stop := context.WithCancel(context.Background())
	return &ViewerRegistry{
		deps:    deps,
		base:    base,
		stop:    stop,
		running: make(map[viewerKey]*runningViewer),
	}
}

// Open starts following ref for viewerID after checking membership.
func (r *ViewerRegistry) Open(ctx context.Context, viewerID string, ref entity.ConversationRef) error {
	key := viewerKey{viewerID: viewerID, ref: ref}

	r.mu.Lock()
	if running, ok := r.running[key]; ok {
		running.refs++
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	viewer := NewConversationViewer(r.deps, ref, viewerID)
	if err := viewer.Authorize(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if running, ok := r.running[key]; ok {
		running.refs++
		return nil
	}
	viewerCtx, cancel := context.WithCancel(r.base)
	running := &runningViewer{cancel: cancel, refs: 1}
	r.running[key] = running
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.forget(key, running)
		if err := viewer.Run(viewerCtx); err != nil {
			logger.Error("Viewer %s on %s stopped: %v", viewerID, ref, err)
		}
	}()
	logger.Debug("Viewer %s opened %s", viewerID, ref)
	return nil
}

// Close releases one hold on the viewer; the last release stops it.
func (r *ViewerRegistry) Close(viewerID string, ref entity.ConversationRef) {
	key := viewerKey{viewerID: viewerID, ref: ref}

	r.mu.Lock()
	defer r.mu.Unlock()
	running, ok := r.running[key]
	if !ok {
		return
	}
	running.refs--
	if running.refs <= 0 {
		running.cancel()
		delete(r.running, key)
		logger.Debug("Viewer %s closed %s", viewerID, ref)
	}
}

// forget drops a viewer that stopped on its own, unless it was already replaced.
func (r *ViewerRegistry) forget(key viewerKey, running *runningViewer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[key] == running {
		running.cancel()
		delete(r.running, key)
	}
}

// IsOpen reports whether viewerID currently follows ref.
func (r *ViewerRegistry) IsOpen(viewerID string, ref entity.ConversationRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[viewerKey{viewerID: viewerID, ref: ref}]
	return ok
}

// Shutdown stops every viewer and waits for them to exit.
func (r *ViewerRegistry) Shutdown() {
	r.stop()
	r.mu.Lock()
	r.running = make(map[viewerKey]*runningViewer)
	r.mu.Unlock()
	r.wg.Wait()
}
