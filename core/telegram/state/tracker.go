package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/lumiabot/core/logger"
)

// Options configures a Tracker.
type Options struct {
	// Now overrides the clock used for Session.CreatedAt.
	Now func() time.Time
}

// Tracker owns the user -> session mapping and the state handler table.
type Tracker[E any] struct {
	store Store
	now   func() time.Time
	locks *keyedMutex

	mu       sync.RWMutex
	handlers map[State]HandlerFunc[E]
}

// NewTracker creates a tracker backed by store. A nil store falls back to memory.
func NewTracker[E any](store Store, opts Options) *Tracker[E] {
	if store == nil {
		store = NewMemoryStore()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker[E]{
		store:    store,
		now:      now,
		locks:    newKeyedMutex(),
		handlers: make(map[State]HandlerFunc[E]),
	}
}

// Handle associates a state with its handler. Registering twice replaces the handler.
func (t *Tracker[E]) Handle(st State, h HandlerFunc[E]) {
	if h == nil || st == StateIdle {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[st] = h
}

// Enter puts the user into st, replacing any active session.
func (t *Tracker[E]) Enter(ctx context.Context, userID int64, st State, payload Payload) error {
	if st == StateIdle {
		_, err := t.Exit(ctx, userID)
		return err
	}
	sess := Session{
		UserID:    userID,
		State:     st,
		Payload:   payload.clone(),
		CreatedAt: t.now(),
	}
	if err := t.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("session enter %s: %w", st, err)
	}
	logger.Debug(ctx, "session", "session.enter",
		slog.Int64("user_id", userID),
		slog.String("state", string(st)),
	)
	return nil
}

// Exit clears the user's session. Exiting an idle user is a no-op.
func (t *Tracker[E]) Exit(ctx context.Context, userID int64) (bool, error) {
	existed, err := t.store.Delete(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("session exit: %w", err)
	}
	if existed {
		logger.Debug(ctx, "session", "session.exit",
			slog.Int64("user_id", userID),
		)
	}
	return existed, nil
}

// Cancel exits the user's flow and reports whether one was active.
func (t *Tracker[E]) Cancel(ctx context.Context, userID int64) (bool, error) {
	return t.Exit(ctx, userID)
}

// Current returns the active session, if any.
func (t *Tracker[E]) Current(ctx context.Context, userID int64) (Session, bool, error) {
	sess, ok, err := t.store.Load(ctx, userID)
	if err != nil {
		return Session{}, false, fmt.Errorf("session load: %w", err)
	}
	if !ok || sess.State == StateIdle {
		return Session{}, false, nil
	}
	return sess, true, nil
}

// State returns the user's state, StateIdle when no session is active.
func (t *Tracker[E]) State(ctx context.Context, userID int64) State {
	sess, ok, err := t.Current(ctx, userID)
	if err != nil || !ok {
		return StateIdle
	}
	return sess.State
}

// InProgress reports whether the user currently has an active flow.
func (t *Tracker[E]) InProgress(ctx context.Context, userID int64) bool {
	return t.State(ctx, userID) != StateIdle
}

// Dispatch routes ev to the handler of the user's current state. It reports
// false when the user is idle or the state has no handler, so the caller can
// fall through to command handling.
func (t *Tracker[E]) Dispatch(ctx context.Context, userID int64, ev E) (bool, error) {
	sess, ok, err := t.Current(ctx, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	t.mu.RLock()
	h, found := t.handlers[sess.State]
	t.mu.RUnlock()

	logger.Debug(ctx, "session", "session.dispatch",
		slog.Int64("user_id", userID),
		slog.String("state", string(sess.State)),
		slog.Bool("handled", found),
	)
	if !found {
		return false, nil
	}
	return true, h(logger.WithState(ctx, string(sess.State)), sess, ev)
}

// Lock serializes work for one user and returns the unlock function.
func (t *Tracker[E]) Lock(userID int64) func() {
	return t.locks.lock(userID)
}
