package state

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore constructs an in-process Store. Sessions are lost on restart.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]Session),
	}
}

// Load returns the session for a user if it exists.
func (m *memoryStore) Load(_ context.Context, userID int64) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[userID]
	if !ok {
		return Session{}, false, nil
	}
	sess.Payload = sess.Payload.clone()
	return sess, true, nil
}

// Save replaces the user's session.
func (m *memoryStore) Save(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.Payload = sess.Payload.clone()
	m.sessions[sess.UserID] = sess
	return nil
}

// Delete removes the entire session for a user.
func (m *memoryStore) Delete(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok, nil
}
