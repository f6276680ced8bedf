package state

import (
	"context"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Payload carries values resolved in earlier steps of a flow.
type Payload map[string]string

func (p Payload) clone() Payload {
	if len(p) == 0 {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Session stores conversation state and step data for a user.
type Session struct {
	UserID    int64     `json:"user_id"`
	State     State     `json:"state"`
	Payload   Payload   `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Value returns a payload value or an empty string.
func (s Session) Value(key string) string {
	if s.Payload == nil {
		return ""
	}
	return s.Payload[key]
}

// Store persists sessions keyed by user id.
type Store interface {
	Load(ctx context.Context, userID int64) (Session, bool, error)
	Save(ctx context.Context, sess Session) error
	// Delete removes the session and reports whether one existed.
	Delete(ctx context.Context, userID int64) (bool, error)
}

// HandlerFunc handles an event for a user whose session is in a given state.
type HandlerFunc[E any] func(ctx context.Context, sess Session, ev E) error
