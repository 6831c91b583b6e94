// Package session tracks the single session id used for outbound backend
// calls. The id moves through three states: absent, client-provisional
// (minted locally before the backend has acknowledged anything), and
// confirmed (the backend returned or accepted it). It is a cached, derived
// value — the backend remains the source of truth.
package session

import (
	"fmt"

	"github.com/google/uuid"
)

// State describes what the resolver currently knows about the session id.
type State int

const (
	StateNone State = iota
	StateProvisional
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateProvisional:
		return "provisional"
	case StateConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// ConsistencyError reports a backend confirmation that conflicts with an
// already-confirmed session id. It signals a broken invariant and must be
// surfaced, never swallowed.
type ConsistencyError struct {
	Active   string
	Returned string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("session id conflict: active %q, backend returned %q", e.Active, e.Returned)
}

// Resolver owns the current session id. It is mutated only from the UI
// event loop, never concurrently.
type Resolver struct {
	id    string
	state State

	newID func() string
}

// NewResolver creates a resolver with no active session.
func NewResolver() *Resolver {
	return &Resolver{newID: uuid.NewString}
}

// ResolveForSend returns the session id to attach to an outbound call. With
// no active session it mints a provisional id; repeated calls keep returning
// that same id until it is confirmed or reset.
func (r *Resolver) ResolveForSend() (id string, provisional bool) {
	if r.state == StateNone {
		r.id = r.newID()
		r.state = StateProvisional
	}
	return r.id, r.state == StateProvisional
}

// Confirm records a session id echoed by the backend. A provisional id is
// promoted to whatever the backend returned, even when the two differ — the
// backend mints canonical ids. Confirming the already-confirmed id is a
// no-op; confirming a different one is a ConsistencyError and leaves the
// state untouched. An empty id is ignored (older backends omit the field).
func (r *Resolver) Confirm(returned string) error {
	if returned == "" {
		return nil
	}
	switch r.state {
	case StateConfirmed:
		if returned != r.id {
			return &ConsistencyError{Active: r.id, Returned: returned}
		}
		return nil
	default:
		r.id = returned
		r.state = StateConfirmed
		return nil
	}
}

// Adopt enters an existing session as confirmed, used when the user resumes
// a session picked from the history list.
func (r *Resolver) Adopt(id string) {
	r.id = id
	r.state = StateConfirmed
}

// Reset clears the session, used when the user starts an unrelated
// conversation.
func (r *Resolver) Reset() {
	r.id = ""
	r.state = StateNone
}

// Current returns the active id and its state.
func (r *Resolver) Current() (string, State) {
	return r.id, r.state
}
