// Package session records which patch units have completed during the
// current process. Nothing here is persisted: a new process starts empty.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle position of a unit within one session.
type State int

const (
	Absent State = iota
	Cloned
	Patched
	Installed
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Cloned:
		return "cloned"
	case Patched:
		return "patched"
	case Installed:
		return "installed"
	default:
		return "unknown"
	}
}

// Registry tracks unit lifecycle for one session.
type Registry struct {
	mu        sync.Mutex
	id        string
	states    map[string]State
	failures  map[string]error
	completed []string
}

// New creates an empty registry with a fresh session id.
func New() *Registry {
	return &Registry{
		id:       uuid.NewString(),
		states:   make(map[string]State),
		failures: make(map[string]error),
	}
}

// ID returns the session identifier.
func (r *Registry) ID() string {
	return r.id
}

// MarkDone records that the unit's patch operations have been applied.
func (r *Registry) MarkDone(id string) {
	r.Advance(id, Patched)
}

// IsDone reports whether the unit has reached Patched in this session.
func (r *Registry) IsDone(id string) bool {
	return r.State(id) >= Patched
}

// Advance moves a unit forward to s. Moving backwards is ignored.
func (r *Registry) Advance(id string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.states[id] >= s {
		return
	}
	r.states[id] = s
	if s == Installed {
		r.completed = append(r.completed, id)
	}
}

// State returns the unit's current lifecycle state.
func (r *Registry) State(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[id]
}

// MarkFailed remembers the error that aborted a unit.
func (r *Registry) MarkFailed(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[id] = err
}

// Failure returns the remembered error for a unit, if any.
func (r *Registry) Failure(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[id]
}

// Completed returns unit ids in the order they reached Installed.
func (r *Registry) Completed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.completed))
	copy(out, r.completed)
	return out
}
