// Package session keeps one generation workflow per browser session.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"qrgen/internal/engine/workflow"
)

// Factory builds the workflow for a new session id.
type Factory func(id string) *workflow.Workflow

type entry struct {
	workflow   *workflow.Workflow
	lastAccess time.Time
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	factory  Factory
	now      func() time.Time
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.New().String()
}

// Get returns the workflow for id, creating it on first use.
func (r *Registry) Get(id string) *workflow.Workflow {
	now := r.now()

	r.mu.RLock()
	e, exists := r.sessions[id]
	r.mu.RUnlock()
	if exists {
		r.touch(e, now)
		return e.workflow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if e, exists := r.sessions[id]; exists {
		e.lastAccess = now
		return e.workflow
	}

	e = &entry{workflow: r.factory(id), lastAccess: now}
	r.sessions[id] = e
	return e.workflow
}

func (r *Registry) touch(e *entry, now time.Time) {
	r.mu.Lock()
	e.lastAccess = now
	r.mu.Unlock()
}

// Lookup returns the workflow for id without creating one.
func (r *Registry) Lookup(id string) (*workflow.Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return e.workflow, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// InFlight counts sessions with a generation currently running.
func (r *Registry) InFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.sessions {
		if e.workflow.State() == workflow.InFlight {
			n++
		}
	}
	return n
}

// Sweep drops sessions idle for longer than idle, cancelling any generation
// they still have running. It returns the number of sessions removed.
func (r *Registry) Sweep(idle time.Duration) int {
	now := r.now()

	r.mu.Lock()
	var expired []*entry
	for id, e := range r.sessions {
		if now.Sub(e.lastAccess) > idle {
			expired = append(expired, e)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		e.workflow.Cancel()
	}
	return len(expired)
}

// CloseAll cancels every in-flight generation and forgets all sessions.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.sessions {
		e.workflow.Cancel()
	}
	r.sessions = make(map[string]*entry)
}
