package stream

import (
	"sync"
	"time"
)

// Session is one live, addressable channel to a connected observer. The
// registry holds a reference; it does not own the underlying transport.
type Session interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

type member struct {
	session Session
	addedAt time.Time
}

// Registry is the concurrency-safe set of live push sessions. It is the only
// state mutated from the connect handler, the disconnect handler and the
// broadcaster, so every access goes through the one lock.
type Registry struct {
	mu      sync.RWMutex
	members map[string]member
	nowFn   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		members: make(map[string]member),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *Registry) Add(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[s.ID()] = member{session: s, addedAt: r.nowFn()}
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
}

// Snapshot copies the current membership so callers can iterate and send
// without holding the lock across a potentially slow network write.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.session)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Clear closes and drops every session. Used on shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	members := r.members
	r.members = make(map[string]member)
	r.mu.Unlock()
	for _, m := range members {
		_ = m.session.Close()
	}
}
