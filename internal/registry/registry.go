package registry

import (
	"sync"

	"github.com/rexmirak/Chat-app/internal/domain"
)

// Connection is a live, authenticated channel to one user. The hub's
// websocket client satisfies it; tests substitute fakes.
type Connection interface {
	// SendEvent serialises and queues an event for delivery. It must not
	// block; delivery is best effort.
	SendEvent(event *domain.Event) error
	// Open reports whether the connection can still accept events.
	Open() bool
}

// Registry maps a user identity to the set of live connections for that
// user. It is the only mutable structure shared across connection handlers;
// all mutation happens under the lock and no I/O is performed while holding
// it. Constructed once per process and injected into its consumers.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[Connection]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]map[Connection]struct{}),
	}
}

// Register adds a connection to the entry for userID, creating the entry if
// absent. It returns true when this is the user's first live connection.
func (r *Registry) Register(userID string, conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Connection]struct{})
		r.conns[userID] = set
	}
	set[conn] = struct{}{}
	return !ok
}

// Unregister removes a connection from its entry, dropping the entry when it
// becomes empty. It returns true when the removed connection was the user's
// last one. Removing an unknown connection is a no-op.
func (r *Registry) Unregister(userID string, conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

// ConnectionsFor returns a snapshot of the user's live connections.
// Connections may close concurrently with iteration over the result.
func (r *Registry) ConnectionsFor(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.conns[userID]
	if !ok {
		return nil
	}
	out := make([]Connection, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// OnlineUserIDs returns the set of user identities with at least one live
// connection.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		out = append(out, userID)
	}
	return out
}

// Online reports whether the user has at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}
