// Package auth tracks which identities are currently logged in so that a
// single identity cannot be driven from two concurrent sessions.
package auth

import "sync"

// Registry is the process-wide set of authenticated identities. Every
// session worker reads and writes it, so access is mutex-guarded.
type Registry struct {
	mu     sync.Mutex
	active map[uint64]struct{}
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[uint64]struct{})}
}

// TryAcquire atomically marks id as logged in. It returns false when the
// identity is already bound to another session, in which case nothing
// changes.
func (r *Registry) TryAcquire(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.active[id]; taken {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

// Release frees an identity. Releasing an identity that is not held is a
// no-op, so the connection-teardown path can call it unconditionally.
func (r *Registry) Release(id uint64) {
	r.mu.Lock()
	delete(r.active, id)
	r.mu.Unlock()
}

// Active reports whether an identity is currently logged in.
func (r *Registry) Active(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}
