package session

import (
	"context"
	"sync"

	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store"
)

// Registry holds one Session per signed-in uid for a multi-user server.
type Registry struct {
	ctx   context.Context
	store store.DocumentStore

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(ctx context.Context, s store.DocumentStore) *Registry {
	return &Registry{ctx: ctx, store: s, sessions: make(map[string]*Session)}
}

// Acquire returns the session for id, opening it on first use. A session
// opened for a different email under the same uid is replaced.
func (r *Registry) Acquire(id identity.Identity) (*Session, error) {
	if id.UID == "" {
		return nil, identity.ErrUnauthenticated
	}
	r.mu.Lock()
	sess, ok := r.sessions[id.UID]
	if ok && !sess.Closed() && sess.Identity().Email == id.Email {
		r.mu.Unlock()
		return sess, nil
	}
	next := Open(r.ctx, r.store, id)
	r.sessions[id.UID] = next
	r.mu.Unlock()

	if ok {
		sess.Close()
	}
	return next, nil
}

// Get returns the open session for uid, if any.
func (r *Registry) Get(uid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[uid]
	return sess, ok
}

// Release closes and forgets the session for uid.
func (r *Registry) Release(uid string) {
	r.mu.Lock()
	sess, ok := r.sessions[uid]
	delete(r.sessions, uid)
	r.mu.Unlock()
	if ok {
		sess.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll flushes and closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, sess := range sessions {
		sess.Flush()
		sess.Close()
	}
}
