package identity

import (
	"context"
	"sync"
)

// Resolver holds the current identity of one client and tells dependents
// when it changes. A nil identity means signed out.
type Resolver struct {
	service *Service

	mu      sync.Mutex
	current *Identity
	next    int
	subs    map[int]func(*Identity)

	// serialises notifications so subscribers see changes in order
	notifyMu sync.Mutex
}

func NewResolver(service *Service) *Resolver {
	return &Resolver{service: service, subs: make(map[int]func(*Identity))}
}

// Current returns a copy of the signed-in identity, or nil.
func (r *Resolver) Current() *Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	id := *r.current
	return &id
}

// Subscribe calls fn with the current identity and then on every change
// until the returned function is called.
func (r *Resolver) Subscribe(fn func(*Identity)) func() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	key := r.next
	r.next++
	r.subs[key] = fn
	r.mu.Unlock()

	fn(r.Current())

	return func() {
		r.mu.Lock()
		delete(r.subs, key)
		r.mu.Unlock()
	}
}

func (r *Resolver) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	id, err := r.service.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	r.Set(id)
	return id, nil
}

func (r *Resolver) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	id, err := r.service.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	r.Set(id)
	return id, nil
}

func (r *Resolver) SignInFederated(ctx context.Context, idToken string) (*Identity, error) {
	id, err := r.service.SignInFederated(ctx, idToken)
	if err != nil {
		return nil, err
	}
	r.Set(id)
	return id, nil
}

// SignOut clears the identity; dependents drop their state.
func (r *Resolver) SignOut() {
	r.Set(nil)
}

// Set replaces the current identity and notifies subscribers. Setting the
// identity that is already current (same uid) only refreshes it.
func (r *Resolver) Set(id *Identity) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	prev := r.current
	if id != nil {
		c := *id
		r.current = &c
	} else {
		r.current = nil
	}
	changed := uid(prev) != uid(id)
	subs := make([]func(*Identity), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(r.Current())
	}
}

func uid(id *Identity) string {
	if id == nil {
		return ""
	}
	return id.UID
}
