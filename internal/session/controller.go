package session

import (
	"context"
	"sync"

	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
)

// Controller follows a Resolver and keeps exactly one Session for whoever
// is signed in. Switching identity closes the old session before the new
// one opens, so no state crosses between identities.
type Controller struct {
	ctx   context.Context
	store store.DocumentStore

	mu      sync.Mutex
	current *Session
	stopSub func()

	subMu sync.Mutex
	subs  map[int]func(State)
	next  int

	unbind func()
}

// NewController binds to resolver and opens a session if someone is
// already signed in.
func NewController(ctx context.Context, s store.DocumentStore, resolver *identity.Resolver) *Controller {
	c := &Controller{ctx: ctx, store: s, subs: make(map[int]func(State))}
	c.unbind = resolver.Subscribe(c.switchTo)
	return c
}

func (c *Controller) switchTo(id *identity.Identity) {
	c.mu.Lock()
	old, stopOld := c.current, c.stopSub
	c.current, c.stopSub = nil, nil
	c.mu.Unlock()

	if old != nil {
		stopOld()
		old.Close()
		logger.Component("Session").WithField("uid", old.Identity().UID).Info("session closed")
	}

	if id == nil {
		c.broadcast(State{Cart: []cart.Item{}, Favorites: []product.Product{}, Orders: []order.Order{}})
		return
	}

	sess := Open(c.ctx, c.store, *id)
	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()
	stop := sess.Subscribe(c.broadcast)

	c.mu.Lock()
	if c.current == sess {
		c.stopSub = stop
		c.mu.Unlock()
	} else {
		c.mu.Unlock()
		stop()
	}
	logger.Component("Session").WithField("uid", id.UID).Info("session opened")
}

func (c *Controller) broadcast(st State) {
	c.subMu.Lock()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// Subscribe receives the state of whichever session is current, including
// an empty state on sign-out.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	key := c.next
	c.next++
	c.subs[key] = fn
	c.subMu.Unlock()

	fn(c.State())
	return func() {
		c.subMu.Lock()
		delete(c.subs, key)
		c.subMu.Unlock()
	}
}

// Session returns the current session or ErrUnauthenticated.
func (c *Controller) Session() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, identity.ErrUnauthenticated
	}
	return c.current, nil
}

// State is the current session's state, or an empty state when signed out.
func (c *Controller) State() State {
	sess, err := c.Session()
	if err != nil {
		return State{Cart: []cart.Item{}, Favorites: []product.Product{}, Orders: []order.Order{}}
	}
	return sess.State()
}

func (c *Controller) AddToCart(p product.Product) error {
	return c.with(func(s *Session) error { return s.AddToCart(p) })
}

func (c *Controller) UpdateQuantity(productID string, quantity int) error {
	return c.with(func(s *Session) error { return s.UpdateQuantity(productID, quantity) })
}

func (c *Controller) RemoveFromCart(productID string) error {
	return c.with(func(s *Session) error { return s.RemoveFromCart(productID) })
}

func (c *Controller) ClearCart() error {
	return c.with(func(s *Session) error { return s.ClearCart() })
}

func (c *Controller) AddToFavorites(p product.Product) error {
	return c.with(func(s *Session) error { return s.AddToFavorites(p) })
}

func (c *Controller) RemoveFromFavorites(productID string) error {
	return c.with(func(s *Session) error { return s.RemoveFromFavorites(productID) })
}

func (c *Controller) with(fn func(*Session) error) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	return fn(sess)
}

// WaitLoaded waits for the current session's first remote state.
func (c *Controller) WaitLoaded(ctx context.Context) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	return sess.WaitLoaded(ctx)
}

// Flush waits for the current session's pushes.
func (c *Controller) Flush() {
	if sess, err := c.Session(); err == nil {
		sess.Flush()
	}
}

// Close detaches from the resolver and closes the current session.
func (c *Controller) Close() {
	c.unbind()
	c.mu.Lock()
	sess, stop := c.current, c.stopSub
	c.current, c.stopSub = nil, nil
	c.mu.Unlock()
	if sess != nil {
		if stop != nil {
			stop()
		}
		sess.Flush()
		sess.Close()
	}
}
