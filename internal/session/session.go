package session

import (
	"context"
	"errors"
	"sync"

	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/favorites"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/mirror"
)

var ErrSessionClosed = errors.New("session is closed")

// State is a complete view of one identity's cart, favorites and orders.
type State struct {
	Identity  *identity.Identity `json:"identity"`
	Cart      []cart.Item        `json:"cart"`
	Favorites []product.Product  `json:"favorites"`
	Orders    []order.Order      `json:"orders"`
	Subtotal  float64            `json:"subtotal"`
	Count     int                `json:"count"`
}

// Session owns the local cart and favorites of a signed-in identity. Every
// mutation changes local state at once and then pushes the whole list
// through the mirror without waiting for the write.
type Session struct {
	identity identity.Identity
	mirror   *mirror.Mirror

	mu        sync.RWMutex
	cart      []cart.Item
	favorites []product.Product
	orders    []order.Order
	closed    bool
	done      chan struct{}

	// sources whose first remote value has not arrived yet
	awaiting map[string]bool
	loaded   chan struct{}

	subMu sync.Mutex
	subs  map[int]func(State)
	next  int

	// serialises notifications so subscribers never see an older state last
	notifyMu sync.Mutex
}

// Open starts a session for id backed by s.
func Open(ctx context.Context, s store.DocumentStore, id identity.Identity) *Session {
	sess := &Session{
		identity:  id,
		cart:      []cart.Item{},
		favorites: []product.Product{},
		orders:    []order.Order{},
		subs:      make(map[int]func(State)),
		done:      make(chan struct{}),
		awaiting:  map[string]bool{"cart": true, "favorites": true, "orders": true},
		loaded:    make(chan struct{}),
	}
	sess.mirror = mirror.Open(ctx, s, id, mirror.Handlers{
		Cart:      sess.remoteCart,
		Favorites: sess.remoteFavorites,
		Orders:    sess.remoteOrders,
	})
	return sess
}

func (s *Session) Identity() identity.Identity {
	return s.identity
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.identity
	return State{
		Identity:  &id,
		Cart:      append([]cart.Item{}, s.cart...),
		Favorites: append([]product.Product{}, s.favorites...),
		Orders:    append([]order.Order{}, s.orders...),
		Subtotal:  cart.Subtotal(s.cart),
		Count:     cart.Count(s.cart),
	}
}

func (s *Session) Cart() []cart.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cart.Item{}, s.cart...)
}

func (s *Session) Favorites() []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]product.Product{}, s.favorites...)
}

func (s *Session) Orders() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]order.Order{}, s.orders...)
}

func (s *Session) IsFavorite(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return favorites.Contains(s.favorites, productID)
}

func (s *Session) AddToCart(p product.Product) error {
	return s.applyCart(cart.AddItem(p))
}

// UpdateQuantity sets the line quantity; below 1 removes the line.
func (s *Session) UpdateQuantity(productID string, quantity int) error {
	return s.applyCart(cart.UpdateQuantity(productID, quantity))
}

func (s *Session) RemoveFromCart(productID string) error {
	return s.applyCart(cart.RemoveItem(productID))
}

func (s *Session) ClearCart() error {
	return s.applyCart(cart.Clear())
}

func (s *Session) applyCart(a cart.Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	items, err := cart.Apply(s.cart, a)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.cart = items
	// pushed under the lock so writes reach the mirror in mutation order
	s.mirror.PushCart(items)
	s.mu.Unlock()

	s.publish()
	return nil
}

// AddToFavorites adds p; a product already in the set is a no-op.
func (s *Session) AddToFavorites(p product.Product) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	items, changed, err := favorites.Add(s.favorites, p)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.favorites = items
	s.mirror.PushFavorites(items)
	s.mu.Unlock()

	s.publish()
	return nil
}

// RemoveFromFavorites removes productID; an absent product is a no-op.
func (s *Session) RemoveFromFavorites(productID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	items, changed := favorites.Remove(s.favorites, productID)
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.favorites = items
	s.mirror.PushFavorites(items)
	s.mu.Unlock()

	s.publish()
	return nil
}

func (s *Session) remoteCart(items []cart.Item) {
	s.replace("cart", func() { s.cart = items })
}

func (s *Session) remoteFavorites(items []product.Product) {
	s.replace("favorites", func() { s.favorites = items })
}

func (s *Session) remoteOrders(orders []order.Order) {
	s.replace("orders", func() { s.orders = orders })
}

func (s *Session) replace(source string, set func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	set()
	if s.awaiting != nil {
		delete(s.awaiting, source)
		if len(s.awaiting) == 0 {
			s.awaiting = nil
			close(s.loaded)
		}
	}
	s.mu.Unlock()
	s.publish()
}

// WaitLoaded blocks until the first remote cart, favorites and orders have
// been applied. It returns ErrSessionClosed if the session closes first.
func (s *Session) WaitLoaded(ctx context.Context) error {
	select {
	case <-s.loaded:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe calls fn with the current state and after every change until
// the returned function is called.
func (s *Session) Subscribe(fn func(State)) func() {
	s.notifyMu.Lock()
	s.subMu.Lock()
	key := s.next
	s.next++
	s.subs[key] = fn
	s.subMu.Unlock()
	fn(s.State())
	s.notifyMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, key)
		s.subMu.Unlock()
	}
}

func (s *Session) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	st := s.State()
	for _, fn := range subs {
		fn(st)
	}
}

// Flush waits for pushes already made to be attempted.
func (s *Session) Flush() {
	s.mirror.Wait()
}

// Close stops the mirror and drops local state. Pending pushes still run.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.mirror.Close()

	s.mu.Lock()
	s.cart = []cart.Item{}
	s.favorites = []product.Product{}
	s.orders = []order.Order{}
	s.mu.Unlock()

	s.subMu.Lock()
	s.subs = make(map[int]func(State))
	s.subMu.Unlock()
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
