package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/favorites"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
)

// pushTimeout bounds a single remote write.
const pushTimeout = 10 * time.Second

// Handlers receive remote state. Each call carries the complete current
// value, never a delta. Calls for one Mirror are made from its own
// goroutines and stop once Close returns.
type Handlers struct {
	Cart      func([]cart.Item)
	Favorites func([]product.Product)
	Orders    func([]order.Order)
}

// Mirror keeps one identity's cart, favorites and orders in step with the
// document store. It reads all three and writes only the first two.
type Mirror struct {
	store    store.DocumentStore
	identity identity.Identity
	handlers Handlers
	log      *logrus.Entry

	cancel  context.CancelFunc
	streams sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	pending map[string]any
	order   []string
	busy    bool
	idle    *sync.Cond

	// collections with a local write queued or in flight
	dirty map[string]bool
}

// Open starts the subscriptions for id. The first snapshot of each source
// is delivered as soon as it has been read.
func Open(ctx context.Context, s store.DocumentStore, id identity.Identity, h Handlers) *Mirror {
	ctx, cancel := context.WithCancel(ctx)
	m := &Mirror{
		store:    s,
		identity: id,
		handlers: h,
		log:      logger.Component("Mirror").WithField("uid", id.UID),
		cancel:   cancel,
		pending:  make(map[string]any),
		dirty:    make(map[string]bool),
	}
	m.idle = sync.NewCond(&m.mu)

	cartStream := store.WatchDocument(ctx, s, cart.Collection, id.UID)
	favStream := store.WatchDocument(ctx, s, favorites.Collection, id.UID)
	orderStream := store.WatchQuery(ctx, s, order.Collection, order.ByEmail(id.Email))

	m.streams.Add(3)
	go m.run(cartStream.C, m.applyCart)
	go m.run(favStream.C, m.applyFavorites)
	go m.runQuery(orderStream.C)
	return m
}

// Identity is the identity the mirror was opened for.
func (m *Mirror) Identity() identity.Identity {
	return m.identity
}

func (m *Mirror) run(c <-chan store.Snapshot, apply func(store.Snapshot)) {
	defer m.streams.Done()
	for snap := range c {
		apply(snap)
	}
}

func (m *Mirror) runQuery(c <-chan []store.Snapshot) {
	defer m.streams.Done()
	for snaps := range c {
		orders, err := order.DecodeAll(snaps)
		if err != nil {
			m.log.WithError(err).Warn("failed to decode orders")
			continue
		}
		if fn := m.handlers.Orders; fn != nil && m.live() {
			fn(orders)
		}
	}
}

func (m *Mirror) applyCart(snap store.Snapshot) {
	if m.writing(cart.Collection) {
		return
	}
	var doc cart.Document
	if snap.Exists {
		if err := snap.DataTo(&doc); err != nil {
			m.log.WithError(err).Warn("failed to decode cart")
			return
		}
	}
	if doc.Items == nil {
		doc.Items = []cart.Item{}
	}
	if fn := m.handlers.Cart; fn != nil && m.live() {
		fn(doc.Items)
	}
}

func (m *Mirror) applyFavorites(snap store.Snapshot) {
	if m.writing(favorites.Collection) {
		return
	}
	var doc favorites.Document
	if snap.Exists {
		if err := snap.DataTo(&doc); err != nil {
			m.log.WithError(err).Warn("failed to decode favorites")
			return
		}
	}
	if doc.Items == nil {
		doc.Items = []product.Product{}
	}
	if fn := m.handlers.Favorites; fn != nil && m.live() {
		fn(doc.Items)
	}
}

// writing reports whether a local write to collection is pending. Snapshots
// read meanwhile predate it and would roll local state back.
func (m *Mirror) writing(collection string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty[collection]
}

func (m *Mirror) live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// PushCart merge-writes items as the whole cart. It returns immediately.
func (m *Mirror) PushCart(items []cart.Item) {
	if items == nil {
		items = []cart.Item{}
	}
	m.enqueue(cart.Collection, cart.Document{Items: items})
}

// PushFavorites merge-writes items as the whole favorites set. It returns
// immediately.
func (m *Mirror) PushFavorites(items []product.Product) {
	if items == nil {
		items = []product.Product{}
	}
	m.enqueue(favorites.Collection, favorites.Document{Items: items})
}

// enqueue schedules a write. Writes to the same document are applied in
// order; a write not yet started is replaced by a newer one.
func (m *Mirror) enqueue(collection string, doc any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.log.WithField("collection", collection).Debug("push after close dropped")
		return
	}
	if _, queued := m.pending[collection]; !queued {
		m.order = append(m.order, collection)
	}
	m.pending[collection] = doc
	m.dirty[collection] = true
	if !m.busy {
		m.busy = true
		go m.drain()
	}
}

func (m *Mirror) drain() {
	for {
		m.mu.Lock()
		if len(m.order) == 0 {
			m.busy = false
			m.idle.Broadcast()
			m.mu.Unlock()
			return
		}
		collection := m.order[0]
		m.order = m.order[1:]
		doc := m.pending[collection]
		delete(m.pending, collection)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		err := m.store.Merge(ctx, collection, m.identity.UID, doc)
		cancel()
		if err != nil {
			m.log.WithError(err).WithField("collection", collection).Error("push failed")
		}

		m.mu.Lock()
		if _, again := m.pending[collection]; !again {
			delete(m.dirty, collection)
		}
		m.mu.Unlock()
	}
}

// Wait blocks until every scheduled push has been attempted.
func (m *Mirror) Wait() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.busy {
		m.idle.Wait()
	}
}

// Close stops the subscriptions. Handlers are not called after Close
// returns. Pushes already scheduled still run to completion.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.streams.Wait()
}
