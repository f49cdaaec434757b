package store

import (
	"sync"

	"github.com/google/uuid"
)

// Change identifies a written document. Origin names the feed that
// produced the write so relays can drop their own echoes.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Origin     string `json:"origin"`
}

// Feed fans document changes out to subscribers in this process and to
// registered forwarders (cross-process relays).
type Feed struct {
	origin string

	mu         sync.Mutex
	next       uint64
	subs       map[uint64]*feedSub
	forwarders []func(Change)
}

type feedSub struct {
	collection string
	id         string // empty matches every document in the collection
	signal     chan struct{}
}

func NewFeed() *Feed {
	return &Feed{
		origin: uuid.New().String(),
		subs:   make(map[uint64]*feedSub),
	}
}

// Origin identifies this feed in relayed changes.
func (f *Feed) Origin() string {
	return f.origin
}

// Publish records a local write.
func (f *Feed) Publish(collection, id string) {
	c := Change{Collection: collection, ID: id, Origin: f.origin}
	f.notify(c)

	f.mu.Lock()
	forwarders := append([]func(Change){}, f.forwarders...)
	f.mu.Unlock()
	for _, fn := range forwarders {
		fn(c)
	}
}

// Deliver records a change that happened elsewhere. Changes carrying this
// feed's own origin are ignored and false is returned.
func (f *Feed) Deliver(c Change) bool {
	if c.Origin == f.origin {
		return false
	}
	f.notify(c)
	return true
}

// OnPublish registers fn to receive every local change.
func (f *Feed) OnPublish(fn func(Change)) {
	f.mu.Lock()
	f.forwarders = append(f.forwarders, fn)
	f.mu.Unlock()
}

// Subscribe returns a channel that is signalled when a matching document
// changes. Signals coalesce: one pending signal stands for any number of
// changes. An empty id watches the whole collection.
func (f *Feed) Subscribe(collection, id string) (<-chan struct{}, func()) {
	sub := &feedSub{collection: collection, id: id, signal: make(chan struct{}, 1)}

	f.mu.Lock()
	key := f.next
	f.next++
	f.subs[key] = sub
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, key)
		f.mu.Unlock()
	}
	return sub.signal, cancel
}

func (f *Feed) notify(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.collection != c.Collection {
			continue
		}
		if sub.id != "" && sub.id != c.ID {
			continue
		}
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}
