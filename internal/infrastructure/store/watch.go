package store

import (
	"context"
	"sync"

	"github.com/example/storefront-sync/internal/logger"
)

// Stream delivers full snapshots of a document or query until
// Unsubscribe is called. C always holds the most recent value only: a slow
// reader skips intermediate states, never the latest one. C is closed once
// the stream stops.
type Stream[T any] struct {
	C <-chan T

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops the stream and waits for its goroutine to exit.
func (s *Stream[T]) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the stream has stopped.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// WatchDocument streams snapshots of collection/id, starting with the
// current state.
func WatchDocument(ctx context.Context, s DocumentStore, collection, id string) *Stream[Snapshot] {
	return watch(ctx, s.Feed(), collection, id, func(ctx context.Context) (Snapshot, error) {
		return s.Get(ctx, collection, id)
	})
}

// WatchQuery streams the result of q over collection, starting with the
// current result and refreshing on any change in the collection.
func WatchQuery(ctx context.Context, s DocumentStore, collection string, q Query) *Stream[[]Snapshot] {
	return watch(ctx, s.Feed(), collection, "", func(ctx context.Context) ([]Snapshot, error) {
		return s.Query(ctx, collection, q)
	})
}

func watch[T any](parent context.Context, feed *Feed, collection, id string, fetch func(context.Context) (T, error)) *Stream[T] {
	ctx, cancel := context.WithCancel(parent)
	out := make(chan T, 1)
	st := &Stream[T]{C: out, cancel: cancel, done: make(chan struct{})}
	log := logger.Component("Watch").WithField("path", collection+"/"+id)

	// subscribe before the first read so no write is missed in between
	signal, unsubscribe := feed.Subscribe(collection, id)

	go func() {
		defer close(st.done)
		defer close(out)
		defer unsubscribe()

		refresh := func() {
			v, err := fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Warn("snapshot read failed")
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			offer(out, v)
		}

		refresh()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				refresh()
			}
		}
	}()

	return st
}

// offer replaces any unread value in ch with v.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
