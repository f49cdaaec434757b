package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-sync/internal/infrastructure/store"
)

type recordingPublisher struct {
	mu    sync.Mutex
	keys  []string
	items []any
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.items = append(p.items, event)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// ============================================
// Forwarding
// ============================================

func TestChangeRelay_ForwardsLocalWrites(t *testing.T) {
	feed := store.NewFeed()
	pub := &recordingPublisher{}
	NewChangeRelay(feed, pub).Start()

	feed.Publish("carts", "u1")

	assert.Eventually(t, func() bool {
		return len(pub.published()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "carts/u1", pub.published()[0])
}

func TestChangeRelay_PublishErrorIsNotFatal(t *testing.T) {
	feed := store.NewFeed()
	pub := &recordingPublisher{err: errors.New("broker down")}
	NewChangeRelay(feed, pub).Start()

	feed.Publish("carts", "u1")
	feed.Publish("carts", "u2")

	assert.Eventually(t, func() bool {
		return len(pub.published()) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestChangeRelay_DoesNotForwardRemoteChanges(t *testing.T) {
	feed := store.NewFeed()
	pub := &recordingPublisher{}
	relay := NewChangeRelay(feed, pub)
	relay.Start()

	value, err := json.Marshal(store.Change{Collection: "carts", ID: "u1", Origin: "other"})
	require.NoError(t, err)
	require.NoError(t, relay.Handle(context.Background(), []byte("carts/u1"), value))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, pub.published())
}

// ============================================
// Handling
// ============================================

func TestChangeRelay_HandleDeliversRemoteChange(t *testing.T) {
	feed := store.NewFeed()
	relay := NewChangeRelay(feed, &recordingPublisher{})
	signal, cancel := feed.Subscribe("favorites", "u1")
	defer cancel()

	value, _ := json.Marshal(store.Change{Collection: "favorites", ID: "u1", Origin: "other"})
	require.NoError(t, relay.Handle(context.Background(), nil, value))

	select {
	case <-signal:
	default:
		t.Fatal("expected signal")
	}
}

func TestChangeRelay_HandleDropsOwnEcho(t *testing.T) {
	feed := store.NewFeed()
	relay := NewChangeRelay(feed, &recordingPublisher{})
	signal, cancel := feed.Subscribe("favorites", "u1")
	defer cancel()

	value, _ := json.Marshal(store.Change{Collection: "favorites", ID: "u1", Origin: feed.Origin()})
	require.NoError(t, relay.Handle(context.Background(), nil, value))

	select {
	case <-signal:
		t.Fatal("own echo must be dropped")
	default:
	}
}

func TestChangeRelay_HandleRejectsBadPayload(t *testing.T) {
	relay := NewChangeRelay(store.NewFeed(), &recordingPublisher{})

	assert.Error(t, relay.Handle(context.Background(), nil, []byte("not json")))
	assert.Error(t, relay.Handle(context.Background(), []byte("k"), []byte(`{"collection":"carts"}`)))
}
