package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
)

// ChangeRelay shares document change signals between processes that use
// the same document database. Local writes are published to a topic; changes
// read back from the topic are delivered to the local feed unless they
// originated here.
type ChangeRelay struct {
	feed      *store.Feed
	publisher Publisher
	timeout   time.Duration
}

func NewChangeRelay(feed *store.Feed, publisher Publisher) *ChangeRelay {
	return &ChangeRelay{feed: feed, publisher: publisher, timeout: 5 * time.Second}
}

// Start forwards every local change to the topic. Publishing happens off the
// writer's goroutine; failures are logged.
func (r *ChangeRelay) Start() {
	log := logger.Component("ChangeRelay")
	r.feed.OnPublish(func(c store.Change) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if err := r.publisher.Publish(ctx, c.Collection+"/"+c.ID, c); err != nil {
				log.WithError(err).WithField("path", c.Collection+"/"+c.ID).Warn("failed to relay change")
			}
		}()
	})
}

// Handle is a MessageHandler delivering relayed changes to the feed.
func (r *ChangeRelay) Handle(ctx context.Context, key, value []byte) error {
	var c store.Change
	if err := json.Unmarshal(value, &c); err != nil {
		return fmt.Errorf("failed to decode change: %w", err)
	}
	if c.Collection == "" || c.ID == "" {
		return fmt.Errorf("change %q is missing its path", key)
	}
	r.feed.Deliver(c)
	return nil
}
