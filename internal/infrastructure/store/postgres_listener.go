package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/storefront-sync/internal/logger"
)

// ListenPostgres relays NOTIFY payloads from other processes into feed
// until ctx is done.
func ListenPostgres(ctx context.Context, connStr string, feed *Feed) error {
	log := logger.Component("PostgresListener")

	listener := pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).Warn("listener event")
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ChangeChannel, err)
	}
	log.Infof("listening on %s", ChangeChannel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-listener.Notify:
			// nil after a reconnect; anything may have changed meanwhile
			if n == nil {
				continue
			}
			HandleNotification(feed, n.Extra)
		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}

// HandleNotification decodes one NOTIFY payload and delivers it.
func HandleNotification(feed *Feed, payload string) bool {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		logger.Component("PostgresListener").WithError(err).Warn("bad change payload")
		return false
	}
	return feed.Deliver(c)
}
