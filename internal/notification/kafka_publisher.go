package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/infrastructure/kafka"
)

// KafkaPublisher hands placed orders to the notifier service.
type KafkaPublisher struct {
	publisher kafka.Publisher
}

func NewKafkaPublisher(publisher kafka.Publisher) *KafkaPublisher {
	return &KafkaPublisher{publisher: publisher}
}

func (p *KafkaPublisher) NotifyOrderPlaced(ctx context.Context, e order.OrderPlaced) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, e.OrderID, Event{
		EventType:  order.EventOrderPlaced,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	})
}
