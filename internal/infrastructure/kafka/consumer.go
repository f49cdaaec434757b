package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/example/storefront-sync/internal/logger"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader *kafka.Reader
}

// ConsumerOption adjusts the reader configuration.
type ConsumerOption func(*kafka.ReaderConfig)

// FromLatest makes a group without committed offsets start at the end of
// the topic instead of replaying it.
func FromLatest() ConsumerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.StartOffset = kafka.LastOffset
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,    // change signals are tiny
		MaxBytes: 10e6, // 10MB
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Consumer{reader: kafka.NewReader(cfg)}
}

// Consume reads messages until ctx is done. Handler errors are logged and
// the message is committed anyway; nothing is redelivered.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	log := logger.Component("KafkaConsumer").WithField("topic", c.reader.Config().Topic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithError(err).Warn("error reading message")
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				log.WithError(err).WithField("key", string(msg.Key)).Warn("error handling message")
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
