package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/email"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
)

// Event is the envelope written to the orders topic.
type Event struct {
	EventType  string          `json:"event_type"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Mailer sends a confirmation; *email.Service satisfies it.
type Mailer interface {
	SendOrderConfirmation(c email.OrderConfirmation) error
}

// Handler turns placed orders into confirmation emails, whether they arrive
// as topic events or as stream records of the orders collection.
type Handler struct {
	mailer Mailer
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer) *Handler {
	return &Handler{mailer: mailer}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	// Only OrderPlaced triggers mail
	if event.EventType != order.EventOrderPlaced {
		return nil
	}

	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
	}
	return h.Send(e)
}

// HandleSnapshot sends a confirmation for a newly inserted order document.
// Documents from other collections are ignored.
func (h *Handler) HandleSnapshot(snap *store.Snapshot) error {
	if snap == nil || snap.Collection != order.Collection {
		return nil
	}
	o, err := order.Decode(*snap)
	if err != nil {
		return fmt.Errorf("failed to decode order %s: %w", snap.ID, err)
	}

	name := o.Contact.FullName
	to := o.Email
	if to == "" {
		to = o.Contact.Email
	}
	return h.Send(order.OrderPlaced{
		OrderID:      o.ID,
		To:           to,
		CustomerName: name,
		Order:        *o,
		PlacedAt:     o.Placed(),
	})
}

// Send mails the confirmation for e.
func (h *Handler) Send(e order.OrderPlaced) error {
	log := logger.Component("Notifier").WithField("order_id", e.OrderID)
	if e.To == "" {
		log.Warn("order has no recipient, skipping")
		return nil
	}

	o := e.Order
	err := h.mailer.SendOrderConfirmation(email.OrderConfirmation{
		To:           e.To,
		CustomerName: e.CustomerName,
		IsOrder:      true,
		Order:        &o,
	})
	if err != nil {
		log.WithError(err).WithField("to", e.To).Error("failed to send confirmation email")
		return err
	}

	log.WithField("to", e.To).Info("order confirmation email sent")
	return nil
}

// NotifyOrderPlaced sends the email in-process.
func (h *Handler) NotifyOrderPlaced(ctx context.Context, e order.OrderPlaced) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.Send(e)
}
