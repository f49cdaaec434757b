package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
)

// notifyTimeout bounds the confirmation email request.
const notifyTimeout = 30 * time.Second

var ErrEmptyCart = errors.New("cart is empty")

// Cart is the signed-in shopper's live cart; *session.Session satisfies it.
type Cart interface {
	Identity() identity.Identity
	Cart() []cart.Item
	ClearCart() error
}

// Notifier requests the confirmation email for a placed order.
type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, event order.OrderPlaced) error
}

// Result is a placed order. Email delivers the outcome of the confirmation
// request exactly once and is then closed; a failure there never undoes the
// order.
type Result struct {
	Order *order.Order
	Email <-chan error
}

// Service turns a validated form and the current cart into an order.
type Service struct {
	store    store.DocumentStore
	orders   *order.Service
	notifier Notifier
	now      func() time.Time
}

func NewService(s store.DocumentStore, notifier Notifier) *Service {
	return &Service{store: s, orders: order.NewService(s), notifier: notifier, now: time.Now}
}

// Quote prices the cart for method without placing anything.
func (s *Service) Quote(items []cart.Item, method order.Method) order.Totals {
	return order.ComputeTotals(items, method)
}

// Place validates req, stores the order, clears the cart and requests the
// confirmation email in the background. Nothing is written and the cart is
// left alone when validation fails.
func (s *Service) Place(ctx context.Context, c Cart, req Request) (*Result, error) {
	id := c.Identity()
	if id.UID == "" {
		return nil, identity.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	items := c.Cart()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	o := order.Order{
		CheckoutMethod: req.Method,
		Contact:        req.Contact,
		CartItems:      items,
		Totals:         order.ComputeTotals(items, req.Method),
		CreatedAt:      s.now().UnixMilli(),
		Email:          id.Email,
	}
	switch req.Method {
	case order.MethodCOD:
		shipping := *req.Shipping
		o.Shipping = &shipping
	case order.MethodStorePickup:
		o.StoreLocation = req.StoreLocation
		o.PickupDate = req.PickupDate
	}

	placed, err := s.orders.Place(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	log := logger.Component("Checkout").WithFields(logrus.Fields{
		"order_id": placed.ID,
		"uid":      id.UID,
		"total":    placed.Total,
	})
	log.Info("order placed")

	if err := c.ClearCart(); err != nil {
		log.WithError(err).Warn("failed to clear cart")
	}

	return &Result{Order: placed, Email: s.notify(id, *placed)}, nil
}

func (s *Service) notify(id identity.Identity, o order.Order) <-chan error {
	done := make(chan error, 1)
	if s.notifier == nil {
		close(done)
		return done
	}

	event := order.OrderPlaced{
		OrderID:      o.ID,
		To:           id.Email,
		CustomerName: id.DisplayName,
		Order:        o,
		PlacedAt:     o.Placed(),
	}
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		err := s.notifier.NotifyOrderPlaced(ctx, event)
		if err != nil {
			logger.Component("Checkout").WithError(err).WithField("order_id", o.ID).Warn("confirmation email failed")
		}
		done <- err
	}()
	return done
}
