package order

import (
	"context"
	"fmt"

	"github.com/example/storefront-sync/internal/infrastructure/store"
)

// Service reads and records orders.
type Service struct {
	store store.DocumentStore
}

func NewService(s store.DocumentStore) *Service {
	return &Service{store: s}
}

// Place stores o under a new id and returns it with the id set.
func (s *Service) Place(ctx context.Context, o Order) (*Order, error) {
	o.ID = ""
	id, err := s.store.Add(ctx, Collection, o)
	if err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}
	o.ID = id
	return &o, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, ErrOrderNotFound
	}
	snap, err := s.store.Get(ctx, Collection, orderID)
	if err != nil {
		return nil, err
	}
	return Decode(snap)
}

// ListByEmail returns the orders placed by email, newest first.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	snaps, err := s.store.Query(ctx, Collection, ByEmail(email))
	if err != nil {
		return nil, err
	}
	return DecodeAll(snaps)
}

// List returns every order, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	snaps, err := s.store.Query(ctx, Collection, store.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, err
	}
	return DecodeAll(snaps)
}
