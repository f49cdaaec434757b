package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/pricing"
	"github.com/example/storefront-sync/internal/validation"
)

var ErrProductNotFound = errors.New("product not found")

// Draft is the admin entry for a new product. Price and discount are
// entered as text and checked before parsing.
type Draft struct {
	Title         string               `json:"title" yaml:"title" validate:"required,max=50"`
	Description   string               `json:"description" yaml:"description" validate:"required,max=500"`
	Price         validation.FormValue `json:"priceBeforeDiscount" yaml:"priceBeforeDiscount" validate:"required,money"`
	Discount      validation.FormValue `json:"discount" yaml:"discount" validate:"percent"`
	Tags          []string             `json:"tags" yaml:"tags" validate:"max=5,dive,max=20"`
	Category      Ref                  `json:"category" yaml:"category"`
	Collection    Ref                  `json:"collection" yaml:"collection"`
	Images        []string             `json:"images" yaml:"images" validate:"min=1,dive,required"`
	Colors        []Color              `json:"colors" yaml:"colors" validate:"min=1,dive"`
	SubCategories []SubCategory        `json:"subCategories" yaml:"subCategories" validate:"min=1,dive"`
	Quantity      *int                 `json:"quantity,omitempty" yaml:"quantity" validate:"omitempty,min=0"`
}

// Validate checks d and returns its parsed discount.
func (d Draft) Validate() (pricing.Discount, error) {
	if err := validation.Struct(d); err != nil {
		return 0, err
	}
	discount, err := pricing.ParseDiscount(string(d.Discount))
	if err != nil {
		return 0, validation.Field("discount", err.Error())
	}
	return discount, nil
}

// Update holds the fields an admin may edit on an existing product. Empty
// Images keeps the current images.
type Update struct {
	Title       string               `json:"title" validate:"required,max=50"`
	Description string               `json:"description" validate:"max=500"`
	Price       validation.FormValue `json:"priceBeforeDiscount" validate:"required,money"`
	Discount    validation.FormValue `json:"discount" validate:"percent"`
	Tags        []string             `json:"tags" validate:"max=5,dive,max=20"`
	Quantity    int                  `json:"quantity" validate:"min=0"`
	Images      []string             `json:"images" validate:"dive,required"`
}

type Service struct {
	store store.DocumentStore
}

func NewService(s store.DocumentStore) *Service {
	return &Service{store: s}
}

// Create validates d and stores a new product with zero ratings.
func (s *Service) Create(ctx context.Context, d Draft) (*Product, error) {
	d.Title = strings.TrimSpace(d.Title)
	discount, err := d.Validate()
	if err != nil {
		return nil, err
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	p := Product{
		Title:         d.Title,
		Description:   d.Description,
		Images:        d.Images,
		Colors:        d.Colors,
		Tags:          tags,
		Price:         d.Price.Float(),
		Discount:      discount,
		Category:      d.Category,
		Ratings:       0,
		Collection:    d.Collection,
		SubCategories: d.SubCategories,
		Quantity:      d.Quantity,
	}

	id, err := s.store.Add(ctx, Collection, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	p.ID = id
	return &p, nil
}

// Update applies u to the product with the given id.
func (s *Service) Update(ctx context.Context, productID string, u Update) (*Product, error) {
	if err := validation.Struct(u); err != nil {
		return nil, err
	}
	discount, err := pricing.ParseDiscount(string(u.Discount))
	if err != nil {
		return nil, validation.Field("discount", err.Error())
	}

	current, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	tags := u.Tags
	if tags == nil {
		tags = []string{}
	}
	images := current.Images
	if len(u.Images) > 0 {
		images = u.Images
	}
	quantity := u.Quantity

	patch := map[string]any{
		"title":               u.Title,
		"description":         u.Description,
		"priceBeforeDiscount": u.Price.Float(),
		"discount":            discount,
		"tags":                tags,
		"quantity":            quantity,
		"images":              images,
	}
	if err := s.store.Merge(ctx, Collection, productID, patch); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	current.Title = u.Title
	current.Description = u.Description
	current.Price = u.Price.Float()
	current.Discount = discount
	current.Tags = tags
	current.Quantity = &quantity
	current.Images = images
	return current, nil
}

func (s *Service) Delete(ctx context.Context, productID string) error {
	err := s.store.Delete(ctx, Collection, productID)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidPath) {
		return ErrProductNotFound
	}
	return err
}

func (s *Service) Get(ctx context.Context, productID string) (*Product, error) {
	if productID == "" {
		return nil, ErrProductNotFound
	}
	snap, err := s.store.Get(ctx, Collection, productID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, ErrProductNotFound
	}
	return Decode(snap)
}

// List returns every product in the catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	snaps, err := s.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(snaps))
	for _, snap := range snaps {
		p, err := Decode(snap)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

// Decode reads a stored product; the document id wins over any stored id.
func Decode(snap store.Snapshot) (*Product, error) {
	var p Product
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", snap.ID, err)
	}
	p.ID = snap.ID
	return &p, nil
}
