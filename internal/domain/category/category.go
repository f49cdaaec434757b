package category

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/validation"
)

const (
	ColorsCollection        = "colors"
	SubCategoriesCollection = "subCollections"
	CategoriesCollection    = "categories"
	CollectionsCollection   = "collections"
)

var (
	ErrNotFound    = errors.New("catalog entry not found")
	ErrInvalidName = errors.New("name is required")
	ErrInvalidSlug = errors.New("invalid slug format")
)

// slugRegex validates slug format (lowercase letters, numbers, hyphens)
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Category is a top-level grouping shown in navigation. Collections (seasonal
// or themed groupings) share the same shape.
type Category struct {
	ID          string `json:"id,omitempty" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
}

// Ref returns the reference products store for c.
func (c Category) Ref() product.Ref {
	return product.Ref{ID: c.ID, Name: c.Name}
}

// Service manages colors, sub-categories, categories and collections.
type Service struct {
	store store.DocumentStore
}

func NewService(s store.DocumentStore) *Service {
	return &Service{store: s}
}

// ============================================
// Colors
// ============================================

// AddColor stores a new color after trimming and validating its name.
func (s *Service) AddColor(ctx context.Context, c product.Color) (*product.Color, error) {
	c.ID = ""
	c.Name = strings.TrimSpace(c.Name)
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	id, err := s.store.Add(ctx, ColorsCollection, c)
	if err != nil {
		return nil, fmt.Errorf("failed to add color: %w", err)
	}
	c.ID = id
	return &c, nil
}

func (s *Service) ListColors(ctx context.Context) ([]product.Color, error) {
	var out []product.Color
	err := s.list(ctx, ColorsCollection, func(snap store.Snapshot) error {
		var c product.Color
		if err := snap.DataTo(&c); err != nil {
			return err
		}
		c.ID = snap.ID
		out = append(out, c)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *Service) DeleteColor(ctx context.Context, id string) error {
	return s.delete(ctx, ColorsCollection, id)
}

// ============================================
// Sub-categories
// ============================================

// AddSubCategory stores a new sub-category. The image URL is optional.
func (s *Service) AddSubCategory(ctx context.Context, sc product.SubCategory) (*product.SubCategory, error) {
	sc.ID = ""
	sc.Name = strings.TrimSpace(sc.Name)
	sc.Description = strings.TrimSpace(sc.Description)
	if err := validation.Struct(sc); err != nil {
		return nil, err
	}
	id, err := s.store.Add(ctx, SubCategoriesCollection, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to add sub-category: %w", err)
	}
	sc.ID = id
	return &sc, nil
}

func (s *Service) ListSubCategories(ctx context.Context) ([]product.SubCategory, error) {
	var out []product.SubCategory
	err := s.list(ctx, SubCategoriesCollection, func(snap store.Snapshot) error {
		var sc product.SubCategory
		if err := snap.DataTo(&sc); err != nil {
			return err
		}
		sc.ID = snap.ID
		out = append(out, sc)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *Service) DeleteSubCategory(ctx context.Context, id string) error {
	return s.delete(ctx, SubCategoriesCollection, id)
}

// ============================================
// Categories and collections
// ============================================

// SaveCategory upserts a category. A missing id is derived from the name.
func (s *Service) SaveCategory(ctx context.Context, c Category) (*Category, error) {
	return s.save(ctx, CategoriesCollection, c)
}

// SaveCollection upserts a collection. A missing id is derived from the name.
func (s *Service) SaveCollection(ctx context.Context, c Category) (*Category, error) {
	return s.save(ctx, CollectionsCollection, c)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.listCategories(ctx, CategoriesCollection)
}

func (s *Service) ListCollections(ctx context.Context) ([]Category, error) {
	return s.listCategories(ctx, CollectionsCollection)
}

// FindCategory looks a category up by id or, failing that, by name
// (case-insensitive), the way storefront URLs name them.
func (s *Service) FindCategory(ctx context.Context, key string) (*Category, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID == key {
			return &categories[i], nil
		}
	}
	for i := range categories {
		if strings.EqualFold(categories[i].Name, key) || generateSlug(categories[i].Name) == key {
			return &categories[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) save(ctx context.Context, collection string, c Category) (*Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, ErrInvalidName
	}
	if c.ID == "" {
		c.ID = generateSlug(c.Name)
	}
	if !slugRegex.MatchString(c.ID) {
		return nil, ErrInvalidSlug
	}
	if err := s.store.Set(ctx, collection, c.ID, c); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", collection, err)
	}
	return &c, nil
}

func (s *Service) listCategories(ctx context.Context, collection string) ([]Category, error) {
	var out []Category
	err := s.list(ctx, collection, func(snap store.Snapshot) error {
		var c Category
		if err := snap.DataTo(&c); err != nil {
			return err
		}
		c.ID = snap.ID
		out = append(out, c)
		return nil
	})
	return out, err
}

func (s *Service) list(ctx context.Context, collection string, fn func(store.Snapshot) error) error {
	snaps, err := s.store.List(ctx, collection)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if err := fn(snap); err != nil {
			return fmt.Errorf("failed to decode %s/%s: %w", collection, snap.ID, err)
		}
	}
	return nil
}

func (s *Service) delete(ctx context.Context, collection, id string) error {
	err := s.store.Delete(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidPath) {
		return ErrNotFound
	}
	return err
}

func generateSlug(name string) string {
	// Convert to lowercase
	slug := strings.ToLower(name)
	// Replace spaces and underscores with hyphens
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	// Remove any characters that aren't alphanumeric or hyphens
	slug = nonSlugChars.ReplaceAllString(slug, "")
	// Remove multiple consecutive hyphens
	slug = repeatedHyphens.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

var (
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9-]`)
	repeatedHyphens = regexp.MustCompile(`-+`)
)
