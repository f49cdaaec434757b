package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/domain/user"
	"github.com/example/storefront-sync/internal/logger"
)

// Handler answers catalog and admin reads.
type Handler struct {
	products   *product.Service
	categories *category.Service
	orders     *order.Service
	users      *user.Service
}

func NewHandler(
	products *product.Service,
	categories *category.Service,
	orders *order.Service,
	users *user.Service,
) *Handler {
	return &Handler{
		products:   products,
		categories: categories,
		orders:     orders,
		users:      users,
	}
}

// Products
func (h *Handler) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	return h.products.Get(ctx, id)
}

func (h *Handler) ListProducts(ctx context.Context, f ProductFilter) ([]product.Product, error) {
	all, err := h.products.List(ctx)
	if err != nil {
		logger.Component("Query").WithError(err).Error("failed to list products")
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	cat := strings.TrimSpace(f.Category)

	products := make([]product.Product, 0, len(all))
	for _, p := range all {
		if cat != "" && !categoryMatches(p.Category.Name, cat) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Category.Name), search) {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Slug turns a category name into its URL form.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func categoryMatches(name, want string) bool {
	return strings.EqualFold(name, want) || Slug(name) == strings.ToLower(want)
}

// Categories
func (h *Handler) ListCategories(ctx context.Context) ([]category.Category, error) {
	return h.categories.ListCategories(ctx)
}

func (h *Handler) ListCollections(ctx context.Context) ([]category.Category, error) {
	return h.categories.ListCollections(ctx)
}

func (h *Handler) ListColors(ctx context.Context) ([]product.Color, error) {
	return h.categories.ListColors(ctx)
}

func (h *Handler) ListSubCategories(ctx context.Context) ([]product.SubCategory, error) {
	return h.categories.ListSubCategories(ctx)
}

// Orders
func (h *Handler) ListOrdersByEmail(ctx context.Context, email string) ([]order.Order, error) {
	return h.orders.ListByEmail(ctx, email)
}

// ListOrders returns every order, newest first.
func (h *Handler) ListOrders(ctx context.Context) ([]order.Order, error) {
	return h.orders.List(ctx)
}

// GetOrder returns the order when viewer owns it or isAdmin is set.
// Someone else's order reads as not found.
func (h *Handler) GetOrder(ctx context.Context, id, viewer string, isAdmin bool) (*order.Order, error) {
	o, err := h.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !strings.EqualFold(o.Email, viewer) {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// UsersWithOrders lists every profile with the orders placed under its
// email, newest first.
func (h *Handler) UsersWithOrders(ctx context.Context) ([]UserWithOrders, error) {
	profiles, err := h.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	orders, err := h.orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	byEmail := make(map[string][]order.Order)
	for _, o := range orders {
		key := strings.ToLower(o.Email)
		byEmail[key] = append(byEmail[key], o)
	}

	rows := make([]UserWithOrders, 0, len(profiles))
	for _, p := range profiles {
		userOrders := byEmail[strings.ToLower(p.Email)]
		if userOrders == nil {
			userOrders = []order.Order{}
		}
		rows = append(rows, UserWithOrders{Profile: p, Orders: userOrders})
	}
	return rows, nil
}
