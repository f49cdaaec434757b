package query

import (
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/user"
)

// ProductFilter narrows a product listing. Zero value lists everything.
type ProductFilter struct {
	// Search matches the title or the category name, case-insensitively.
	Search string
	// Category is a category name or its slug ("home-decor").
	Category string
}

// UserWithOrders is one row of the admin users view.
type UserWithOrders struct {
	user.Profile
	Orders []order.Order `json:"orders"`
}
