package cart

import (
	"errors"

	"github.com/example/storefront-sync/internal/domain/product"
)

// Collection holds one cart document per identity, keyed by uid.
const Collection = "carts"

var (
	ErrInvalidProduct = errors.New("product id is required")
	ErrUnknownAction  = errors.New("unknown cart action")
)

// Item is a cart line. Product is a copy taken when the line was added, so
// later catalog edits do not change it.
type Item struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// LineTotal is the discounted unit price times quantity.
func (i Item) LineTotal() float64 {
	return i.Product.UnitPrice() * float64(i.Quantity)
}

// Document is the stored cart.
type Document struct {
	Items []Item `json:"items"`
}

// Subtotal sums the line totals.
func Subtotal(items []Item) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal()
	}
	return sum
}

// Count is the number of units across all lines.
func Count(items []Item) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Find returns the index of the line holding productID, or -1.
func Find(items []Item, productID string) int {
	for i, item := range items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}
