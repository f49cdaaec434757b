package favorites

import (
	"errors"

	"github.com/example/storefront-sync/internal/domain/product"
)

// Collection holds one favorites document per identity, keyed by uid.
const Collection = "favorites"

var ErrInvalidProduct = errors.New("product id is required")

// Document is the stored favorites set. Membership is by product id.
type Document struct {
	Items []product.Product `json:"items"`
}

// Contains reports whether productID is a favorite.
func Contains(items []product.Product, productID string) bool {
	for _, p := range items {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// Add returns the set with p appended. A product already present leaves the
// set unchanged and changed is false.
func Add(items []product.Product, p product.Product) (out []product.Product, changed bool, err error) {
	if p.ID == "" {
		return items, false, ErrInvalidProduct
	}
	if Contains(items, p.ID) {
		return items, false, nil
	}
	out = make([]product.Product, 0, len(items)+1)
	out = append(out, items...)
	return append(out, p), true, nil
}

// Remove returns the set without productID; changed is false when it was
// not there.
func Remove(items []product.Product, productID string) (out []product.Product, changed bool) {
	if !Contains(items, productID) {
		return items, false
	}
	out = make([]product.Product, 0, len(items))
	for _, p := range items {
		if p.ID != productID {
			out = append(out, p)
		}
	}
	return out, true
}
