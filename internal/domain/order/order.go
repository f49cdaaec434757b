package order

import (
	"errors"
	"time"

	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/infrastructure/store"
)

// Collection holds order records. Orders are written once and never
// modified.
const Collection = "orders"

// Method is the fulfilment choice made at checkout.
type Method string

const (
	MethodCOD         Method = "cod"
	MethodStorePickup Method = "store-pickup"
)

// Fees and rates applied at checkout.
const (
	TaxRate               = 0.08
	CODFee                = 5.0
	ShippingFee           = 10.0
	FreeShippingThreshold = 100.0
)

var ErrOrderNotFound = errors.New("order not found")

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m == MethodCOD || m == MethodStorePickup
}

// Label is the human readable method name.
func (m Method) Label() string {
	switch m {
	case MethodCOD:
		return "Cash on Delivery"
	case MethodStorePickup:
		return "Store Pickup"
	}
	return string(m)
}

type Contact struct {
	FullName string `json:"fullName" yaml:"fullName" validate:"required,min=2"`
	Email    string `json:"email" yaml:"email" validate:"required,email"`
	Phone    string `json:"phone" yaml:"phone" validate:"required,min=10"`
}

type Shipping struct {
	FullName   string `json:"fullName" yaml:"fullName" validate:"required,min=2"`
	Email      string `json:"email" yaml:"email" validate:"required,email"`
	Address    string `json:"address" yaml:"address" validate:"required,min=5"`
	City       string `json:"city" yaml:"city" validate:"required,min=2"`
	PostalCode string `json:"postalCode" yaml:"postalCode" validate:"required,min=3"`
	Country    string `json:"country" yaml:"country" validate:"required,min=2"`
}

// Totals are stored unrounded; Total is the exact sum of the other four.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shippingFee"`
	Tax         float64 `json:"tax"`
	CODFee      float64 `json:"codFee"`
	Total       float64 `json:"total"`
}

// ComputeTotals prices items for the given method.
func ComputeTotals(items []cart.Item, method Method) Totals {
	t := Totals{Subtotal: cart.Subtotal(items)}
	if method != MethodStorePickup && t.Subtotal <= FreeShippingThreshold {
		t.ShippingFee = ShippingFee
	}
	t.Tax = t.Subtotal * TaxRate
	if method == MethodCOD {
		t.CODFee = CODFee
	}
	t.Total = t.Subtotal + t.ShippingFee + t.Tax + t.CODFee
	return t
}

// Order is the immutable record of a completed checkout.
type Order struct {
	ID             string      `json:"id,omitempty"`
	CheckoutMethod Method      `json:"checkoutMethod"`
	Contact        Contact     `json:"contact"`
	Shipping       *Shipping   `json:"shipping,omitempty"`
	StoreLocation  string      `json:"storeLocation,omitempty"`
	PickupDate     string      `json:"pickupDate,omitempty"`
	CartItems      []cart.Item `json:"cartItems"`
	Totals
	// CreatedAt is milliseconds since the Unix epoch.
	CreatedAt int64 `json:"createdAt"`
	// Email is the owner's email, used to look up "my orders".
	Email string `json:"email"`
}

// Placed returns CreatedAt as a time.
func (o Order) Placed() time.Time {
	return time.UnixMilli(o.CreatedAt)
}

// ByEmail is the "my orders" query: newest first.
func ByEmail(email string) store.Query {
	return store.Query{Field: "email", Value: email, OrderBy: "createdAt", Desc: true}
}

// Decode reads a stored order; the document id wins over any stored id.
func Decode(snap store.Snapshot) (*Order, error) {
	var o Order
	if err := snap.DataTo(&o); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	o.ID = snap.ID
	return &o, nil
}

// DecodeAll decodes a query result, keeping its order.
func DecodeAll(snaps []store.Snapshot) ([]Order, error) {
	orders := make([]Order, 0, len(snaps))
	for _, snap := range snaps {
		o, err := Decode(snap)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}
