package cart

import (
	"fmt"

	"github.com/example/storefront-sync/internal/domain/product"
)

const (
	ActionItemAdded       = "ItemAddedToCart"
	ActionQuantityUpdated = "CartQuantityUpdated"
	ActionItemRemoved     = "ItemRemovedFromCart"
	ActionCartCleared     = "CartCleared"
)

// Action is one local cart mutation.
type Action struct {
	Type      string
	Product   product.Product // ItemAdded
	ProductID string          // QuantityUpdated, ItemRemoved
	Quantity  int             // QuantityUpdated
}

func AddItem(p product.Product) Action {
	return Action{Type: ActionItemAdded, Product: p}
}

func UpdateQuantity(productID string, quantity int) Action {
	return Action{Type: ActionQuantityUpdated, ProductID: productID, Quantity: quantity}
}

func RemoveItem(productID string) Action {
	return Action{Type: ActionItemRemoved, ProductID: productID}
}

func Clear() Action {
	return Action{Type: ActionCartCleared}
}

// Apply returns the cart after a. The input slice is never modified, so
// previously handed-out snapshots stay valid.
func Apply(items []Item, a Action) ([]Item, error) {
	switch a.Type {
	case ActionItemAdded:
		if a.Product.ID == "" {
			return items, ErrInvalidProduct
		}
		out := clone(items)
		if i := Find(out, a.Product.ID); i >= 0 {
			out[i].Quantity++
			return out, nil
		}
		return append(out, Item{Product: a.Product, Quantity: 1}), nil

	case ActionQuantityUpdated:
		i := Find(items, a.ProductID)
		if i < 0 {
			return items, nil
		}
		if a.Quantity < 1 {
			return removeAt(items, i), nil
		}
		out := clone(items)
		out[i].Quantity = a.Quantity
		return out, nil

	case ActionItemRemoved:
		i := Find(items, a.ProductID)
		if i < 0 {
			return items, nil
		}
		return removeAt(items, i), nil

	case ActionCartCleared:
		return []Item{}, nil
	}
	return items, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}

func clone(items []Item) []Item {
	out := make([]Item, len(items), len(items)+1)
	copy(out, items)
	return out
}

func removeAt(items []Item, i int) []Item {
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
