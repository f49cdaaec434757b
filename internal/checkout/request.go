package checkout

import (
	"errors"

	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/validation"
)

// Request is the checkout form. Shipping is only accepted for cash on
// delivery; StoreLocation and PickupDate only for store pickup.
type Request struct {
	Method        order.Method    `json:"checkoutMethod" yaml:"checkoutMethod" validate:"required,oneof=cod store-pickup"`
	Contact       order.Contact   `json:"contact" yaml:"contact"`
	Shipping      *order.Shipping `json:"shipping,omitempty" yaml:"shipping"`
	StoreLocation string          `json:"storeLocation,omitempty" yaml:"storeLocation" validate:"required_if=Method store-pickup,excluded_if=Method cod"`
	PickupDate    string          `json:"pickupDate,omitempty" yaml:"pickupDate" validate:"required_if=Method store-pickup,excluded_if=Method cod"`
}

// Validate checks every field and reports all failures together as a
// *validation.Error.
func (r Request) Validate() error {
	fields := map[string]string{}

	if err := validation.Struct(r); err != nil {
		ve, ok := validation.AsError(err)
		if !ok {
			return err
		}
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}

	switch r.Method {
	case order.MethodCOD:
		if r.Shipping == nil {
			fields["shipping"] = "is required"
		}
	case order.MethodStorePickup:
		if r.Shipping != nil {
			fields["shipping"] = "is not allowed for this checkout method"
		}
	}

	if len(fields) > 0 {
		return &validation.Error{Fields: fields}
	}
	return nil
}

// IsValidation reports whether err is a form validation failure.
func IsValidation(err error) bool {
	var ve *validation.Error
	return errors.As(err, &ve)
}
