package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/favorites"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/imageupload"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/pricing"
	"github.com/example/storefront-sync/internal/session"
	"github.com/example/storefront-sync/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ValidationResponse is the body of a 400 caused by invalid input.
type ValidationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// respondErr maps a domain error to its status code.
func respondErr(w http.ResponseWriter, err error) {
	if verr, ok := validation.AsError(err); ok {
		respondJSON(w, http.StatusBadRequest, ValidationResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Component("API").WithError(err).Error("request failed")
		message = publicMessage(err, status)
	}
	respondJSONError(w, message, status)
}

// publicErrors may be shown to clients as-is; wrapped detail is not.
var publicErrors = []error{
	imageupload.ErrUploadFailed,
	imageupload.ErrMissingAPIKey,
	identity.ErrProviderDisabled,
	command.ErrNoUploader,
}

func publicMessage(err error, status int) string {
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return http.StatusText(status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, category.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, favorites.ErrInvalidProduct),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, category.ErrInvalidName),
		errors.Is(err, pricing.ErrInvalidDiscount),
		errors.Is(err, pricing.ErrDiscountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, imageupload.ErrUploadFailed):
		return http.StatusBadGateway
	case errors.Is(err, identity.ErrProviderDisabled),
		errors.Is(err, imageupload.ErrMissingAPIKey),
		errors.Is(err, command.ErrNoUploader):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// emptyIfNil keeps list responses as [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
