package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/storefront-sync/internal/api/middleware"
	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/query"
	"github.com/example/storefront-sync/internal/session"
)

// loadTimeout bounds the wait for a new session's first remote state.
const loadTimeout = 5 * time.Second

// Handlers serves the catalog and the signed-in shopper's session.
type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	checkout     *checkout.Service
	sessions     *session.Registry
	admins       *auth.AllowList
	// emailWait is how long checkout waits for the confirmation outcome.
	emailWait time.Duration
}

func NewHandlers(
	cmdHandler *command.Handler,
	queryHandler *query.Handler,
	checkoutSvc *checkout.Service,
	sessions *session.Registry,
	admins *auth.AllowList,
	emailWait time.Duration,
) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		checkout:     checkoutSvc,
		sessions:     sessions,
		admins:       admins,
		emailWait:    emailWait,
	}
}

// session returns the live session of the request's identity, opening it
// on first use.
func (h *Handlers) session(r *http.Request) (*session.Session, error) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		return nil, identity.ErrUnauthenticated
	}
	sess, err := h.sessions.Acquire(*id)
	if err != nil {
		return nil, err
	}
	// A request racing the first remote read would act on an empty cart.
	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()
	if err := sess.WaitLoaded(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return sess, nil
}

func (h *Handlers) isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	return ok && h.admins.IsAdmin(claims.Email)
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.queryHandler.ListProducts(r.Context(), query.ProductFilter{
		Search:   q.Get("q"),
		Category: q.Get("category"),
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryHandler.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) GetStoreLocations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.checkout.StoreLocations(r.Context()))
}

// Cart Handlers

// CartResponse is the shopper's cart with its derived figures.
type CartResponse struct {
	Items    []cart.Item `json:"items"`
	Subtotal float64     `json:"subtotal"`
	Count    int         `json:"count"`
}

func cartResponse(items []cart.Item) CartResponse {
	return CartResponse{Items: items, Subtotal: cart.Subtotal(items), Count: cart.Count(items)}
}

// ProductRequest names a catalog product by id.
type ProductRequest struct {
	ProductID string `json:"productId"`
}

// QuantityRequest sets a cart line's quantity. Below 1 removes the line.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart()))
}

// loadProduct resolves the body's product id to the catalog entry, so the
// stored line carries the catalog's copy.
func (h *Handlers) loadProduct(w http.ResponseWriter, r *http.Request) (*product.Product, bool) {
	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	if req.ProductID == "" {
		respondJSONError(w, "productId is required", http.StatusBadRequest)
		return nil, false
	}
	p, err := h.queryHandler.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		respondErr(w, err)
		return nil, false
	}
	return p, true
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	if err := sess.AddToCart(*p); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart()))
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var req QuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.UpdateQuantity(r.PathValue("id"), req.Quantity); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart()))
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := sess.RemoveFromCart(r.PathValue("id")); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart()))
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := sess.ClearCart(); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart()))
}

// Favorites Handlers

func (h *Handlers) GetFavorites(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Favorites())
}

func (h *Handlers) AddToFavorites(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	if err := sess.AddToFavorites(*p); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Favorites())
}

func (h *Handlers) RemoveFromFavorites(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := sess.RemoveFromFavorites(r.PathValue("id")); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Favorites())
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondErr(w, identity.ErrUnauthenticated)
		return
	}
	orders, err := h.queryHandler.ListOrdersByEmail(r.Context(), id.Email)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondErr(w, identity.ErrUnauthenticated)
		return
	}
	o, err := h.queryHandler.GetOrder(r.Context(), r.PathValue("id"), id.Email, h.isAdmin(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Email outcomes reported by checkout.
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailPending = "pending"
	EmailSkipped = "skipped"
)

// CheckoutResponse is a placed order and what is known about its
// confirmation email.
type CheckoutResponse struct {
	Order   *order.Order `json:"order"`
	Email   string       `json:"email"`
	Warning string       `json:"warning,omitempty"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var req checkout.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkout.Place(r.Context(), sess, req)
	if err != nil {
		respondErr(w, err)
		return
	}

	resp := CheckoutResponse{Order: result.Order, Email: EmailPending}
	if h.emailWait > 0 {
		timer := time.NewTimer(h.emailWait)
		defer timer.Stop()
		select {
		case err, ok := <-result.Email:
			switch {
			case !ok:
				resp.Email = EmailSkipped
			case err != nil:
				resp.Email = EmailFailed
				resp.Warning = "Order placed, but the confirmation email could not be sent."
			default:
				resp.Email = EmailSent
			}
		case <-timer.C:
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}
