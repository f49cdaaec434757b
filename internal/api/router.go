package api

import (
	"net/http"

	"github.com/example/storefront-sync/internal/api/middleware"
	"github.com/example/storefront-sync/internal/auth"
)

// Server bundles the handler groups the router exposes.
type Server struct {
	Handlers   *Handlers
	Auth       *AuthHandlers
	Categories *CategoryHandlers
	Admin      *AdminHandlers
	Mail       *MailHandlers
	JWT        *auth.JWTService
	Admins     *auth.AllowList
	// WebDir, when set, is served at /.
	WebDir     string
}

func NewRouter(s Server) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.AuthMiddleware(s.JWT)
	optionalAuth := middleware.OptionalAuthMiddleware(s.JWT)
	requireAdmin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(s.Admins)(h))
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	// Static files (web UI)
	if s.WebDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.WebDir)))
	}

	// Catalog
	mux.HandleFunc("GET /api/products", s.Handlers.GetProducts)
	mux.HandleFunc("GET /api/products/{id}", s.Handlers.GetProduct)
	mux.HandleFunc("GET /api/categories", s.Categories.ListCategories)
	mux.HandleFunc("GET /api/categories/{key}", s.Categories.GetCategory)
	mux.HandleFunc("GET /api/categories/{key}/products", s.Categories.GetProductsByCategory)
	mux.HandleFunc("GET /api/collections", s.Categories.ListCollections)
	mux.HandleFunc("GET /api/colors", s.Categories.ListColors)
	mux.HandleFunc("GET /api/subcategories", s.Categories.ListSubCategories)
	mux.HandleFunc("GET /api/store-locations", s.Handlers.GetStoreLocations)

	// Email
	mux.HandleFunc("POST /api/send-mail", s.Mail.SendMail)

	// Auth
	mux.HandleFunc("POST /api/auth/signup", s.Auth.SignUp)
	mux.HandleFunc("POST /api/auth/signin", s.Auth.SignIn)
	mux.HandleFunc("POST /api/auth/federated", s.Auth.SignInFederated)
	mux.HandleFunc("POST /api/auth/refresh", s.Auth.Refresh)
	mux.Handle("POST /api/auth/signout", optionalAuth(http.HandlerFunc(s.Auth.SignOut)))
	mux.Handle("GET /api/me", authed(s.Auth.Me))

	// Cart
	mux.Handle("GET /api/cart", authed(s.Handlers.GetCart))
	mux.Handle("DELETE /api/cart", authed(s.Handlers.ClearCart))
	mux.Handle("POST /api/cart/items", authed(s.Handlers.AddToCart))
	mux.Handle("PUT /api/cart/items/{id}", authed(s.Handlers.UpdateCartItem))
	mux.Handle("DELETE /api/cart/items/{id}", authed(s.Handlers.RemoveFromCart))

	// Favorites
	mux.Handle("GET /api/favorites", authed(s.Handlers.GetFavorites))
	mux.Handle("POST /api/favorites", authed(s.Handlers.AddToFavorites))
	mux.Handle("DELETE /api/favorites/{id}", authed(s.Handlers.RemoveFromFavorites))

	// Orders
	mux.Handle("GET /api/orders", authed(s.Handlers.GetOrders))
	mux.Handle("GET /api/orders/{id}", authed(s.Handlers.GetOrder))
	mux.Handle("POST /api/checkout", authed(s.Handlers.Checkout))
	mux.Handle("GET /api/stream", authed(s.Handlers.Stream))

	// Admin
	mux.Handle("POST /api/admin/products", requireAdmin(s.Admin.CreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", requireAdmin(s.Admin.UpdateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", requireAdmin(s.Admin.DeleteProduct))
	mux.Handle("GET /api/admin/products/export", requireAdmin(s.Admin.ExportProducts))
	mux.Handle("POST /api/admin/uploads", requireAdmin(s.Admin.UploadImages))
	mux.Handle("POST /api/admin/colors", requireAdmin(s.Categories.AddColor))
	mux.Handle("DELETE /api/admin/colors/{id}", requireAdmin(s.Categories.DeleteColor))
	mux.Handle("POST /api/admin/subcategories", requireAdmin(s.Categories.AddSubCategory))
	mux.Handle("DELETE /api/admin/subcategories/{id}", requireAdmin(s.Categories.DeleteSubCategory))
	mux.Handle("PUT /api/admin/categories", requireAdmin(s.Categories.SaveCategory))
	mux.Handle("PUT /api/admin/collections", requireAdmin(s.Categories.SaveCollection))
	mux.Handle("GET /api/admin/users", requireAdmin(s.Admin.ListUsers))
	mux.Handle("GET /api/admin/orders", requireAdmin(s.Admin.ListOrders))

	return middleware.Logging(mux)
}
