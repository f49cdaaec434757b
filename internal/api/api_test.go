package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/domain/user"
	"github.com/example/storefront-sync/internal/email"
	"github.com/example/storefront-sync/internal/export"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/imageupload"
	"github.com/example/storefront-sync/internal/infrastructure/store/mocks"
	"github.com/example/storefront-sync/internal/notification"
	"github.com/example/storefront-sync/internal/query"
	"github.com/example/storefront-sync/internal/session"
)

const (
	testSecret = "test-secret-key-at-least-32-characters"
	adminEmail = "admin@example.com"
)

// fakeMailer records confirmations and can fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.OrderConfirmation
	err  error
}

func (m *fakeMailer) SendOrderConfirmation(c email.OrderConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, c)
	return nil
}

func (m *fakeMailer) Sent() []email.OrderConfirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.OrderConfirmation(nil), m.sent...)
}

type testServer struct {
	handler  http.Handler
	store    *mocks.MockDocumentStore
	sessions *session.Registry
	mailer   *fakeMailer
	uploads  *[]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := mocks.NewMockDocumentStore()

	var uploaded []string
	var uploadMu sync.Mutex
	imgHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		uploadMu.Lock()
		uploaded = append(uploaded, header.Filename)
		uploadMu.Unlock()
		fmt.Fprintf(w, `{"data":{"url":"https://i.ibb.co/%s"}}`, header.Filename)
	}))

	users := user.NewService(s)
	identities := identity.NewService(auth.NewPasswordProvider(s), nil, users)
	jwtService := auth.NewJWTService(testSecret, 15*time.Minute, 24*time.Hour)
	sessions := session.NewRegistry(ctx, s)
	admins := auth.NewAllowList([]string{adminEmail})
	mailer := &fakeMailer{}

	products := product.NewService(s)
	categories := category.NewService(s)
	cmd := command.NewHandler(products, categories, imageupload.NewClient(imgHost.URL, "test-key", nil))
	q := query.NewHandler(products, categories, order.NewService(s), users)
	checkoutSvc := checkout.NewService(s, notification.NewHandler(mailer))

	handler := NewRouter(Server{
		Handlers:   NewHandlers(cmd, q, checkoutSvc, sessions, admins, time.Second),
		Auth:       NewAuthHandlers(identities, users, jwtService, sessions, admins),
		Categories: NewCategoryHandlers(categories, cmd, q),
		Admin:      NewAdminHandlers(cmd, q),
		Mail:       NewMailHandlers(mailer),
		JWT:        jwtService,
		Admins:     admins,
	})

	t.Cleanup(func() {
		sessions.CloseAll()
		cancel()
		imgHost.Close()
	})
	return &testServer{handler: handler, store: s, sessions: sessions, mailer: mailer, uploads: &uploaded}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signUp(t *testing.T, emailAddr string) (string, AuthResponse) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", CredentialsRequest{Email: emailAddr, Password: "password123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, resp
}

func (ts *testServer) seedProduct(t *testing.T, id, title string, price float64) {
	t.Helper()
	require.NoError(t, ts.store.Set(context.Background(), product.Collection, id, product.Product{
		Title:    title,
		Price:    price,
		Category: product.Ref{Name: "Home Decor"},
	}))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// ============================================
// Auth Tests
// ============================================

func TestAPI_SignUpSignInAndMe(t *testing.T) {
	ts := newTestServer(t)
	_, resp := ts.signUp(t, "shopper@example.com")

	assert.Equal(t, "shopper@example.com", resp.User.Email)
	assert.Equal(t, "shopper", resp.User.DisplayName)
	assert.False(t, resp.User.IsAdmin)
	assert.Equal(t, 1, ts.sessions.Len())

	rec := ts.do(t, http.MethodPost, "/api/auth/signin", "", CredentialsRequest{Email: "shopper@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[AuthResponse](t, rec).AccessToken

	rec = ts.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[UserResponse](t, rec)
	assert.Equal(t, resp.User.UID, me.UID)
	assert.Contains(t, me.PhotoURL, "ui-avatars.com")
}

func TestAPI_SignInErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "shopper@example.com")

	rec := ts.do(t, http.MethodPost, "/api/auth/signin", "", CredentialsRequest{Email: "shopper@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/signup", "", CredentialsRequest{Email: "shopper@example.com", Password: "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/signup", "", CredentialsRequest{Email: "new@example.com", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/federated", "", FederatedRequest{IDToken: "token"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_MeReportsAdmin(t *testing.T) {
	ts := newTestServer(t)
	token, resp := ts.signUp(t, adminEmail)
	assert.True(t, resp.User.IsAdmin)

	rec := ts.do(t, http.MethodGet, "/api/me", token, nil)
	assert.True(t, decode[UserResponse](t, rec).IsAdmin)
}

func TestAPI_SignOutClosesSession(t *testing.T) {
	ts := newTestServer(t)
	token, resp := ts.signUp(t, "shopper@example.com")
	sess, ok := ts.sessions.Get(resp.User.UID)
	require.True(t, ok)

	rec := ts.do(t, http.MethodPost, "/api/auth/signout", token, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, ts.sessions.Len())
	assert.True(t, sess.Closed())
}

func TestAPI_SessionRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/cart", "/api/favorites", "/api/orders", "/api/me"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

// ============================================
// Catalog Tests
// ============================================

func TestAPI_Products(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	ts.seedProduct(t, "vase", "Glass Vase", 20)

	rec := ts.do(t, http.MethodGet, "/api/products?q=lamp", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]product.Product](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "lamp", products[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/products?category=home-decor", "", nil)
	assert.Len(t, decode[[]product.Product](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/products/vase", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Glass Vase", decode[product.Product](t, rec).Title)

	rec = ts.do(t, http.MethodGet, "/api/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_EmptyListsAreArrays(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/colors", "/api/subcategories", "/api/categories", "/api/collections"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `[]`, rec.Body.String(), path)
	}
}

func TestAPI_StoreLocationsFallBack(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/store-locations", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	locations := decode[[]checkout.StoreLocation](t, rec)
	require.Len(t, locations, 1)
	assert.Equal(t, "store-1", locations[0].ID)
}

// ============================================
// Cart / Favorites Tests
// ============================================

func TestAPI_CartFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	token, resp := ts.signUp(t, "shopper@example.com")

	ts.do(t, http.MethodPost, "/api/cart/items", token, ProductRequest{ProductID: "lamp"})
	rec := ts.do(t, http.MethodPost, "/api/cart/items", token, ProductRequest{ProductID: "lamp"})
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[CartResponse](t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "Brass Lamp", c.Items[0].Product.Title)

	rec = ts.do(t, http.MethodPut, "/api/cart/items/lamp", token, QuantityRequest{Quantity: 7})
	assert.Equal(t, 7, decode[CartResponse](t, rec).Count)

	rec = ts.do(t, http.MethodPut, "/api/cart/items/lamp", token, QuantityRequest{Quantity: 0})
	assert.Empty(t, decode[CartResponse](t, rec).Items)

	rec = ts.do(t, http.MethodPost, "/api/cart/items", token, ProductRequest{ProductID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sess, ok := ts.sessions.Get(resp.User.UID)
	require.True(t, ok)
	sess.Flush()
	snap, err := ts.store.Get(context.Background(), cart.Collection, resp.User.UID)
	require.NoError(t, err)
	var doc cart.Document
	require.NoError(t, snap.DataTo(&doc))
	assert.Empty(t, doc.Items)
}

func TestAPI_Favorites(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	token, _ := ts.signUp(t, "shopper@example.com")

	ts.do(t, http.MethodPost, "/api/favorites", token, ProductRequest{ProductID: "lamp"})
	rec := ts.do(t, http.MethodPost, "/api/favorites", token, ProductRequest{ProductID: "lamp"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]product.Product](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/favorites/lamp", token, nil)
	assert.Empty(t, decode[[]product.Product](t, rec))
}

// ============================================
// Checkout Tests
// ============================================

func pickupRequest(date string) checkout.Request {
	return checkout.Request{
		Method:        order.MethodStorePickup,
		Contact:       order.Contact{FullName: "Sam Shopper", Email: "sam@example.com", Phone: "5551234567"},
		StoreLocation: "store-1",
		PickupDate:    date,
	}
}

func TestAPI_CheckoutInvalidWritesNothing(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	token, _ := ts.signUp(t, "shopper@example.com")
	ts.do(t, http.MethodPost, "/api/cart/items", token, ProductRequest{ProductID: "lamp"})

	rec := ts.do(t, http.MethodPost, "/api/checkout", token, pickupRequest(""))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	verr := decode[ValidationResponse](t, rec)
	assert.Contains(t, verr.Fields, "pickupDate")
	for _, add := range ts.store.Adds() {
		assert.NotEqual(t, order.Collection, add.Collection)
	}
	rec = ts.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, 1, decode[CartResponse](t, rec).Count)
}

func TestAPI_CheckoutPlacesOrder(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	token, _ := ts.signUp(t, "shopper@example.com")
	ts.do(t, http.MethodPost, "/api/cart/items", token, ProductRequest{ProductID: "lamp"})

	rec := ts.do(t, http.MethodPost, "/api/checkout", token, pickupRequest("2026-11-02"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[CheckoutResponse](t, rec)
	require.NotNil(t, resp.Order)
	assert.NotEmpty(t, resp.Order.ID)
	assert.Equal(t, "shopper@example.com", resp.Order.Email)
	assert.Zero(t, resp.Order.ShippingFee)
	assert.Equal(t, EmailSent, resp.Email)

	sent := ts.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "shopper@example.com", sent[0].To)

	rec = ts.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Zero(t, decode[CartResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/orders", token, nil)
	orders := decode[[]order.Order](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, resp.Order.ID, orders[0].ID)
}

func TestAPI_CheckoutEmailFailureIsWarning(t *testing.T) {
	ts := newTestServer(t)
	ts.mailer.err = errors.New("smtp down")
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	token, _ := ts.signUp(t, "shopper@example.com")
	ts.do(t, http.MethodPost, "/api/cart/items", token, ProductRequest{ProductID: "lamp"})

	rec := ts.do(t, http.MethodPost, "/api/checkout", token, pickupRequest("2026-11-02"))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[CheckoutResponse](t, rec)
	assert.Equal(t, EmailFailed, resp.Email)
	assert.NotEmpty(t, resp.Warning)
	assert.NotEmpty(t, resp.Order.ID)
}

func TestAPI_CheckoutEmptyCart(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signUp(t, "shopper@example.com")

	rec := ts.do(t, http.MethodPost, "/api/checkout", token, pickupRequest("2026-11-02"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_OrderDetailOwnerOrAdmin(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	owner, _ := ts.signUp(t, "shopper@example.com")
	other, _ := ts.signUp(t, "other@example.com")
	admin, _ := ts.signUp(t, adminEmail)
	ts.do(t, http.MethodPost, "/api/cart/items", owner, ProductRequest{ProductID: "lamp"})
	rec := ts.do(t, http.MethodPost, "/api/checkout", owner, pickupRequest("2026-11-02"))
	orderID := decode[CheckoutResponse](t, rec).Order.ID

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/orders/"+orderID, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/orders/"+orderID, other, nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/orders/"+orderID, admin, nil).Code)
}

// ============================================
// Admin Tests
// ============================================

func TestAPI_AdminRoutesRequireAllowList(t *testing.T) {
	ts := newTestServer(t)
	shopper, _ := ts.signUp(t, "shopper@example.com")
	admin, _ := ts.signUp(t, adminEmail)
	color := product.Color{Name: "Navy", Value: "#000080"}

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/admin/colors", "", color).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/api/admin/colors", shopper, color).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/admin/users", shopper, nil).Code)

	rec := ts.do(t, http.MethodPost, "/api/admin/colors", admin, color)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[product.Color](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/colors", "", nil)
	assert.Len(t, decode[[]product.Color](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/admin/colors/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_AdminColorValidation(t *testing.T) {
	ts := newTestServer(t)
	admin, _ := ts.signUp(t, adminEmail)

	rec := ts.do(t, http.MethodPost, "/api/admin/colors", admin, product.Color{Name: strings.Repeat("x", 21)})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	verr := decode[ValidationResponse](t, rec)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "value")
}

func TestAPI_AdminCreateProductWithImages(t *testing.T) {
	ts := newTestServer(t)
	admin, _ := ts.signUp(t, adminEmail)

	draft := map[string]any{
		"title":               "Brass Lamp",
		"description":         "A warm desk lamp",
		"priceBeforeDiscount": "89.99",
		"discount":            "10",
		"tags":                []string{"lighting"},
		"category":            map[string]string{"name": "Home Decor"},
		"collection":          map[string]string{"name": "Autumn"},
		"colors":              []map[string]string{{"name": "Brass", "value": "#b5a642"}},
		"subCategories":       []map[string]string{{"name": "Lamps", "description": "Desk lamps"}},
	}
	draftJSON, err := json.Marshal(draft)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("product", string(draftJSON)))
	for _, name := range []string{"front.png", "side.png"} {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(name))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[product.Product](t, rec)
	assert.Equal(t, []string{"https://i.ibb.co/front.png", "https://i.ibb.co/side.png"}, p.Images)
	assert.Equal(t, []string{"front.png", "side.png"}, *ts.uploads)

	rec = ts.do(t, http.MethodGet, "/api/products/"+p.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_AdminUsersAndExport(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	shopper, _ := ts.signUp(t, "shopper@example.com")
	admin, _ := ts.signUp(t, adminEmail)
	ts.do(t, http.MethodPost, "/api/cart/items", shopper, ProductRequest{ProductID: "lamp"})
	ts.do(t, http.MethodPost, "/api/checkout", shopper, pickupRequest("2026-11-02"))

	rec := ts.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]query.UserWithOrders](t, rec)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.Email == "shopper@example.com" {
			assert.Len(t, row.Orders, 1)
		} else {
			assert.Empty(t, row.Orders)
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/products/export", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

// ============================================
// Send Mail Tests
// ============================================

func TestAPI_SendMail(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/send-mail", "", email.OrderConfirmation{To: "sam@example.com", CustomerName: "Sam", IsOrder: true})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	require.Len(t, ts.mailer.Sent(), 1)
}

func TestAPI_SendMailFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.mailer.err = errors.New("smtp down")

	rec := ts.do(t, http.MethodPost, "/api/send-mail", "", email.OrderConfirmation{To: "sam@example.com"})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[MailResponse](t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "failed to send email", resp.Error)
	assert.NotContains(t, rec.Body.String(), "smtp down")
}

// ============================================
// Error Response Tests
// ============================================

func TestRespondErr_HidesServerErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	respondErr(rec, fmt.Errorf("failed to list products: %w", errors.New(`pq: password authentication failed for user "shop"`)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}

func TestRespondErr_KeepsPublicSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	respondErr(rec, fmt.Errorf("image 1 (a.png): %w: post http://10.0.0.5/1/upload: dial tcp: refused", imageupload.ErrUploadFailed))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"upload failed"}`, rec.Body.String())
}

func TestRespondErr_ClientErrorKeepsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	respondErr(rec, checkout.ErrEmptyCart)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, checkout.ErrEmptyCart.Error()), rec.Body.String())
}

// ============================================
// Stream Tests
// ============================================

func TestAPI_StreamPushesSessionState(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProduct(t, "lamp", "Brass Lamp", 89.99)
	token, _ := ts.signUp(t, "shopper@example.com")

	server := httptest.NewServer(ts.handler)
	defer server.Close()

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/stream", header)
	require.NoError(t, err)
	defer conn.Close()

	var first session.State
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "shopper@example.com", first.Identity.Email)

	ts.do(t, http.MethodPost, "/api/cart/items", token, ProductRequest{ProductID: "lamp"})

	var got session.State
	for got.Count != 1 {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
	}
	require.Len(t, got.Cart, 1)
	assert.Equal(t, "lamp", got.Cart[0].Product.ID)
}

func TestAPI_StreamRejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signUp(t, "shopper@example.com")

	server := httptest.NewServer(ts.handler)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/stream"

	header := http.Header{
		"Authorization": []string{"Bearer " + token},
		"Origin":        []string{"https://attacker.example.com"},
	}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", server.URL)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	conn.Close()
}
