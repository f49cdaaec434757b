package email

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/pricing"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func testOrder() *order.Order {
	items := []cart.Item{
		{Product: product.Product{ID: "p1", Title: "Lamp", Price: 89.99}, Quantity: 1},
		{Product: product.Product{ID: "p2", Title: "Rug", Price: 59.99, Discount: pricing.Discount(10)}, Quantity: 2},
	}
	return &order.Order{
		ID:             "ord-123",
		CheckoutMethod: order.MethodCOD,
		Contact:        order.Contact{FullName: "Jane Doe", Email: "jane@example.com", Phone: "5551234567"},
		Shipping: &order.Shipping{
			FullName: "Jane Doe", Email: "jane@example.com", Address: "12 Market Street",
			City: "Springfield", PostalCode: "12345", Country: "US",
		},
		CartItems: items,
		Totals:    order.ComputeTotals(items, order.MethodCOD),
		CreatedAt: 1720000000000,
		Email:     "jane@example.com",
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// ============================================
// Template Tests
// ============================================

func TestBuildOrderConfirmationText_Golden(t *testing.T) {
	body := BuildOrderConfirmationText(OrderConfirmation{
		To:           "jane@example.com",
		CustomerName: "Jane Doe",
		IsOrder:      true,
		Order:        testOrder(),
	})

	newGoldie(t).Assert(t, "order_confirmation_text", []byte(body))
}

func TestBuildOrderConfirmationText_WithoutOrder(t *testing.T) {
	body := BuildOrderConfirmationText(OrderConfirmation{To: "jane@example.com", IsOrder: false, Order: testOrder()})

	newGoldie(t).Assert(t, "greeting_text", []byte(body))
}

func TestBuildOrderConfirmationHTML(t *testing.T) {
	body := BuildOrderConfirmationHTML(OrderConfirmation{
		To:           "jane@example.com",
		CustomerName: "Jane <Doe>",
		IsOrder:      true,
		Order:        testOrder(),
	})

	assert.Contains(t, body, "Hello Jane &lt;Doe&gt;,")
	assert.NotContains(t, body, "<Doe>")
	assert.Contains(t, body, "ord-123")
	assert.Contains(t, body, "Cash on Delivery")
	assert.Contains(t, body, "12 Market Street")
	assert.Contains(t, body, "$107.98")
	assert.Contains(t, body, "Total: $218.81")
	assert.Contains(t, body, "Tax: $15.84")
}

func TestBuildOrderConfirmationHTML_Pickup(t *testing.T) {
	o := testOrder()
	o.CheckoutMethod = order.MethodStorePickup
	o.Shipping = nil
	o.StoreLocation = "store-1"
	o.PickupDate = "2024-07-21"

	body := BuildOrderConfirmationHTML(OrderConfirmation{CustomerName: "Jane", IsOrder: true, Order: o})

	assert.Contains(t, body, "Store Pickup")
	assert.Contains(t, body, "store-1 on 2024-07-21")
	assert.NotContains(t, body, "Ship to")
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{218.80976, "$218.81"},
		{1234.5, "$1,234.50"},
		{999999.99, "$999,999.99"},
		{1000000, "$1,000,000.00"},
		{-12.5, "-$12.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoney(tt.in))
	}
}

// ============================================
// Service Tests
// ============================================

func TestService_SendOrderConfirmation(t *testing.T) {
	dialer := &fakeDialer{}
	service := NewService(dialer, "shop@example.com", "admin@example.com")

	err := service.SendOrderConfirmation(OrderConfirmation{
		To:           "jane@example.com",
		CustomerName: "Jane Doe",
		IsOrder:      true,
		Order:        testOrder(),
	})

	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)
	msg := dialer.sent[0]
	assert.Equal(t, []string{"jane@example.com", "admin@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"shop@example.com"}, msg.GetHeader("From"))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "multipart/alternative")
	assert.Contains(t, raw.String(), "text/plain")
	assert.Contains(t, raw.String(), "text/html")
}

func TestService_Recipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "admin@x.com"}, NewService(nil, "f@x.com", "admin@x.com").Recipients("a@x.com"))
	assert.Equal(t, []string{"a@x.com"}, NewService(nil, "f@x.com", "").Recipients("a@x.com"))
	assert.Equal(t, []string{"ADMIN@x.com"}, NewService(nil, "f@x.com", "admin@x.com").Recipients("ADMIN@x.com"))
}

func TestService_RequiresRecipient(t *testing.T) {
	dialer := &fakeDialer{}
	service := NewService(dialer, "shop@example.com", "admin@example.com")

	err := service.SendOrderConfirmation(OrderConfirmation{CustomerName: "Jane"})

	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Empty(t, dialer.sent)
}

func TestService_DialerError(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	service := NewService(dialer, "shop@example.com", "")

	err := service.SendOrderConfirmation(OrderConfirmation{To: "jane@example.com"})

	assert.EqualError(t, err, "connection refused")
}
