package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/email"
	"github.com/example/storefront-sync/internal/infrastructure/store"
)

type recordingMailer struct {
	sent []email.OrderConfirmation
	err  error
}

func (m *recordingMailer) SendOrderConfirmation(c email.OrderConfirmation) error {
	m.sent = append(m.sent, c)
	return m.err
}

type recordingPublisher struct {
	keys   []string
	events []any
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func placedEvent() order.OrderPlaced {
	return order.OrderPlaced{
		OrderID:      "ord-1",
		To:           "jane@example.com",
		CustomerName: "Jane",
		Order:        order.Order{ID: "ord-1", CheckoutMethod: order.MethodCOD, Totals: order.Totals{Total: 20}},
		PlacedAt:     time.UnixMilli(1720000000000),
	}
}

// ============================================
// Handler Tests
// ============================================

func TestHandler_HandleEvent_OrderPlaced(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer)
	data, err := json.Marshal(placedEvent())
	require.NoError(t, err)
	value, err := json.Marshal(Event{EventType: order.EventOrderPlaced, Data: data})
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(context.Background(), []byte("ord-1"), value))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jane@example.com", mailer.sent[0].To)
	assert.Equal(t, "Jane", mailer.sent[0].CustomerName)
	assert.True(t, mailer.sent[0].IsOrder)
	assert.Equal(t, "ord-1", mailer.sent[0].Order.ID)
}

func TestHandler_HandleEvent_IgnoresOtherEvents(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer)
	value, _ := json.Marshal(Event{EventType: "CartCleared", Data: json.RawMessage(`{}`)})

	require.NoError(t, h.HandleEvent(context.Background(), nil, value))
	assert.Empty(t, mailer.sent)
}

func TestHandler_HandleEvent_InvalidJSON(t *testing.T) {
	h := NewHandler(&recordingMailer{})

	err := h.HandleEvent(context.Background(), nil, []byte("not json"))

	assert.Error(t, err)
}

func TestHandler_HandleSnapshot(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer)
	o := order.Order{
		CheckoutMethod: order.MethodStorePickup,
		Contact:        order.Contact{FullName: "Jane Doe", Email: "contact@example.com"},
		Email:          "jane@example.com",
		CreatedAt:      1720000000000,
	}
	data, err := json.Marshal(o)
	require.NoError(t, err)

	err = h.HandleSnapshot(&store.Snapshot{Collection: order.Collection, ID: "ord-9", Exists: true, Data: data})

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jane@example.com", mailer.sent[0].To)
	assert.Equal(t, "Jane Doe", mailer.sent[0].CustomerName)
	assert.Equal(t, "ord-9", mailer.sent[0].Order.ID)
}

func TestHandler_HandleSnapshot_OtherCollection(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer)

	require.NoError(t, h.HandleSnapshot(&store.Snapshot{Collection: "carts", ID: "u1", Exists: true, Data: json.RawMessage(`{}`)}))
	require.NoError(t, h.HandleSnapshot(nil))
	assert.Empty(t, mailer.sent)
}

func TestHandler_SendSkipsMissingRecipient(t *testing.T) {
	mailer := &recordingMailer{}
	e := placedEvent()
	e.To = ""

	require.NoError(t, NewHandler(mailer).Send(e))
	assert.Empty(t, mailer.sent)
}

func TestHandler_NotifyOrderPlaced_MailError(t *testing.T) {
	h := NewHandler(&recordingMailer{err: errors.New("smtp down")})

	err := h.NotifyOrderPlaced(context.Background(), placedEvent())

	assert.EqualError(t, err, "smtp down")
}

// ============================================
// HTTPNotifier Tests
// ============================================

func TestHTTPNotifier_Success(t *testing.T) {
	var got email.OrderConfirmation
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	err := NewHTTPNotifier(server.URL, nil).NotifyOrderPlaced(context.Background(), placedEvent())

	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.To)
	assert.True(t, got.IsOrder)
	require.NotNil(t, got.Order)
	assert.Equal(t, 20.0, got.Order.Total)
}

func TestHTTPNotifier_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Invalid login"}`))
	}))
	defer server.Close()

	err := NewHTTPNotifier(server.URL, nil).NotifyOrderPlaced(context.Background(), placedEvent())

	assert.ErrorIs(t, err, ErrMailFailed)
	assert.ErrorContains(t, err, "Invalid login")
}

func TestHTTPNotifier_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewHTTPNotifier(url, nil).NotifyOrderPlaced(context.Background(), placedEvent())

	assert.ErrorContains(t, err, "send-mail request failed")
}

// ============================================
// KafkaPublisher Tests
// ============================================

func TestKafkaPublisher_WrapsEvent(t *testing.T) {
	pub := &recordingPublisher{}

	require.NoError(t, NewKafkaPublisher(pub).NotifyOrderPlaced(context.Background(), placedEvent()))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "ord-1", pub.keys[0])
	event, ok := pub.events[0].(Event)
	require.True(t, ok)
	assert.Equal(t, order.EventOrderPlaced, event.EventType)

	// the consumer side reads it back
	mailer := &recordingMailer{}
	value, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, NewHandler(mailer).HandleEvent(context.Background(), nil, value))
	require.Len(t, mailer.sent, 1)
}
