package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/email"
)

var ErrMailFailed = errors.New("email endpoint reported failure")

// HTTPNotifier asks the send-mail endpoint to deliver the confirmation.
type HTTPNotifier struct {
	endpoint string
	client   *http.Client
}

func NewHTTPNotifier(endpoint string, client *http.Client) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPNotifier{endpoint: endpoint, client: client}
}

type sendMailResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (n *HTTPNotifier) NotifyOrderPlaced(ctx context.Context, e order.OrderPlaced) error {
	o := e.Order
	body, err := json.Marshal(email.OrderConfirmation{
		To:           e.To,
		CustomerName: e.CustomerName,
		IsOrder:      true,
		Order:        &o,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send-mail request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var out sendMailResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK || !out.Success {
		if out.Error != "" {
			return fmt.Errorf("%w: %s", ErrMailFailed, out.Error)
		}
		return fmt.Errorf("%w: status %d", ErrMailFailed, resp.StatusCode)
	}
	return nil
}
