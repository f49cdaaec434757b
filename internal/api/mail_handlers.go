package api

import (
	"net/http"

	"github.com/example/storefront-sync/internal/email"
	"github.com/example/storefront-sync/internal/logger"
)

// Mailer sends order confirmations; *email.Service satisfies it.
type Mailer interface {
	SendOrderConfirmation(c email.OrderConfirmation) error
}

// MailHandlers serves the transactional email endpoint.
type MailHandlers struct {
	mailer Mailer
}

func NewMailHandlers(mailer Mailer) *MailHandlers {
	return &MailHandlers{mailer: mailer}
}

// MailResponse reports the outcome of a send.
type MailResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SendMail sends an order confirmation to the customer and the admin.
func (h *MailHandlers) SendMail(w http.ResponseWriter, r *http.Request) {
	var req email.OrderConfirmation
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.mailer.SendOrderConfirmation(req); err != nil {
		logger.Component("Mail").WithError(err).WithField("to", req.To).Error("failed to send email")
		respondJSON(w, http.StatusInternalServerError, MailResponse{Success: false, Error: "failed to send email"})
		return
	}
	respondJSON(w, http.StatusOK, MailResponse{Success: true})
}
