package email

import (
	"errors"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/example/storefront-sync/internal/domain/order"
)

// OrderSubject is the subject line of every order confirmation.
const OrderSubject = "📦 Your Order Has Been Placed Successfully!"

var ErrNoRecipient = errors.New("recipient is required")

// OrderConfirmation is the body accepted by the send-mail endpoint.
type OrderConfirmation struct {
	To           string       `json:"to"`
	CustomerName string       `json:"customerName"`
	IsOrder      bool         `json:"isorder"`
	Order        *order.Order `json:"order,omitempty"`
}

// Dialer delivers messages; *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service sends transactional email over SMTP
type Service struct {
	dialer Dialer
	from   string
	admin  string
}

// NewService creates an email service. admin, when set, is copied on every
// order confirmation.
func NewService(dialer Dialer, from, admin string) *Service {
	return &Service{dialer: dialer, from: from, admin: admin}
}

// NewSMTPDialer builds a gomail dialer; empty credentials mean no auth.
func NewSMTPDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

// Recipients lists the addresses a confirmation goes to.
func (s *Service) Recipients(to string) []string {
	recipients := []string{}
	if to = strings.TrimSpace(to); to != "" {
		recipients = append(recipients, to)
	}
	if s.admin != "" && !strings.EqualFold(s.admin, to) {
		recipients = append(recipients, s.admin)
	}
	return recipients
}

// SendOrderConfirmation sends the HTML and plain-text confirmation to the
// customer and the store admin.
func (s *Service) SendOrderConfirmation(c OrderConfirmation) error {
	if strings.TrimSpace(c.To) == "" {
		return ErrNoRecipient
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", s.Recipients(c.To)...)
	msg.SetHeader("Subject", OrderSubject)
	msg.SetBody("text/plain", BuildOrderConfirmationText(c))
	msg.AddAlternative("text/html", BuildOrderConfirmationHTML(c))

	return s.dialer.DialAndSend(msg)
}
