package order

import "time"

const EventOrderPlaced = "OrderPlaced"

// OrderPlaced announces a stored order so a confirmation email can be sent.
type OrderPlaced struct {
	OrderID      string    `json:"order_id"`
	To           string    `json:"to"`
	CustomerName string    `json:"customer_name"`
	Order        Order     `json:"order"`
	PlacedAt     time.Time `json:"placed_at"`
}
