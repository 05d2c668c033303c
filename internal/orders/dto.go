package orders

import "github.com/google/uuid"

// OrderItemInput reserves quantity tickets of one tier.
type OrderItemInput struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
}

// CreateOrderInput captures a checkout request for one event.
type CreateOrderInput struct {
	EventID    uuid.UUID        `json:"event_id"`
	BuyerEmail string           `json:"buyer_email"`
	BuyerPhone string           `json:"buyer_phone"`
	Items      []OrderItemInput `json:"items"`
}
