package messaging

import (
	"context"
)

// OrdersCreatedSubject is the JetStream subject for order creation events.
const OrdersCreatedSubject = "orders.created"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
