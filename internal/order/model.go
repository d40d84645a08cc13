package order

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNotFound          = fmt.Errorf("order %w", core.ErrNotFound)
	ErrNotMember         = fmt.Errorf("%w: only members of the zone can order", core.ErrForbidden)
	ErrNotAllowed        = fmt.Errorf("%w: not your order", core.ErrForbidden)
	ErrInvalidTransition = fmt.Errorf("%w: order status change not allowed", core.ErrConflict)
	ErrOrderingClosed    = fmt.Errorf("%w: ordering has closed for this cycle", core.ErrPhaseClosed)
)

const MaxQuantity = 10

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var Statuses = []string{
	string(StatusPending), string(StatusConfirmed), string(StatusPreparing),
	string(StatusReady), string(StatusDelivered), string(StatusCancelled),
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusDelivered},
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID           string    `json:"id"`
	CycleID      string    `json:"cycle_id"`
	BidID        string    `json:"bid_id"`
	RestaurantID string    `json:"restaurant_id"`
	UserID       string    `json:"user_id"`
	Quantity     int       `json:"quantity"`
	UnitPrice    float64   `json:"unit_price"`
	Total        float64   `json:"total"`
	Status       Status    `json:"status"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusChanged is the payload of an order.status event.
type StatusChanged struct {
	OrderID  string `json:"order_id"`
	CycleID  string `json:"cycle_id"`
	UserID   string `json:"user_id"`
	Quantity int    `json:"quantity"`
	Status   Status `json:"status"`
}
