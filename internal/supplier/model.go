package supplier

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNotFound          = fmt.Errorf("supplier %w", core.ErrNotFound)
	ErrOfferingNotFound  = fmt.Errorf("offering %w", core.ErrNotFound)
	ErrPONotFound        = fmt.Errorf("purchase order %w", core.ErrNotFound)
	ErrNotOwner          = fmt.Errorf("%w: not your supplier account", core.ErrForbidden)
	ErrInvalidTransition = fmt.Errorf("%w: purchase order status change not allowed", core.ErrConflict)
	ErrOutOfStock        = fmt.Errorf("%w: offering no longer has that much available", core.ErrConflict)
	ErrPOExists          = fmt.Errorf("%w: purchase order already raised", core.ErrConflict)
)

type Supplier struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ZoneID    string    `json:"zone_id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
}

// Offering is stock a supplier can sell. Quantities and costs are in the
// canonical unit.
type Offering struct {
	ID          string    `json:"id"`
	SupplierID  string    `json:"supplier_id"`
	Ingredient  string    `json:"ingredient"`
	Unit        string    `json:"unit"`
	UnitCost    float64   `json:"unit_cost"`
	Available   float64   `json:"available"`
	HarvestedAt time.Time `json:"harvested_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type POStatus string

const (
	POPending   POStatus = "PENDING"
	POConfirmed POStatus = "CONFIRMED"
	POShipped   POStatus = "SHIPPED"
	PODelivered POStatus = "DELIVERED"
	POCancelled POStatus = "CANCELLED"
)

var POStatuses = []string{
	string(POPending), string(POConfirmed), string(POShipped),
	string(PODelivered), string(POCancelled),
}

var poTransitions = map[POStatus][]POStatus{
	POPending:   {POConfirmed, POCancelled},
	POConfirmed: {POShipped, POCancelled},
	POShipped:   {PODelivered},
}

func (s POStatus) CanTransitionTo(to POStatus) bool {
	for _, next := range poTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type POLine struct {
	OfferingID string  `json:"offering_id"`
	Ingredient string  `json:"ingredient"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	UnitCost   float64 `json:"unit_cost"`
}

type PurchaseOrder struct {
	ID           string    `json:"id"`
	CycleID      string    `json:"cycle_id"`
	SupplierID   string    `json:"supplier_id"`
	RestaurantID string    `json:"restaurant_id"`
	Lines        []POLine  `json:"lines"`
	Total        float64   `json:"total"`
	Status       POStatus  `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusChanged is the payload of a po.status event.
type StatusChanged struct {
	PurchaseOrderID string   `json:"purchase_order_id"`
	CycleID         string   `json:"cycle_id"`
	SupplierID      string   `json:"supplier_id"`
	RestaurantID    string   `json:"restaurant_id"`
	Status          POStatus `json:"status"`
	Total           float64  `json:"total"`
}
