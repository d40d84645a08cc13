package supplier

import "context"

type Repository interface {
	CreateSupplier(ctx context.Context, s *Supplier) error
	GetSupplier(ctx context.Context, id string) (*Supplier, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Supplier, error)

	// UpsertOffering keys on (supplier, ingredient, unit).
	UpsertOffering(ctx context.Context, o *Offering) error
	ListOfferings(ctx context.Context, supplierID string) ([]*Offering, error)
	// ZoneCandidates lists in-stock offerings of the zone's suppliers.
	ZoneCandidates(ctx context.Context, zoneID string) ([]Candidate, error)

	// CreatePurchaseOrders inserts every order and takes its lines out of
	// stock, all or nothing.
	CreatePurchaseOrders(ctx context.Context, pos []*PurchaseOrder) error
	GetPurchaseOrder(ctx context.Context, id string) (*PurchaseOrder, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*PurchaseOrder, error)
	ListByCycle(ctx context.Context, cycleID string) ([]*PurchaseOrder, error)
	// UpdateStatus moves po from its stored status `from` to po.Status. A
	// cancellation puts the lines back in stock.
	UpdateStatus(ctx context.Context, po *PurchaseOrder, from POStatus) error
}
