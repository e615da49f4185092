package service

import (
	"context"

	"fleet-service/internal/models"
	"fleet-service/internal/store"
)

// InventoryRepository reads and registers inventory items
type InventoryRepository interface {
	ListInventoryItems(ctx context.Context) ([]models.InventoryItem, error)
	InventoryItemExists(ctx context.Context, itemID int64) (bool, error)
	CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error
}

// OrderRepository is the purchase order ledger. CreateOrderIfNoneOpen must
// check and insert atomically and return apperrors.ErrConflict when the item
// already has an open order.
type OrderRepository interface {
	CreateOrderIfNoneOpen(ctx context.Context, order *models.PurchaseOrder) error
	ExistsOpenOrderForItem(ctx context.Context, itemID int64) (bool, error)
	ListOrders(ctx context.Context) ([]models.PurchaseOrder, error)
	ApplyOrderStatus(ctx context.Context, orderID int64, status string) (*models.PurchaseOrder, error)
}

// SupplierCatalog answers pricing questions. CheapestOfferForItem returns
// apperrors.ErrNotFound when nobody sells the item.
type SupplierCatalog interface {
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	CheapestOfferForItem(ctx context.Context, itemID int64) (*models.SupplierOffer, error)
	SupplierExists(ctx context.Context, supplierID int64) (bool, error)
	UpsertSupplierOffer(ctx context.Context, offer *models.SupplierOffer) error
}

// PolicyProvider returns the current replenishment policy
type PolicyProvider interface {
	CurrentPolicy(ctx context.Context) (*models.ReplenishmentPolicy, error)
}

// VehicleRepository stores vehicles. Status changes are column-scoped:
// SetOperationalStatus never touches the condition and the maintenance
// finalize never touches the operational status.
type VehicleRepository interface {
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error)
	GetVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	SetOperationalStatus(ctx context.Context, id int64, status string) (*models.Vehicle, error)
}

// MaintenanceRepository stores maintenance requests. UpdateMaintenanceWithVehicle
// must persist both records in a single transaction and write only the
// vehicle's condition.
type MaintenanceRepository interface {
	CreateMaintenance(ctx context.Context, m *models.MaintenanceRequest) error
	GetMaintenanceByID(ctx context.Context, id int64) (*models.MaintenanceRequest, error)
	ListMaintenanceByVehicle(ctx context.Context, vehicleID int64) ([]models.MaintenanceRequest, error)
	UpdateMaintenance(ctx context.Context, m *models.MaintenanceRequest) error
	UpdateMaintenanceWithVehicle(ctx context.Context, m *models.MaintenanceRequest, v *models.Vehicle) error
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// EventLog de-duplicates consumed events
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// EventPublisher emits domain events; *broker.EventPublisher satisfies it
type EventPublisher interface {
	PublishPurchaseOrderCreated(ctx context.Context, event *models.PurchaseOrderCreatedEvent) error
	PublishMaintenanceEvent(ctx context.Context, event *models.MaintenanceEvent) error
}

// Verify interface compliance
var (
	_ InventoryRepository   = (*store.Store)(nil)
	_ OrderRepository       = (*store.Store)(nil)
	_ SupplierCatalog       = (*store.Store)(nil)
	_ PolicyProvider        = (*store.Store)(nil)
	_ VehicleRepository     = (*store.Store)(nil)
	_ MaintenanceRepository = (*store.Store)(nil)
	_ UserRepository        = (*store.Store)(nil)
	_ EventLog              = (*store.Store)(nil)
)

type noopPublisher struct{}

func (noopPublisher) PublishPurchaseOrderCreated(context.Context, *models.PurchaseOrderCreatedEvent) error {
	return nil
}

func (noopPublisher) PublishMaintenanceEvent(context.Context, *models.MaintenanceEvent) error {
	return nil
}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
