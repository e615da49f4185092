package models

import "time"

// Event types published on the fleet events topic
const (
	EventTypePurchaseOrderCreated = "PURCHASE_ORDER_CREATED"
	EventTypeMaintenanceCreated   = "MAINTENANCE_CREATED"
	EventTypeMaintenanceAssigned  = "MAINTENANCE_ASSIGNED"
	EventTypeMaintenanceFinalized = "MAINTENANCE_FINALIZED"
)

// Command types consumed from the fleet commands topic
const (
	EventTypeTriggerReplenishment       = "TRIGGER_REPLENISHMENT"
	EventTypePurchaseOrderStatusChanged = "PURCHASE_ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseOrderCreatedEvent published when an order enters the ledger
type PurchaseOrderCreatedEvent struct {
	BaseEvent
	OrderID  int64  `json:"order_id"`
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Source   string `json:"source"`
}

// MaintenanceEvent published on every maintenance transition
type MaintenanceEvent struct {
	BaseEvent
	MaintenanceID    int64  `json:"maintenance_id"`
	VehicleID        int64  `json:"vehicle_id"`
	Status           string `json:"status"`
	OperatorID       *int64 `json:"operator_id,omitempty"`
	VehicleCondition string `json:"vehicle_condition,omitempty"`
}

// TriggerReplenishmentCommand asks the service to run a replenishment cycle
type TriggerReplenishmentCommand struct {
	BaseEvent
	RequestedBy string `json:"requested_by"`
}

// PurchaseOrderStatusChangedEvent is sent by fulfillment when an order moves
type PurchaseOrderStatusChangedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}
