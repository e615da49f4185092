package models

import (
	"fmt"
	"strings"
	"time"

	"fleet-service/internal/apperrors"

	"github.com/shopspring/decimal"
)

// InventoryItem is a maintenance part tracked in the inventory ledger
type InventoryItem struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Stock     int       `db:"stock" json:"stock"`
	Threshold int       `db:"threshold" json:"threshold"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Deficit returns how far stock sits below the reorder threshold, or 0.
func (i InventoryItem) Deficit() int {
	if i.Stock >= i.Threshold {
		return 0
	}
	return i.Threshold - i.Stock
}

// Validate checks the ledger invariants for a new or updated item
func (i InventoryItem) Validate() error {
	if i.Name == "" {
		return apperrors.BadRequest("item name must not be empty")
	}
	if i.Stock < 0 {
		return apperrors.BadRequest("stock must not be negative, got %d", i.Stock)
	}
	if i.Threshold < 0 {
		return apperrors.BadRequest("threshold must not be negative, got %d", i.Threshold)
	}
	return nil
}

// Supplier sells inventory items
type Supplier struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Validate rejects a blank supplier name
func (s Supplier) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return apperrors.BadRequest("supplier name must not be empty")
	}
	return nil
}

// SupplierOffer is the unit price a supplier charges for an item.
// There is at most one offer per (item, supplier) pair.
type SupplierOffer struct {
	ID           int64           `db:"id" json:"id"`
	ItemID       int64           `db:"item_id" json:"item_id"`
	SupplierID   int64           `db:"supplier_id" json:"supplier_id"`
	SupplierName string          `db:"supplier_name" json:"supplier_name,omitempty"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Cost returns the price of quantity units under this offer
func (o SupplierOffer) Cost(quantity int) decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ReplenishmentPolicy configures automatic reordering
type ReplenishmentPolicy struct {
	ID               int64           `db:"id" json:"id"`
	DefaultIncrement int             `db:"default_increment" json:"default_increment"`
	BudgetCeiling    decimal.Decimal `db:"budget_ceiling" json:"budget_ceiling"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Validate rejects a zero or negative policy. Failures wrap ErrConfiguration.
func (p *ReplenishmentPolicy) Validate() error {
	if p == nil {
		return fmt.Errorf("replenishment policy missing: %w", apperrors.ErrConfiguration)
	}
	if p.DefaultIncrement <= 0 {
		return fmt.Errorf("default increment must be positive, got %d: %w",
			p.DefaultIncrement, apperrors.ErrConfiguration)
	}
	if !p.BudgetCeiling.IsPositive() {
		return fmt.Errorf("budget ceiling must be positive, got %s: %w",
			p.BudgetCeiling, apperrors.ErrConfiguration)
	}
	return nil
}

// OrderQuantity is the default increment plus the item's deficit
func (p *ReplenishmentPolicy) OrderQuantity(item InventoryItem) int {
	return p.DefaultIncrement + item.Deficit()
}

// Affordable reports whether cost stays strictly below the budget ceiling.
// Every item is compared against the same ceiling; nothing is deducted.
func (p *ReplenishmentPolicy) Affordable(cost decimal.Decimal) bool {
	return cost.LessThan(p.BudgetCeiling)
}

// PurchaseOrder records a reorder request for an item
type PurchaseOrder struct {
	ID        int64     `db:"id" json:"id"`
	ItemID    int64     `db:"item_id" json:"item_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Status    string    `db:"status" json:"status"`
	Source    string    `db:"source" json:"source"`
	Motive    string    `db:"motive" json:"motive"`
	OrderDate time.Time `db:"order_date" json:"order_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Purchase order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusApproved  = "APPROVED"
	OrderStatusReceived  = "RECEIVED"
	OrderStatusCancelled = "CANCELLED"
)

// Purchase order sources
const (
	OrderSourceAutomatic = "AUTOMATIC"
	OrderSourceManual    = "MANUAL"
)

// Motives recorded on created orders
const (
	MotiveAutomatic = "automatic stock request"
	MotiveManual    = "manual stock request"
)

// IsOpen reports whether the order is still outstanding
func (o PurchaseOrder) IsOpen() bool {
	return IsOpenOrderStatus(o.Status)
}

// IsOpenOrderStatus reports whether status is PENDING or APPROVED
func IsOpenOrderStatus(status string) bool {
	return status == OrderStatusPending || status == OrderStatusApproved
}

// CanTransitionOrder reports whether an order may move from one status to
// another. Orders only move forward; terminal statuses never change.
func CanTransitionOrder(from, to string) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusApproved || to == OrderStatusReceived || to == OrderStatusCancelled
	case OrderStatusApproved:
		return to == OrderStatusReceived || to == OrderStatusCancelled
	default:
		return false
	}
}

// PurchaseOrderView is the external representation of an order
type PurchaseOrderView struct {
	ID        int64  `json:"id"`
	ItemID    int64  `json:"item_id"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
	Source    string `json:"source"`
	Motive    string `json:"motive"`
	OrderDate string `json:"order_date"`
}

// View maps the order to its external representation
func (o PurchaseOrder) View() PurchaseOrderView {
	return PurchaseOrderView{
		ID:        o.ID,
		ItemID:    o.ItemID,
		Quantity:  o.Quantity,
		Status:    o.Status,
		Source:    o.Source,
		Motive:    o.Motive,
		OrderDate: o.OrderDate.Format("2006-01-02"),
	}
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
