package service

import (
	"context"
	"strings"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryService registers items and supplier prices
type InventoryService struct {
	inventory InventoryRepository
	catalog   SupplierCatalog
	logger    *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(inventory InventoryRepository, catalog SupplierCatalog) *InventoryService {
	return &InventoryService{
		inventory: inventory,
		catalog:   catalog,
		logger:    util.ComponentLogger("inventory"),
	}
}

// RegisterItemRequest describes a new inventory item
type RegisterItemRequest struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
	Stock     int    `json:"stock"`
}

// RegisterSupplierRequest describes a new supplier
type RegisterSupplierRequest struct {
	Name string `json:"name"`
}

// AssociateSupplierRequest sets a supplier's unit price for an item
type AssociateSupplierRequest struct {
	SupplierID int64           `json:"supplier_id" binding:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// RegisterItem validates and stores a new item
func (s *InventoryService) RegisterItem(ctx context.Context, req RegisterItemRequest) (*models.InventoryItem, error) {
	item := &models.InventoryItem{Name: req.Name, Threshold: req.Threshold, Stock: req.Stock}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := s.inventory.CreateInventoryItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("Inventory item registered",
		zap.Int64("item_id", item.ID),
		zap.String("name", item.Name),
		zap.Int("threshold", item.Threshold))
	return item, nil
}

// ListItems returns all inventory items
func (s *InventoryService) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	return s.inventory.ListInventoryItems(ctx)
}

// RegisterSupplier adds a supplier that item prices can then be recorded for
func (s *InventoryService) RegisterSupplier(ctx context.Context, req RegisterSupplierRequest) (*models.Supplier, error) {
	supplier := &models.Supplier{Name: strings.TrimSpace(req.Name)}
	if err := supplier.Validate(); err != nil {
		return nil, err
	}

	if err := s.catalog.CreateSupplier(ctx, supplier); err != nil {
		return nil, err
	}

	s.logger.Info("Supplier registered",
		zap.Int64("supplier_id", supplier.ID),
		zap.String("name", supplier.Name))
	return supplier, nil
}

// AssociateSupplier records or replaces the supplier's price for the item
func (s *InventoryService) AssociateSupplier(ctx context.Context, itemID, supplierID int64, price decimal.Decimal) (*models.SupplierOffer, error) {
	if !price.IsPositive() {
		return nil, apperrors.BadRequest("unit price must be positive, got %s", price)
	}

	exists, err := s.inventory.InventoryItemExists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound("inventory item", itemID)
	}

	exists, err = s.catalog.SupplierExists(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound("supplier", supplierID)
	}

	offer := &models.SupplierOffer{ItemID: itemID, SupplierID: supplierID, UnitPrice: price}
	if err := s.catalog.UpsertSupplierOffer(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.Info("Supplier offer recorded",
		zap.Int64("item_id", itemID),
		zap.Int64("supplier_id", supplierID),
		zap.String("unit_price", price.String()))
	return offer, nil
}
