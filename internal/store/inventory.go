package store

import (
	"context"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ListInventoryItems returns every item in stable id order
func (s *Store) ListInventoryItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM inventory_items ORDER BY id")
	if err != nil {
		return nil, apperrors.Persistence("list inventory items", err)
	}
	return items, nil
}

// InventoryItemExists checks whether an item id resolves
func (s *Store) InventoryItemExists(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM inventory_items WHERE id = $1)", itemID)
	if err != nil {
		return false, apperrors.Persistence("check inventory item", err)
	}
	return exists, nil
}

// GetInventoryItem retrieves an item by ID
func (s *Store) GetInventoryItem(ctx context.Context, itemID int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM inventory_items WHERE id = $1", itemID)
	if err != nil {
		return nil, notFound(err, "inventory item", itemID)
	}
	return &item, nil
}

// CreateInventoryItem inserts a new item
func (s *Store) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (name, stock, threshold)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, item, query, item.Name, item.Stock, item.Threshold)
	return apperrors.Persistence("create inventory item", err)
}

// lockInventoryItem takes a row lock on the item for the rest of tx
func lockInventoryItem(ctx context.Context, tx *sqlx.Tx, itemID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, "SELECT id FROM inventory_items WHERE id = $1 FOR UPDATE", itemID)
	if err != nil {
		return notFound(err, "inventory item", itemID)
	}
	return nil
}

// addStock increases stock within tx, e.g. when an order is received
func addStock(ctx context.Context, tx *sqlx.Tx, itemID int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE inventory_items SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
		quantity, itemID)
	return err
}
