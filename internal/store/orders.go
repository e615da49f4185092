package store

import (
	"context"
	"fmt"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderIfNoneOpen inserts the order unless the item already has a
// PENDING or APPROVED order. The item row is locked for the duration of the
// check-and-insert, and the partial unique index on open orders rejects
// anything that slips past. An existing open order yields ErrConflict.
func (s *Store) CreateOrderIfNoneOpen(ctx context.Context, order *models.PurchaseOrder) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockInventoryItem(ctx, tx, order.ItemID); err != nil {
			return err
		}

		open, err := existsOpenOrder(ctx, tx, order.ItemID)
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("item %d already has an open order: %w", order.ItemID, apperrors.ErrConflict)
		}

		query := `
			INSERT INTO purchase_orders (item_id, quantity, status, source, motive, order_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`

		return tx.GetContext(ctx, order, query,
			order.ItemID, order.Quantity, order.Status, order.Source, order.Motive, order.OrderDate)
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("item %d already has an open order: %w", order.ItemID, apperrors.ErrConflict)
	}
	return apperrors.Persistence("create purchase order", err)
}

// ExistsOpenOrderForItem checks for a PENDING or APPROVED order on the item
func (s *Store) ExistsOpenOrderForItem(ctx context.Context, itemID int64) (bool, error) {
	open, err := existsOpenOrder(ctx, s.db, itemID)
	if err != nil {
		return false, apperrors.Persistence("check open order", err)
	}
	return open, nil
}

func existsOpenOrder(ctx context.Context, q sqlx.QueryerContext, itemID int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists,
		"SELECT EXISTS(SELECT 1 FROM purchase_orders WHERE item_id = $1 AND status IN ($2, $3))",
		itemID, models.OrderStatusPending, models.OrderStatusApproved)
	return exists, err
}

// ListOrders returns all purchase orders, newest first
func (s *Store) ListOrders(ctx context.Context) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM purchase_orders ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Persistence("list purchase orders", err)
	}
	return orders, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM purchase_orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	return &order, nil
}

// ApplyOrderStatus moves an order forward. Receiving an order adds its
// quantity to the item's stock in the same transaction. Backward or
// terminal-to-anything transitions return ErrConflict.
func (s *Store) ApplyOrderStatus(ctx context.Context, orderID int64, status string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &order, "SELECT * FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID)
		if err != nil {
			return notFound(err, "purchase order", orderID)
		}

		if !models.CanTransitionOrder(order.Status, status) {
			return fmt.Errorf("order %d cannot move from %s to %s: %w",
				orderID, order.Status, status, apperrors.ErrConflict)
		}

		err = tx.GetContext(ctx, &order.UpdatedAt,
			"UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at",
			status, orderID)
		if err != nil {
			return err
		}
		order.Status = status

		if status == models.OrderStatusReceived {
			return addStock(ctx, tx, order.ItemID, order.Quantity)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence("apply order status", err)
	}
	return &order, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
