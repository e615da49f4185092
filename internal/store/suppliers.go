package store

import (
	"context"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
)

// CreateSupplier inserts a supplier
func (s *Store) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	err := s.db.GetContext(ctx, supplier,
		"INSERT INTO suppliers (name) VALUES ($1) RETURNING id, created_at", supplier.Name)
	return apperrors.Persistence("create supplier", err)
}

// CheapestOfferForItem returns the lowest unit price offered for the item.
// Ties go to the lowest supplier id so the choice is stable.
func (s *Store) CheapestOfferForItem(ctx context.Context, itemID int64) (*models.SupplierOffer, error) {
	query := `
		SELECT o.id, o.item_id, o.supplier_id, s.name AS supplier_name, o.unit_price, o.updated_at
		FROM supplier_offers o
		JOIN suppliers s ON s.id = o.supplier_id
		WHERE o.item_id = $1
		ORDER BY o.unit_price ASC, o.supplier_id ASC
		LIMIT 1`

	var offer models.SupplierOffer
	if err := s.db.GetContext(ctx, &offer, query, itemID); err != nil {
		return nil, notFound(err, "supplier offer for item", itemID)
	}
	return &offer, nil
}

// UpsertSupplierOffer records the supplier's price for an item, replacing any
// previous price for the same pair.
func (s *Store) UpsertSupplierOffer(ctx context.Context, offer *models.SupplierOffer) error {
	query := `
		INSERT INTO supplier_offers (item_id, supplier_id, unit_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, supplier_id)
		DO UPDATE SET unit_price = EXCLUDED.unit_price, updated_at = NOW()
		RETURNING id, updated_at`

	err := s.db.GetContext(ctx, offer, query, offer.ItemID, offer.SupplierID, offer.UnitPrice)
	return apperrors.Persistence("upsert supplier offer", err)
}

// SupplierExists checks whether a supplier id resolves
func (s *Store) SupplierExists(ctx context.Context, supplierID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)", supplierID)
	if err != nil {
		return false, apperrors.Persistence("check supplier", err)
	}
	return exists, nil
}
