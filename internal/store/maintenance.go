package store

import (
	"context"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateMaintenance inserts a maintenance request
func (s *Store) CreateMaintenance(ctx context.Context, m *models.MaintenanceRequest) error {
	query := `
		INSERT INTO maintenance_requests (vehicle_id, subject, operator_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, m, query, m.VehicleID, m.Subject, m.OperatorID, m.Status)
	return apperrors.Persistence("create maintenance request", err)
}

// GetMaintenanceByID retrieves a maintenance request by ID
func (s *Store) GetMaintenanceByID(ctx context.Context, id int64) (*models.MaintenanceRequest, error) {
	var m models.MaintenanceRequest
	if err := s.db.GetContext(ctx, &m, "SELECT * FROM maintenance_requests WHERE id = $1", id); err != nil {
		return nil, notFound(err, "maintenance request", id)
	}
	return &m, nil
}

// ListMaintenanceByVehicle returns a vehicle's maintenance records, oldest first
func (s *Store) ListMaintenanceByVehicle(ctx context.Context, vehicleID int64) ([]models.MaintenanceRequest, error) {
	var list []models.MaintenanceRequest
	err := s.db.SelectContext(ctx, &list,
		"SELECT * FROM maintenance_requests WHERE vehicle_id = $1 ORDER BY created_at, id", vehicleID)
	if err != nil {
		return nil, apperrors.Persistence("list maintenance requests", err)
	}
	return list, nil
}

// UpdateMaintenance persists the request's operator and status
func (s *Store) UpdateMaintenance(ctx context.Context, m *models.MaintenanceRequest) error {
	return apperrors.Persistence("update maintenance request", updateMaintenance(ctx, s.db, m))
}

// UpdateMaintenanceWithVehicle saves the request and the vehicle's condition
// in one transaction; either both rows change or neither does. Only
// condition_status is written on the vehicle, and v is refreshed from the row.
func (s *Store) UpdateMaintenanceWithVehicle(ctx context.Context, m *models.MaintenanceRequest, v *models.Vehicle) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := updateMaintenance(ctx, tx, m); err != nil {
			return err
		}
		return setConditionStatus(ctx, tx, v)
	})
	return apperrors.Persistence("update maintenance request with vehicle", err)
}

func updateMaintenance(ctx context.Context, q sqlx.QueryerContext, m *models.MaintenanceRequest) error {
	query := `
		UPDATE maintenance_requests
		SET operator_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	if err := sqlx.GetContext(ctx, q, &m.UpdatedAt, query, m.OperatorID, m.Status, m.ID); err != nil {
		return notFound(err, "maintenance request", m.ID)
	}
	return nil
}
