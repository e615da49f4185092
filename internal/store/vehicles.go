package store

import (
	"context"
	"fmt"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateVehicle inserts a vehicle. A duplicate plate yields ErrConflict.
func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (plate, model, age, mileage, revision_due, operational_status, condition_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, v, query,
		v.Plate, v.Model, v.Age, v.Mileage, v.RevisionDue, v.OperationalStatus, v.ConditionStatus)
	if isUniqueViolation(err) {
		return fmt.Errorf("plate %s already registered: %w", v.Plate, apperrors.ErrConflict)
	}
	return apperrors.Persistence("create vehicle", err)
}

// GetVehicleByID retrieves a vehicle by ID
func (s *Store) GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.db.GetContext(ctx, &v, "SELECT * FROM vehicles WHERE id = $1", id); err != nil {
		return nil, notFound(err, "vehicle", id)
	}
	return &v, nil
}

// GetVehicleByPlate retrieves a vehicle by plate
func (s *Store) GetVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.db.GetContext(ctx, &v, "SELECT * FROM vehicles WHERE plate = $1", plate); err != nil {
		return nil, notFound(err, "vehicle with plate", plate)
	}
	return &v, nil
}

// ListVehicles returns all vehicles
func (s *Store) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := s.db.SelectContext(ctx, &vehicles, "SELECT * FROM vehicles ORDER BY id"); err != nil {
		return nil, apperrors.Persistence("list vehicles", err)
	}
	return vehicles, nil
}

// SetOperationalStatus changes only the vehicle's operational status and
// returns the row as stored, so a concurrent condition change is kept.
func (s *Store) SetOperationalStatus(ctx context.Context, id int64, status string) (*models.Vehicle, error) {
	query := `
		UPDATE vehicles
		SET operational_status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING *`

	var v models.Vehicle
	if err := s.db.GetContext(ctx, &v, query, status, id); err != nil {
		return nil, notFound(err, "vehicle", id)
	}
	return &v, nil
}

func setConditionStatus(ctx context.Context, q sqlx.QueryerContext, v *models.Vehicle) error {
	query := `
		UPDATE vehicles
		SET condition_status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING *`

	if err := sqlx.GetContext(ctx, q, v, query, v.ConditionStatus, v.ID); err != nil {
		return notFound(err, "vehicle", v.ID)
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = $1", id); err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

// CreateUser inserts a user
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.GetContext(ctx, &u.ID, "INSERT INTO users (name, role) VALUES ($1, $2) RETURNING id", u.Name, u.Role)
	return apperrors.Persistence("create user", err)
}

// ListUsers returns all users
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY id"); err != nil {
		return nil, apperrors.Persistence("list users", err)
	}
	return users, nil
}
