package service

import (
	"context"
	"strings"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"go.uber.org/zap"
)

// VehicleService registers vehicles and toggles their operational status
type VehicleService struct {
	vehicles    VehicleRepository
	maintenance MaintenanceRepository
	now         func() time.Time
	logger      *zap.Logger
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(vehicles VehicleRepository, maintenance MaintenanceRepository) *VehicleService {
	return &VehicleService{
		vehicles:    vehicles,
		maintenance: maintenance,
		now:         time.Now,
		logger:      util.ComponentLogger("vehicles"),
	}
}

// RegisterVehicleRequest describes a new vehicle. Age and Mileage are
// pointers so a missing value can be told apart from zero.
type RegisterVehicleRequest struct {
	Plate       string `json:"plate"`
	Model       string `json:"model"`
	Age         *int   `json:"age"`
	Mileage     *int   `json:"mileage"`
	RevisionDue string `json:"revision_due"` // YYYY-MM-DD
}

func (s *VehicleService) validate(req RegisterVehicleRequest) (time.Time, error) {
	if strings.TrimSpace(req.Plate) == "" {
		return time.Time{}, apperrors.BadRequest("plate must not be empty")
	}
	if strings.TrimSpace(req.Model) == "" {
		return time.Time{}, apperrors.BadRequest("model must not be empty")
	}
	if req.Age == nil || *req.Age < 0 {
		return time.Time{}, apperrors.BadRequest("age is required and must not be negative")
	}
	if req.Mileage == nil || *req.Mileage < 0 {
		return time.Time{}, apperrors.BadRequest("mileage is required and must not be negative")
	}
	if req.RevisionDue == "" {
		return time.Time{}, apperrors.BadRequest("revision date is required")
	}
	due, err := time.Parse("2006-01-02", req.RevisionDue)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("revision date %q is not YYYY-MM-DD", req.RevisionDue)
	}
	if due.Before(dateOf(s.now())) {
		return time.Time{}, apperrors.BadRequest("revision date %s is in the past", req.RevisionDue)
	}
	return due, nil
}

// RegisterVehicle stores a new vehicle, enabled and repaired
func (s *VehicleService) RegisterVehicle(ctx context.Context, req RegisterVehicleRequest) (*models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.RegisterVehicle")
	defer span.End()

	due, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	v := &models.Vehicle{
		Plate:             strings.ToUpper(strings.TrimSpace(req.Plate)),
		Model:             req.Model,
		Age:               *req.Age,
		Mileage:           *req.Mileage,
		RevisionDue:       due,
		OperationalStatus: models.VehicleEnabled,
		ConditionStatus:   models.VehicleRepaired,
	}
	if err := s.vehicles.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("Vehicle registered", zap.Int64("vehicle_id", v.ID), zap.String("plate", v.Plate))
	return v, nil
}

// ListVehicles returns all vehicles
func (s *VehicleService) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.vehicles.ListVehicles(ctx)
}

// DisableVehicle marks the vehicle INHABILITADO
func (s *VehicleService) DisableVehicle(ctx context.Context, id int64) error {
	return s.setOperational(ctx, id, models.VehicleDisabled)
}

// EnableVehicle marks the vehicle HABILITADO
func (s *VehicleService) EnableVehicle(ctx context.Context, id int64) error {
	return s.setOperational(ctx, id, models.VehicleEnabled)
}

func (s *VehicleService) setOperational(ctx context.Context, id int64, status string) error {
	v, err := s.vehicles.SetOperationalStatus(ctx, id, status)
	if err != nil {
		return err
	}

	s.logger.Info("Vehicle operational status changed",
		zap.Int64("vehicle_id", id),
		zap.String("status", v.OperationalStatus),
		zap.String("condition", v.ConditionStatus))
	return nil
}

// VehicleHistory returns the vehicle with the given plate and its maintenance records
func (s *VehicleService) VehicleHistory(ctx context.Context, plate string) (*models.VehicleHistory, error) {
	v, err := s.vehicles.GetVehicleByPlate(ctx, strings.ToUpper(strings.TrimSpace(plate)))
	if err != nil {
		return nil, err
	}

	records, err := s.maintenance.ListMaintenanceByVehicle(ctx, v.ID)
	if err != nil {
		return nil, err
	}

	history := &models.VehicleHistory{
		Vehicle:     *v,
		Maintenance: make([]models.MaintenanceRequestView, 0, len(records)),
	}
	for _, r := range records {
		history.Maintenance = append(history.Maintenance, r.View())
	}
	return history, nil
}
