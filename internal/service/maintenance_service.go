package service

import (
	"context"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaintenanceService drives maintenance requests through
// PENDIENTE -> APROBADO -> FINALIZADO and keeps the vehicle in step.
type MaintenanceService struct {
	maintenance MaintenanceRepository
	vehicles    VehicleRepository
	users       UserRepository
	events      EventPublisher
	logger      *zap.Logger
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(
	maintenance MaintenanceRepository,
	vehicles VehicleRepository,
	users UserRepository,
	events EventPublisher,
) *MaintenanceService {
	return &MaintenanceService{
		maintenance: maintenance,
		vehicles:    vehicles,
		users:       users,
		events:      publisherOrNoop(events),
		logger:      util.ComponentLogger("maintenance"),
	}
}

// CreateMaintenanceRequest represents a request to open maintenance
type CreateMaintenanceRequest struct {
	VehicleID int64  `json:"vehicle_id" binding:"required"`
	Subject   string `json:"subject"`
}

// AssignMaintenanceRequest names the user to assign
type AssignMaintenanceRequest struct {
	OperatorID int64 `json:"operator_id" binding:"required"`
}

// CreateMaintenanceRequest opens a PENDIENTE request for the vehicle. An
// empty subject is rejected before any lookup.
func (s *MaintenanceService) CreateMaintenanceRequest(ctx context.Context, vehicleID int64, subject string) (view *models.MaintenanceRequestView, err error) {
	ctx, span := util.StartSpan(ctx, "MaintenanceService.CreateMaintenanceRequest")
	defer func() { util.EndSpan(span, err) }()

	req, err := models.NewMaintenanceRequest(vehicleID, subject)
	if err != nil {
		return nil, err
	}

	if _, err := s.vehicles.GetVehicleByID(ctx, vehicleID); err != nil {
		return nil, err
	}

	if err := s.maintenance.CreateMaintenance(ctx, req); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, req, "")
	v := req.View()
	return &v, nil
}

// AssignMaintenance sets the operator and approves the request. It does not
// look at the current status, so assigning twice simply re-approves.
func (s *MaintenanceService) AssignMaintenance(ctx context.Context, requestID int64, op models.Operator) (err error) {
	ctx, span := util.StartSpan(ctx, "MaintenanceService.AssignMaintenance")
	defer func() { util.EndSpan(span, err) }()

	if op.ID() == 0 {
		return apperrors.BadRequest("operator is required")
	}

	req, err := s.maintenance.GetMaintenanceByID(ctx, requestID)
	if err != nil {
		return err
	}

	req.Assign(op)
	if err := s.maintenance.UpdateMaintenance(ctx, req); err != nil {
		return err
	}

	s.recordTransition(ctx, req, "")
	return nil
}

// AssignMaintenanceToUser resolves the user, checks it holds the operator
// role and assigns it.
func (s *MaintenanceService) AssignMaintenanceToUser(ctx context.Context, requestID, userID int64) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	op, err := models.NewOperator(*user)
	if err != nil {
		return err
	}
	return s.AssignMaintenance(ctx, requestID, op)
}

// FinalizeMaintenance closes the request and sets the vehicle's condition to
// EN_REPARACION. Both records are written in one transaction.
func (s *MaintenanceService) FinalizeMaintenance(ctx context.Context, requestID int64) (err error) {
	ctx, span := util.StartSpan(ctx, "MaintenanceService.FinalizeMaintenance")
	defer func() { util.EndSpan(span, err) }()

	req, err := s.maintenance.GetMaintenanceByID(ctx, requestID)
	if err != nil {
		return err
	}

	vehicle, err := s.vehicles.GetVehicleByID(ctx, req.VehicleID)
	if err != nil {
		return err
	}

	req.Finalize(vehicle)
	if err := s.maintenance.UpdateMaintenanceWithVehicle(ctx, req, vehicle); err != nil {
		return err
	}

	s.recordTransition(ctx, req, vehicle.ConditionStatus)
	return nil
}

func (s *MaintenanceService) recordTransition(ctx context.Context, req *models.MaintenanceRequest, vehicleCondition string) {
	util.MaintenanceTransitionsTotal.WithLabelValues(req.Status).Inc()
	s.logger.Info("Maintenance request transitioned",
		zap.Int64("maintenance_id", req.ID),
		zap.Int64("vehicle_id", req.VehicleID),
		zap.String("status", req.Status))

	event := &models.MaintenanceEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: maintenanceEventType(req.Status),
			Timestamp: time.Now(),
		},
		MaintenanceID:    req.ID,
		VehicleID:        req.VehicleID,
		Status:           req.Status,
		OperatorID:       req.OperatorID,
		VehicleCondition: vehicleCondition,
	}
	if err := s.events.PublishMaintenanceEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish maintenance event",
			zap.Int64("maintenance_id", req.ID),
			zap.Error(err))
	}
}

func maintenanceEventType(status string) string {
	switch status {
	case models.MaintenanceApproved:
		return models.EventTypeMaintenanceAssigned
	case models.MaintenanceFinished:
		return models.EventTypeMaintenanceFinalized
	default:
		return models.EventTypeMaintenanceCreated
	}
}
