package models

import (
	"strings"
	"time"

	"fleet-service/internal/apperrors"
)

// Vehicle operational statuses
const (
	VehicleEnabled  = "HABILITADO"
	VehicleDisabled = "INHABILITADO"
)

// Vehicle condition statuses
const (
	VehicleRepaired    = "REPARADO"
	VehicleUnderRepair = "EN_REPARACION"
)

// Vehicle is a fleet unit
type Vehicle struct {
	ID                int64     `db:"id" json:"id"`
	Plate             string    `db:"plate" json:"plate"`
	Model             string    `db:"model" json:"model"`
	Age               int       `db:"age" json:"age"`
	Mileage           int       `db:"mileage" json:"mileage"`
	RevisionDue       time.Time `db:"revision_due" json:"revision_due"`
	OperationalStatus string    `db:"operational_status" json:"operational_status"`
	ConditionStatus   string    `db:"condition_status" json:"condition_status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleAdmin      = "ADMINISTRADOR"
	RoleSupervisor = "SUPERVISOR"
	RoleManager    = "GERENTE"
	RoleOperator   = "OPERADOR"
)

// User is an account that may act on the fleet
type User struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Role string `db:"role" json:"role"`
}

// Validate checks the name and that the role is one of the known roles
func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return apperrors.BadRequest("user name must not be empty")
	}
	switch u.Role {
	case RoleAdmin, RoleSupervisor, RoleManager, RoleOperator:
		return nil
	}
	return apperrors.BadRequest("unknown role %q", u.Role)
}

// Operator is a user verified to hold the OPERADOR role. The zero value is
// not a valid operator; build one with NewOperator.
type Operator struct {
	id   int64
	name string
}

// NewOperator checks the user's role and returns an Operator capability
func NewOperator(u User) (Operator, error) {
	if u.Role != RoleOperator {
		return Operator{}, apperrors.BadRequest("user %d has role %q, not %s", u.ID, u.Role, RoleOperator)
	}
	return Operator{id: u.ID, name: u.Name}, nil
}

func (o Operator) ID() int64    { return o.id }
func (o Operator) Name() string { return o.name }

// Maintenance request statuses, strictly forward
const (
	MaintenancePending  = "PENDIENTE"
	MaintenanceApproved = "APROBADO"
	MaintenanceFinished = "FINALIZADO"
)

// MaintenanceRequest tracks work on a vehicle
type MaintenanceRequest struct {
	ID         int64     `db:"id" json:"id"`
	VehicleID  int64     `db:"vehicle_id" json:"vehicle_id"`
	Subject    string    `db:"subject" json:"subject"`
	OperatorID *int64    `db:"operator_id" json:"operator_id,omitempty"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// NewMaintenanceRequest validates the subject and returns a PENDIENTE request
func NewMaintenanceRequest(vehicleID int64, subject string) (*MaintenanceRequest, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, apperrors.BadRequest("maintenance subject must not be empty")
	}
	return &MaintenanceRequest{
		VehicleID: vehicleID,
		Subject:   subject,
		Status:    MaintenancePending,
	}, nil
}

// Assign records the operator and approves the request. Re-assignment is
// allowed from any status.
func (m *MaintenanceRequest) Assign(op Operator) {
	id := op.ID()
	m.OperatorID = &id
	m.Status = MaintenanceApproved
}

// Finalize closes the request and marks the vehicle EN_REPARACION.
// FIXME: finishing maintenance arguably should mark the vehicle REPARADO;
// kept as-is until the fleet team confirms the intended condition.
func (m *MaintenanceRequest) Finalize(v *Vehicle) {
	m.Status = MaintenanceFinished
	v.ConditionStatus = VehicleUnderRepair
}

// MaintenanceRequestView is the external representation of a request
type MaintenanceRequestView struct {
	ID         int64  `json:"id"`
	VehicleID  int64  `json:"vehicle_id"`
	Subject    string `json:"subject"`
	OperatorID *int64 `json:"operator_id,omitempty"`
	Status     string `json:"status"`
}

// View maps the request to its external representation
func (m MaintenanceRequest) View() MaintenanceRequestView {
	return MaintenanceRequestView{
		ID:         m.ID,
		VehicleID:  m.VehicleID,
		Subject:    m.Subject,
		OperatorID: m.OperatorID,
		Status:     m.Status,
	}
}

// VehicleHistory is a vehicle together with its maintenance records
type VehicleHistory struct {
	Vehicle     Vehicle                  `json:"vehicle"`
	Maintenance []MaintenanceRequestView `json:"maintenance"`
}
