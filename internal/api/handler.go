package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/service"
	"fleet-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the HTTP layer calls into
type Services struct {
	Orders      *service.OrderService
	Maintenance *service.MaintenanceService
	Vehicles    *service.VehicleService
	Inventory   *service.InventoryService
	Users       *service.UserService
	Engine      service.CycleTrigger
}

// Handler contains HTTP handlers
type Handler struct {
	orders      *service.OrderService
	maintenance *service.MaintenanceService
	vehicles    *service.VehicleService
	inventory   *service.InventoryService
	users       *service.UserService
	engine      service.CycleTrigger
	deps        map[string]Pinger
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. deps are checked by /ready.
func NewHandler(svc Services, deps map[string]Pinger) *Handler {
	return &Handler{
		orders:      svc.Orders,
		maintenance: svc.Maintenance,
		vehicles:    svc.Vehicles,
		inventory:   svc.Inventory,
		users:       svc.Users,
		engine:      svc.Engine,
		deps:        deps,
		logger:      util.ComponentLogger("http"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.POST("/replenishment/trigger", h.triggerReplenishment)

		v1.POST("/maintenance", h.createMaintenance)
		v1.POST("/maintenance/:id/assign", h.assignMaintenance)
		v1.POST("/maintenance/:id/finalize", h.finalizeMaintenance)

		v1.POST("/vehicles", h.registerVehicle)
		v1.GET("/vehicles", h.listVehicles)
		v1.POST("/vehicles/:id/disable", h.disableVehicle)
		v1.POST("/vehicles/:id/enable", h.enableVehicle)
		v1.GET("/vehicles/history/:plate", h.vehicleHistory)

		v1.POST("/inventory", h.registerItem)
		v1.GET("/inventory", h.listItems)
		v1.POST("/inventory/:id/suppliers", h.associateSupplier)

		v1.POST("/suppliers", h.registerSupplier)

		v1.POST("/users", h.registerUser)
		v1.GET("/users", h.listUsers)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder handles manual order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.CreateManualOrder(c.Request.Context(), req.ItemID, req.Quantity)
	if err != nil {
		h.writeError(c, "Failed to create order", err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list orders", err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// triggerReplenishment starts a cycle in the background and returns at once.
// The cycle outlives the request, so it gets a context that is never cancelled.
func (h *Handler) triggerReplenishment(c *gin.Context) {
	go h.engine.TriggerCycle(context.WithoutCancel(c.Request.Context()))

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *Handler) createMaintenance(c *gin.Context) {
	var req service.CreateMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.maintenance.CreateMaintenanceRequest(c.Request.Context(), req.VehicleID, req.Subject)
	if err != nil {
		h.writeError(c, "Failed to create maintenance request", err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *Handler) assignMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.AssignMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.maintenance.AssignMaintenanceToUser(c.Request.Context(), id, req.OperatorID); err != nil {
		h.writeError(c, "Failed to assign maintenance request", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": "assigned"})
}

func (h *Handler) finalizeMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.maintenance.FinalizeMaintenance(c.Request.Context(), id); err != nil {
		h.writeError(c, "Failed to finalize maintenance request", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": "finalized"})
}

func (h *Handler) registerVehicle(c *gin.Context) {
	var req service.RegisterVehicleRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := h.vehicles.RegisterVehicle(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "Failed to register vehicle", err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

func (h *Handler) listVehicles(c *gin.Context) {
	vehicles, err := h.vehicles.ListVehicles(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list vehicles", err)
		return
	}

	c.JSON(http.StatusOK, vehicles)
}

func (h *Handler) disableVehicle(c *gin.Context) {
	h.toggleVehicle(c, h.vehicles.DisableVehicle)
}

func (h *Handler) enableVehicle(c *gin.Context) {
	h.toggleVehicle(c, h.vehicles.EnableVehicle)
}

func (h *Handler) toggleVehicle(c *gin.Context, apply func(context.Context, int64) error) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), id); err != nil {
		h.writeError(c, "Failed to update vehicle", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) vehicleHistory(c *gin.Context) {
	history, err := h.vehicles.VehicleHistory(c.Request.Context(), c.Param("plate"))
	if err != nil {
		h.writeError(c, "Failed to load vehicle history", err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *Handler) registerItem(c *gin.Context) {
	var req service.RegisterItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.inventory.RegisterItem(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "Failed to register item", err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *Handler) listItems(c *gin.Context) {
	items, err := h.inventory.ListItems(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list inventory", err)
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *Handler) associateSupplier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.AssociateSupplierRequest
	if !bindJSON(c, &req) {
		return
	}

	offer, err := h.inventory.AssociateSupplier(c.Request.Context(), id, req.SupplierID, req.UnitPrice)
	if err != nil {
		h.writeError(c, "Failed to associate supplier", err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

func (h *Handler) registerSupplier(c *gin.Context) {
	var req service.RegisterSupplierRequest
	if !bindJSON(c, &req) {
		return
	}

	supplier, err := h.inventory.RegisterSupplier(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "Failed to register supplier", err)
		return
	}

	c.JSON(http.StatusCreated, supplier)
}

func (h *Handler) registerUser(c *gin.Context) {
	var req service.RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.users.RegisterUser(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "Failed to register user", err)
		return
	}

	c.JSON(http.StatusCreated, u)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list users", err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid ID",
		})
		return 0, false
	}
	return id, true
}

// writeError maps error kinds onto HTTP statuses
func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.String("path", c.FullPath()),
			zap.String("kind", apperrors.Kind(err)),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
