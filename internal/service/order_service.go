package service

import (
	"context"
	"fmt"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"go.uber.org/zap"
)

// OrderService handles manual purchase orders and order queries
type OrderService struct {
	inventory InventoryRepository
	orders    OrderRepository
	events    EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	inventory InventoryRepository,
	orders OrderRepository,
	events EventPublisher,
) *OrderService {
	return &OrderService{
		inventory: inventory,
		orders:    orders,
		events:    publisherOrNoop(events),
		now:       time.Now,
		logger:    util.ComponentLogger("orders"),
	}
}

// CreateOrderRequest represents a request to create a manual order
type CreateOrderRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required"`
}

// CreateManualOrder creates a PENDING order dated today. No policy or budget
// checks apply, but the item must not already have an open order.
func (s *OrderService) CreateManualOrder(ctx context.Context, itemID int64, quantity int) (view *models.PurchaseOrderView, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateManualOrder")
	defer func() { util.EndSpan(span, err) }()

	if quantity <= 0 {
		return nil, apperrors.BadRequest("quantity must be positive, got %d", quantity)
	}

	exists, err := s.inventory.InventoryItemExists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound("inventory item", itemID)
	}

	order := &models.PurchaseOrder{
		ItemID:    itemID,
		Quantity:  quantity,
		Status:    models.OrderStatusPending,
		Source:    models.OrderSourceManual,
		Motive:    models.MotiveManual,
		OrderDate: dateOf(s.now()),
	}
	if err := s.orders.CreateOrderIfNoneOpen(ctx, order); err != nil {
		return nil, fmt.Errorf("create manual order: %w", err)
	}

	util.PurchaseOrdersCreatedTotal.WithLabelValues(models.OrderSourceManual).Inc()
	s.logger.Info("Manual purchase order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("item_id", itemID),
		zap.Int("quantity", quantity))

	publishOrderCreated(ctx, s.events, s.logger, order)

	v := order.View()
	return &v, nil
}

// ListOrders returns every order in its external form
func (s *OrderService) ListOrders(ctx context.Context) ([]models.PurchaseOrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.PurchaseOrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, o.View())
	}
	return views, nil
}
