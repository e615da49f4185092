package service

import (
	"context"
	"errors"
	"fmt"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"go.uber.org/zap"
)

// CycleTrigger starts a replenishment cycle; *ReplenishmentEngine satisfies it
type CycleTrigger interface {
	TriggerCycle(ctx context.Context)
}

// FulfillmentService reacts to commands from downstream systems: order
// status updates from fulfillment and replenishment triggers from external
// schedulers. Each event is applied at most once.
type FulfillmentService struct {
	orders   OrderRepository
	eventLog EventLog
	trigger  CycleTrigger
	logger   *zap.Logger
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(orders OrderRepository, eventLog EventLog, trigger CycleTrigger) *FulfillmentService {
	return &FulfillmentService{
		orders:   orders,
		eventLog: eventLog,
		trigger:  trigger,
		logger:   util.ComponentLogger("fulfillment"),
	}
}

// HandleOrderStatusChanged applies a forward status change. Illegal
// transitions and unknown orders are logged and acknowledged so the message
// is not redelivered forever.
func (fs *FulfillmentService) HandleOrderStatusChanged(ctx context.Context, event *models.PurchaseOrderStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.HandleOrderStatusChanged")
	defer span.End()

	processed, err := fs.eventLog.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		fs.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := fs.orders.ApplyOrderStatus(ctx, event.OrderID, event.Status)
	switch {
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrConflict):
		fs.logger.Warn("Rejected order status change",
			zap.Int64("order_id", event.OrderID),
			zap.String("status", event.Status),
			zap.Error(err))
	case err != nil:
		return fmt.Errorf("failed to apply order status: %w", err)
	default:
		util.PurchaseOrderTransitionsTotal.WithLabelValues(order.Status).Inc()
		fs.logger.Info("Purchase order status changed",
			zap.Int64("order_id", order.ID),
			zap.Int64("item_id", order.ItemID),
			zap.String("status", order.Status))
	}

	if err := fs.eventLog.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		fs.logger.Error("Failed to mark event processed",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
	return nil
}

// HandleTriggerReplenishment starts a cycle on behalf of an external
// scheduler and returns without waiting, so status updates behind it on the
// topic are not held up. A busy engine drops the trigger.
func (fs *FulfillmentService) HandleTriggerReplenishment(ctx context.Context, cmd *models.TriggerReplenishmentCommand) error {
	fs.logger.Info("Replenishment trigger received",
		zap.String("event_id", cmd.EventID),
		zap.String("requested_by", cmd.RequestedBy))
	go fs.trigger.TriggerCycle(context.WithoutCancel(ctx))
	return nil
}
