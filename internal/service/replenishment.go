package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SkipReason explains why an item produced no order in a cycle
type SkipReason string

const (
	SkipNoDeficit  SkipReason = "no_deficit"
	SkipNoSupplier SkipReason = "no_supplier"
	SkipOverBudget SkipReason = "over_budget"
	SkipOpenOrder  SkipReason = "open_order"
)

// CycleLocker guards a cycle across processes. TryLock must not block; ok is
// false when another holder owns the lock.
type CycleLocker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// CycleReport summarises one replenishment cycle
type CycleReport struct {
	Date      time.Time
	Evaluated int
	Created   []models.PurchaseOrder
	Skipped   map[SkipReason]int
	Failed    map[int64]error
	Err       error
}

func newCycleReport(date time.Time) *CycleReport {
	return &CycleReport{
		Date:    date,
		Skipped: make(map[SkipReason]int),
		Failed:  make(map[int64]error),
	}
}

// ReplenishmentEngine scans inventory and reorders items below threshold
// from the cheapest supplier. Only one cycle runs at a time; triggers that
// arrive while a cycle is running are dropped.
type ReplenishmentEngine struct {
	inventory InventoryRepository
	orders    OrderRepository
	catalog   SupplierCatalog
	policies  PolicyProvider
	events    EventPublisher
	locker    CycleLocker
	now       func() time.Time
	running   sync.Mutex
	logger    *zap.Logger
}

// EngineOption customises a ReplenishmentEngine
type EngineOption func(*ReplenishmentEngine)

// WithCycleLocker adds a distributed lock on top of the in-process one
func WithCycleLocker(l CycleLocker) EngineOption {
	return func(e *ReplenishmentEngine) { e.locker = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *ReplenishmentEngine) { e.now = now }
}

// NewReplenishmentEngine creates the engine after checking that a usable
// policy is configured. A missing or zero policy fails with ErrConfiguration.
func NewReplenishmentEngine(
	ctx context.Context,
	inventory InventoryRepository,
	orders OrderRepository,
	catalog SupplierCatalog,
	policies PolicyProvider,
	events EventPublisher,
	opts ...EngineOption,
) (*ReplenishmentEngine, error) {
	policy, err := policies.CurrentPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load replenishment policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	e := &ReplenishmentEngine{
		inventory: inventory,
		orders:    orders,
		catalog:   catalog,
		policies:  policies,
		events:    publisherOrNoop(events),
		now:       time.Now,
		logger:    util.ComponentLogger("replenishment"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// TriggerCycle runs one cycle if none is in progress. It never returns an
// error; outcomes are logged and counted.
func (e *ReplenishmentEngine) TriggerCycle(ctx context.Context) {
	report, ran := e.RunCycle(ctx)
	if !ran {
		return
	}
	if report.Err != nil {
		e.logger.Error("Replenishment cycle aborted", zap.Error(report.Err))
		return
	}
	e.logger.Info("Replenishment cycle finished",
		zap.Time("date", report.Date),
		zap.Int("evaluated", report.Evaluated),
		zap.Int("created", len(report.Created)),
		zap.Int("failed", len(report.Failed)),
		zap.Any("skipped", report.Skipped))
}

// Wait blocks until no cycle is running or ctx is done. Call it after the
// triggers have been stopped, before closing the stores.
func (e *ReplenishmentEngine) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		e.running.Lock()
		e.running.Unlock()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCycle evaluates every inventory item once. ran is false when the cycle
// was skipped because another one holds the lock.
func (e *ReplenishmentEngine) RunCycle(ctx context.Context) (report *CycleReport, ran bool) {
	if !e.running.TryLock() {
		util.ReplenishmentCyclesTotal.WithLabelValues("skipped_busy").Inc()
		e.logger.Info("Replenishment cycle already running, skipping trigger")
		return nil, false
	}
	defer e.running.Unlock()

	if e.locker != nil {
		release, ok, err := e.locker.TryLock(ctx)
		if err != nil {
			util.ReplenishmentCyclesTotal.WithLabelValues("lock_error").Inc()
			e.logger.Warn("Failed to acquire cycle lock, skipping trigger", zap.Error(err))
			return nil, false
		}
		if !ok {
			util.ReplenishmentCyclesTotal.WithLabelValues("skipped_busy").Inc()
			e.logger.Info("Replenishment cycle running on another instance, skipping trigger")
			return nil, false
		}
		defer release()
	}

	ctx, span := util.StartSpan(ctx, "ReplenishmentEngine.RunCycle")
	start := e.now()
	report = newCycleReport(dateOf(start))
	defer func() {
		util.EndSpan(span, report.Err)
		util.ReplenishmentCycleDuration.Observe(e.now().Sub(start).Seconds())
	}()

	policy, err := e.policies.CurrentPolicy(ctx)
	if err == nil {
		err = policy.Validate()
	}
	if err != nil {
		util.ReplenishmentCyclesTotal.WithLabelValues("failed").Inc()
		report.Err = fmt.Errorf("load replenishment policy: %w", err)
		return report, true
	}

	items, err := e.inventory.ListInventoryItems(ctx)
	if err != nil {
		util.ReplenishmentCyclesTotal.WithLabelValues("failed").Inc()
		report.Err = fmt.Errorf("list inventory: %w", err)
		return report, true
	}

	for _, item := range items {
		if ctx.Err() != nil {
			report.Err = ctx.Err()
			break
		}
		report.Evaluated++

		if err := e.evaluateItem(ctx, policy, item, report); err != nil {
			util.ReplenishmentItemFailuresTotal.Inc()
			report.Failed[item.ID] = err
			e.logger.Error("Replenishment failed for item",
				zap.Int64("item_id", item.ID),
				zap.Error(err))
		}
	}

	if report.Err != nil {
		util.ReplenishmentCyclesTotal.WithLabelValues("cancelled").Inc()
		return report, true
	}
	util.ReplenishmentCyclesTotal.WithLabelValues("completed").Inc()
	return report, true
}

// evaluateItem applies the policy to one item. Skips are recorded on the
// report; only unexpected failures are returned.
func (e *ReplenishmentEngine) evaluateItem(
	ctx context.Context,
	policy *models.ReplenishmentPolicy,
	item models.InventoryItem,
	report *CycleReport,
) error {
	skip := func(reason SkipReason) error {
		report.Skipped[reason]++
		util.ReplenishmentItemsSkippedTotal.WithLabelValues(string(reason)).Inc()
		return nil
	}

	if item.Stock >= item.Threshold {
		return skip(SkipNoDeficit)
	}

	quantity := policy.OrderQuantity(item)

	offer, err := e.catalog.CheapestOfferForItem(ctx, item.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		e.logger.Warn("Item below threshold has no supplier offer",
			zap.Int64("item_id", item.ID),
			zap.String("item", item.Name),
			zap.Int("deficit", item.Deficit()))
		return skip(SkipNoSupplier)
	}
	if err != nil {
		return fmt.Errorf("cheapest offer: %w", err)
	}

	cost := offer.Cost(quantity)
	if !policy.Affordable(cost) {
		e.logger.Info("Reorder exceeds budget ceiling",
			zap.Int64("item_id", item.ID),
			zap.String("cost", cost.String()),
			zap.String("budget_ceiling", policy.BudgetCeiling.String()))
		return skip(SkipOverBudget)
	}

	open, err := e.orders.ExistsOpenOrderForItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("check open order: %w", err)
	}
	if open {
		return skip(SkipOpenOrder)
	}

	order := &models.PurchaseOrder{
		ItemID:    item.ID,
		Quantity:  quantity,
		Status:    models.OrderStatusPending,
		Source:    models.OrderSourceAutomatic,
		Motive:    models.MotiveAutomatic,
		OrderDate: report.Date,
	}
	if err := e.orders.CreateOrderIfNoneOpen(ctx, order); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return skip(SkipOpenOrder)
		}
		return fmt.Errorf("create order: %w", err)
	}

	report.Created = append(report.Created, *order)
	util.PurchaseOrdersCreatedTotal.WithLabelValues(models.OrderSourceAutomatic).Inc()
	e.logger.Info("Automatic purchase order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("item_id", item.ID),
		zap.Int64("supplier_id", offer.SupplierID),
		zap.Int("quantity", quantity),
		zap.String("cost", cost.String()))

	publishOrderCreated(ctx, e.events, e.logger, order)
	return nil
}

func publishOrderCreated(ctx context.Context, events EventPublisher, logger *zap.Logger, order *models.PurchaseOrder) {
	event := &models.PurchaseOrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:  order.ID,
		ItemID:   order.ItemID,
		Quantity: order.Quantity,
		Source:   order.Source,
	}
	if err := events.PublishPurchaseOrderCreated(ctx, event); err != nil {
		logger.Error("Failed to publish PurchaseOrderCreated event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}

// dateOf truncates t to midnight UTC of its calendar day
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
