package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, ms *memStore, pub EventPublisher, opts ...EngineOption) *ReplenishmentEngine {
	t.Helper()
	opts = append([]EngineOption{WithClock(fixedClock)}, opts...)
	engine, err := NewReplenishmentEngine(context.Background(), ms, ms, ms, ms, pub, opts...)
	require.NoError(t, err)
	return engine
}

func runCycle(t *testing.T, engine *ReplenishmentEngine) *CycleReport {
	t.Helper()
	report, ran := engine.RunCycle(context.Background())
	require.True(t, ran)
	require.NoError(t, report.Err)
	return report
}

func TestNewReplenishmentEngine_RejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy *models.ReplenishmentPolicy
	}{
		{name: "missing", policy: nil},
		{name: "zero increment", policy: &models.ReplenishmentPolicy{DefaultIncrement: 0, BudgetCeiling: decimal.NewFromInt(100)}},
		{name: "zero budget", policy: &models.ReplenishmentPolicy{DefaultIncrement: 10, BudgetCeiling: decimal.Zero}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newMemStore()
			ms.policy = tt.policy

			engine, err := NewReplenishmentEngine(context.Background(), ms, ms, ms, ms, nil)
			assert.Nil(t, engine)
			assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		})
	}
}

func TestRunCycle_OrdersDefaultIncrementPlusDeficit(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 20, 50)
	ms.addOffer(1, 7, "2.00")
	pub := &recordingPublisher{}

	report := runCycle(t, newTestEngine(t, ms, pub))

	require.Len(t, report.Created, 1)
	order := report.Created[0]
	assert.Equal(t, int64(1), order.ItemID)
	assert.Equal(t, 130, order.Quantity)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.OrderSourceAutomatic, order.Source)
	assert.Equal(t, models.MotiveAutomatic, order.Motive)
	assert.Equal(t, "2026-05-04", order.View().OrderDate)
	assert.Equal(t, 1, report.Evaluated)

	require.Len(t, pub.orders, 1)
	assert.Equal(t, order.ID, pub.orders[0].OrderID)
	assert.Equal(t, models.EventTypePurchaseOrderCreated, pub.orders[0].EventType)
}

func TestRunCycle_SkipsItemsAtOrAboveThreshold(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 50, 50)
	ms.addItem(2, 80, 50)
	ms.addOffer(1, 7, "1.00")
	ms.addOffer(2, 7, "1.00")

	report := runCycle(t, newTestEngine(t, ms, nil))

	assert.Empty(t, report.Created)
	assert.Equal(t, 2, report.Skipped[SkipNoDeficit])
	assert.Zero(t, ms.createCalls)
}

func TestRunCycle_DoesNotDuplicateOpenOrders(t *testing.T) {
	for _, status := range []string{models.OrderStatusPending, models.OrderStatusApproved} {
		t.Run(status, func(t *testing.T) {
			ms := newMemStore()
			ms.addItem(1, 0, 10)
			ms.addOffer(1, 7, "1.00")
			ms.addOrder(1, status)

			report := runCycle(t, newTestEngine(t, ms, nil))

			assert.Empty(t, report.Created)
			assert.Equal(t, 1, report.Skipped[SkipOpenOrder])
			assert.Len(t, ms.ordersFor(1), 1)
		})
	}
}

func TestRunCycle_ClosedOrdersDoNotBlockReorder(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")
	ms.addOrder(1, models.OrderStatusReceived)
	ms.addOrder(1, models.OrderStatusCancelled)

	report := runCycle(t, newTestEngine(t, ms, nil))

	assert.Len(t, report.Created, 1)
	assert.Equal(t, 1, ms.openOrdersFor(1))
}

func TestRunCycle_NoSupplierSkipsAndContinues(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addItem(2, 0, 10)
	ms.addOffer(2, 7, "1.00")

	report := runCycle(t, newTestEngine(t, ms, nil))

	assert.Equal(t, 1, report.Skipped[SkipNoSupplier])
	require.Len(t, report.Created, 1)
	assert.Equal(t, int64(2), report.Created[0].ItemID)
	assert.Empty(t, ms.ordersFor(1))
}

func TestRunCycle_BudgetCeilingIsStrict(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		ordered bool
	}{
		// quantity is 100 + 10 = 110 against a ceiling of 110
		{name: "below ceiling", price: "0.99", ordered: true},
		{name: "equal to ceiling", price: "1.00", ordered: false},
		{name: "above ceiling", price: "1.01", ordered: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newMemStore()
			ms.policy = &models.ReplenishmentPolicy{DefaultIncrement: 100, BudgetCeiling: decimal.NewFromInt(110)}
			ms.addItem(1, 0, 10)
			ms.addOffer(1, 7, tt.price)

			report := runCycle(t, newTestEngine(t, ms, nil))

			if tt.ordered {
				assert.Len(t, report.Created, 1)
			} else {
				assert.Empty(t, report.Created)
				assert.Equal(t, 1, report.Skipped[SkipOverBudget])
			}
		})
	}
}

func TestRunCycle_UsesCheapestOffer(t *testing.T) {
	ms := newMemStore()
	ms.policy = &models.ReplenishmentPolicy{DefaultIncrement: 10, BudgetCeiling: decimal.NewFromInt(100)}
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 3, "9.00")
	ms.addOffer(1, 4, "4.50")

	report := runCycle(t, newTestEngine(t, ms, nil))

	// 20 units at 4.50 fits; at 9.00 it would not
	assert.Len(t, report.Created, 1)
}

func TestRunCycle_BudgetIsPerItem(t *testing.T) {
	ms := newMemStore()
	ms.policy = &models.ReplenishmentPolicy{DefaultIncrement: 10, BudgetCeiling: decimal.NewFromInt(100)}
	for id := int64(1); id <= 3; id++ {
		ms.addItem(id, 0, 50)
		ms.addOffer(id, 7, "1.00")
	}

	report := runCycle(t, newTestEngine(t, ms, nil))

	// each order costs 60, three of them together exceed the ceiling
	assert.Len(t, report.Created, 3)
}

func TestRunCycle_IsolatesItemFailures(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addItem(2, 0, 10)
	ms.addItem(3, 0, 10)
	for id := int64(1); id <= 3; id++ {
		ms.addOffer(id, 7, "1.00")
	}
	ms.createErr[1] = apperrors.Persistence("insert purchase order", errors.New("connection reset"))
	ms.offerErr[2] = errors.New("catalog unavailable")

	report := runCycle(t, newTestEngine(t, ms, nil))

	assert.Equal(t, 3, report.Evaluated)
	require.Len(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed[1], apperrors.ErrPersistence)
	require.Len(t, report.Created, 1)
	assert.Equal(t, int64(3), report.Created[0].ItemID)
}

func TestRunCycle_ConflictOnCreateCountsAsOpenOrder(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")
	// a manual order lands between the open-order check and the insert
	ms.beforeCreate = func(*models.PurchaseOrder) {
		ms.mu.Lock()
		defer ms.mu.Unlock()
		if len(ms.orders) == 0 {
			ms.orders = append(ms.orders, models.PurchaseOrder{ID: 99, ItemID: 1, Status: models.OrderStatusPending})
		}
	}

	report := runCycle(t, newTestEngine(t, ms, nil))

	assert.Empty(t, report.Created)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 1, report.Skipped[SkipOpenOrder])
	assert.Equal(t, 1, ms.openOrdersFor(1))
}

func TestRunCycle_PublishFailureDoesNotFailCycle(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")
	pub := &recordingPublisher{err: errors.New("broker down")}

	report := runCycle(t, newTestEngine(t, ms, pub))

	assert.Len(t, report.Created, 1)
	assert.Empty(t, report.Failed)
}

func TestRunCycle_PolicyReadEachCycle(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")
	engine := newTestEngine(t, ms, nil)

	ms.mu.Lock()
	ms.policy = &models.ReplenishmentPolicy{DefaultIncrement: 0, BudgetCeiling: decimal.NewFromInt(10)}
	ms.mu.Unlock()

	report, ran := engine.RunCycle(context.Background())
	require.True(t, ran)
	assert.ErrorIs(t, report.Err, apperrors.ErrConfiguration)
	assert.Zero(t, ms.createCalls)
}

func TestRunCycle_ListFailureAbortsCycle(t *testing.T) {
	ms := newMemStore()
	ms.listErr = apperrors.Persistence("list inventory items", errors.New("timeout"))

	report, ran := newTestEngine(t, ms, nil).RunCycle(context.Background())
	require.True(t, ran)
	assert.ErrorIs(t, report.Err, apperrors.ErrPersistence)
}

func TestRunCycle_StopsWhenContextCancelled(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")
	engine := newTestEngine(t, ms, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, ran := engine.RunCycle(ctx)
	require.True(t, ran)
	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Zero(t, report.Evaluated)
}

func TestRunCycle_SkipsWhenBusy(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ms.onList = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	engine := newTestEngine(t, ms, nil)

	done := make(chan *CycleReport)
	go func() {
		report, _ := engine.RunCycle(context.Background())
		done <- report
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not start")
	}

	report, ran := engine.RunCycle(context.Background())
	assert.False(t, ran)
	assert.Nil(t, report)

	close(release)
	first := <-done
	require.NotNil(t, first)
	assert.Len(t, first.Created, 1)

	// the engine accepts triggers again once the cycle is done
	_, ran = engine.RunCycle(context.Background())
	assert.True(t, ran)
}

func TestWait_BlocksUntilCycleEnds(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ms.onList = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	engine := newTestEngine(t, ms, nil)

	assert.NoError(t, engine.Wait(context.Background()))

	go engine.TriggerCycle(context.Background())
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, engine.Wait(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, engine.Wait(context.Background()))
	assert.Len(t, ms.ordersFor(1), 1)
}

func TestRunCycle_DistributedLock(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		ms := newMemStore()
		ms.addItem(1, 0, 10)
		ms.addOffer(1, 7, "1.00")
		locker := &fakeLocker{ok: false}

		_, ran := newTestEngine(t, ms, nil, WithCycleLocker(locker)).RunCycle(context.Background())

		assert.False(t, ran)
		assert.Zero(t, ms.createCalls)
	})

	t.Run("lock error", func(t *testing.T) {
		ms := newMemStore()
		locker := &fakeLocker{err: errors.New("redis unreachable")}

		_, ran := newTestEngine(t, ms, nil, WithCycleLocker(locker)).RunCycle(context.Background())

		assert.False(t, ran)
	})

	t.Run("acquired and released", func(t *testing.T) {
		ms := newMemStore()
		ms.addItem(1, 0, 10)
		ms.addOffer(1, 7, "1.00")
		locker := &fakeLocker{ok: true}

		report := runCycle(t, newTestEngine(t, ms, nil, WithCycleLocker(locker)))

		assert.Len(t, report.Created, 1)
		assert.Equal(t, 1, locker.released)
	})
}

func TestTriggerCycle_SecondCycleFindsOpenOrder(t *testing.T) {
	ms := newMemStore()
	ms.addItem(1, 0, 10)
	ms.addOffer(1, 7, "1.00")
	engine := newTestEngine(t, ms, nil)

	engine.TriggerCycle(context.Background())
	engine.TriggerCycle(context.Background())

	assert.Len(t, ms.ordersFor(1), 1)
}

func TestDateOf(t *testing.T) {
	in := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), dateOf(in))
}
