package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fleet-service/internal/apperrors"
	"fleet-service/internal/models"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory ledger covering the inventory, order, catalog,
// policy and event-log contracts. CreateOrderIfNoneOpen is atomic under mu.
type memStore struct {
	mu sync.Mutex

	items     map[int64]models.InventoryItem
	suppliers map[int64]bool
	offers    map[int64][]models.SupplierOffer
	orders    []models.PurchaseOrder
	processed map[string]bool
	policy    *models.ReplenishmentPolicy

	policyErr    error
	listErr      error
	offerErr     map[int64]error
	createErr    map[int64]error
	applyErr     error
	onList       func()
	beforeCreate func(order *models.PurchaseOrder)

	createCalls int
}

func newMemStore() *memStore {
	return &memStore{
		items:     make(map[int64]models.InventoryItem),
		suppliers: make(map[int64]bool),
		offers:    make(map[int64][]models.SupplierOffer),
		processed: make(map[string]bool),
		offerErr:  make(map[int64]error),
		createErr: make(map[int64]error),
		policy:    &models.ReplenishmentPolicy{DefaultIncrement: 100, BudgetCeiling: decimal.NewFromInt(10000)},
	}
}

func (m *memStore) addItem(id int64, stock, threshold int) {
	m.items[id] = models.InventoryItem{ID: id, Name: fmt.Sprintf("part-%d", id), Stock: stock, Threshold: threshold}
}

func (m *memStore) addOffer(itemID, supplierID int64, price string) {
	m.suppliers[supplierID] = true
	m.offers[itemID] = append(m.offers[itemID], models.SupplierOffer{
		ItemID:     itemID,
		SupplierID: supplierID,
		UnitPrice:  decimal.RequireFromString(price),
	})
}

func (m *memStore) addOrder(itemID int64, status string) {
	m.orders = append(m.orders, models.PurchaseOrder{
		ID:       int64(len(m.orders) + 1),
		ItemID:   itemID,
		Quantity: 1,
		Status:   status,
	})
}

func (m *memStore) ordersFor(itemID int64) []models.PurchaseOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PurchaseOrder
	for _, o := range m.orders {
		if o.ItemID == itemID {
			out = append(out, o)
		}
	}
	return out
}

func (m *memStore) openOrdersFor(itemID int64) int {
	n := 0
	for _, o := range m.ordersFor(itemID) {
		if o.IsOpen() {
			n++
		}
	}
	return n
}

func (m *memStore) ListInventoryItems(context.Context) ([]models.InventoryItem, error) {
	if m.onList != nil {
		m.onList()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	items := make([]models.InventoryItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *memStore) InventoryItemExists(_ context.Context, itemID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[itemID]
	return ok, nil
}

func (m *memStore) CreateInventoryItem(_ context.Context, item *models.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = int64(len(m.items) + 1)
	m.items[item.ID] = *item
	return nil
}

func (m *memStore) CreateOrderIfNoneOpen(_ context.Context, order *models.PurchaseOrder) error {
	if m.beforeCreate != nil {
		m.beforeCreate(order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if err := m.createErr[order.ItemID]; err != nil {
		return err
	}
	if _, ok := m.items[order.ItemID]; !ok {
		return apperrors.NotFound("inventory item", order.ItemID)
	}
	for _, o := range m.orders {
		if o.ItemID == order.ItemID && o.IsOpen() {
			return fmt.Errorf("item %d already has an open order: %w", order.ItemID, apperrors.ErrConflict)
		}
	}
	order.ID = int64(len(m.orders) + 1)
	order.CreatedAt = time.Now()
	m.orders = append(m.orders, *order)
	return nil
}

func (m *memStore) ExistsOpenOrderForItem(_ context.Context, itemID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ItemID == itemID && o.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListOrders(context.Context) ([]models.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PurchaseOrder(nil), m.orders...), nil
}

func (m *memStore) ApplyOrderStatus(_ context.Context, orderID int64, status string) (*models.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.applyErr != nil {
		return nil, m.applyErr
	}
	for i := range m.orders {
		o := &m.orders[i]
		if o.ID != orderID {
			continue
		}
		if !models.CanTransitionOrder(o.Status, status) {
			return nil, fmt.Errorf("order %d: %w", orderID, apperrors.ErrConflict)
		}
		o.Status = status
		if status == models.OrderStatusReceived {
			item := m.items[o.ItemID]
			item.Stock += o.Quantity
			m.items[o.ItemID] = item
		}
		out := *o
		return &out, nil
	}
	return nil, apperrors.NotFound("purchase order", orderID)
}

func (m *memStore) CheapestOfferForItem(_ context.Context, itemID int64) (*models.SupplierOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.offerErr[itemID]; err != nil {
		return nil, err
	}
	offers := m.offers[itemID]
	if len(offers) == 0 {
		return nil, apperrors.NotFound("supplier offer for item", itemID)
	}
	best := offers[0]
	for _, o := range offers[1:] {
		if o.UnitPrice.LessThan(best.UnitPrice) {
			best = o
		}
	}
	return &best, nil
}

func (m *memStore) CreateSupplier(_ context.Context, supplier *models.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	supplier.ID = int64(len(m.suppliers) + 1)
	m.suppliers[supplier.ID] = true
	return nil
}

func (m *memStore) SupplierExists(_ context.Context, supplierID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppliers[supplierID], nil
}

func (m *memStore) UpsertSupplierOffer(_ context.Context, offer *models.SupplierOffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	offers := m.offers[offer.ItemID]
	for i := range offers {
		if offers[i].SupplierID == offer.SupplierID {
			offers[i].UnitPrice = offer.UnitPrice
			return nil
		}
	}
	m.offers[offer.ItemID] = append(offers, *offer)
	return nil
}

func (m *memStore) CurrentPolicy(context.Context) (*models.ReplenishmentPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.policyErr != nil {
		return nil, m.policyErr
	}
	if m.policy == nil {
		return nil, fmt.Errorf("replenishment policy not configured: %w", apperrors.ErrConfiguration)
	}
	p := *m.policy
	return &p, nil
}

func (m *memStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[eventID], nil
}

func (m *memStore) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = true
	return nil
}

// fleetStore keeps vehicles and maintenance requests in memory with the same
// column-scoped writes as the Postgres store. afterRead runs once, right after
// the next GetVehicleByID returns its copy.
type fleetStore struct {
	mu        sync.Mutex
	vehicles  map[int64]models.Vehicle
	requests  map[int64]models.MaintenanceRequest
	afterRead func()
}

func newFleetStore() *fleetStore {
	return &fleetStore{
		vehicles: make(map[int64]models.Vehicle),
		requests: make(map[int64]models.MaintenanceRequest),
	}
}

func (f *fleetStore) CreateVehicle(_ context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = int64(len(f.vehicles) + 1)
	f.vehicles[v.ID] = *v
	return nil
}

func (f *fleetStore) GetVehicleByID(_ context.Context, id int64) (*models.Vehicle, error) {
	f.mu.Lock()
	v, ok := f.vehicles[id]
	hook := f.afterRead
	f.afterRead = nil
	f.mu.Unlock()

	if !ok {
		return nil, apperrors.NotFound("vehicle", id)
	}
	if hook != nil {
		hook()
	}
	return &v, nil
}

func (f *fleetStore) GetVehicleByPlate(_ context.Context, plate string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vehicles {
		if v.Plate == plate {
			return &v, nil
		}
	}
	return nil, apperrors.NotFound("vehicle with plate", plate)
}

func (f *fleetStore) ListVehicles(context.Context) ([]models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Vehicle, 0, len(f.vehicles))
	for _, v := range f.vehicles {
		out = append(out, v)
	}
	return out, nil
}

func (f *fleetStore) SetOperationalStatus(_ context.Context, id int64, status string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return nil, apperrors.NotFound("vehicle", id)
	}
	v.OperationalStatus = status
	f.vehicles[id] = v
	return &v, nil
}

func (f *fleetStore) CreateMaintenance(_ context.Context, m *models.MaintenanceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = int64(len(f.requests) + 1)
	f.requests[m.ID] = *m
	return nil
}

func (f *fleetStore) GetMaintenanceByID(_ context.Context, id int64) (*models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("maintenance request", id)
	}
	return &m, nil
}

func (f *fleetStore) ListMaintenanceByVehicle(_ context.Context, vehicleID int64) ([]models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MaintenanceRequest
	for _, m := range f.requests {
		if m.VehicleID == vehicleID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fleetStore) UpdateMaintenance(_ context.Context, m *models.MaintenanceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[m.ID] = *m
	return nil
}

func (f *fleetStore) UpdateMaintenanceWithVehicle(_ context.Context, m *models.MaintenanceRequest, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.vehicles[v.ID]
	if !ok {
		return apperrors.NotFound("vehicle", v.ID)
	}
	stored.ConditionStatus = v.ConditionStatus
	f.vehicles[v.ID] = stored
	f.requests[m.ID] = *m
	*v = stored
	return nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu          sync.Mutex
	orders      []*models.PurchaseOrderCreatedEvent
	maintenance []*models.MaintenanceEvent
	err         error
}

func (p *recordingPublisher) PublishPurchaseOrderCreated(_ context.Context, e *models.PurchaseOrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, e)
	return p.err
}

func (p *recordingPublisher) PublishMaintenanceEvent(_ context.Context, e *models.MaintenanceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maintenance = append(p.maintenance, e)
	return p.err
}

// fakeLocker is a CycleLocker with a scripted answer
type fakeLocker struct {
	ok       bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(context.Context) (func(), bool, error) {
	if l.err != nil || !l.ok {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}

var fixedNow = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
