package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhmrj/Sellium/internal/model"
)

// stubStore implements ProductStore and OrderStore in memory. CreateOrder
// mimics the conditional-decrement semantics of the real store: all
// decrements are checked and applied under one lock, and a failing item
// leaves every product untouched.
type stubStore struct {
	mu       sync.Mutex
	products map[uint]*model.Product
	orders   map[uint]*model.Order
	nextID   uint
	placed   int64
}

func newStubStore(products ...*model.Product) *stubStore {
	s := &stubStore{
		products: make(map[uint]*model.Product),
		orders:   make(map[uint]*model.Order),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *stubStore) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *stubStore) CreateOrder(ctx context.Context, o *model.Order, decrements []StockDecrement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range decrements {
		p, ok := s.products[d.ProductID]
		if !ok || p.Inventory.Quantity < d.Quantity {
			return fmt.Errorf("product %d: %w", d.ProductID, ErrInsufficientStock)
		}
	}
	for _, d := range decrements {
		s.products[d.ProductID].Inventory.Quantity -= d.Quantity
	}

	s.nextID++
	o.ID = s.nextID
	s.orders[o.ID] = o
	s.placed++
	return nil
}

func (s *stubStore) GetOrder(ctx context.Context, id uint) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	// Fresh copy per load, matching database semantics
	copied := *o
	copied.StatusHistory = append([]model.OrderStatusEvent(nil), o.StatusHistory...)
	return &copied, nil
}

func (s *stubStore) UpdateStatus(ctx context.Context, o *model.Order, event *model.OrderStatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.ID]
	if !ok {
		return ErrOrderNotFound
	}
	stored.Status = o.Status
	stored.Shipping.ActualDelivery = o.Shipping.ActualDelivery
	stored.CancelledBy = o.CancelledBy
	stored.CancelledAt = o.CancelledAt
	stored.StatusHistory = append(stored.StatusHistory, *event)
	return nil
}

func (s *stubStore) CountOrders(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placed, nil
}

func (s *stubStore) stock(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Inventory.Quantity
}

func (s *stubStore) history(id uint) []model.OrderStatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderStatusEvent, len(s.orders[id].StatusHistory))
	copy(out, s.orders[id].StatusHistory)
	return out
}

// recordingPublisher captures emitted events
type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	changed []string
}

func (r *recordingPublisher) OrderCreated(o *model.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, o.OrderNumber)
}

func (r *recordingPublisher) OrderStatusChanged(o *model.Order, from, to, note string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, from+"->"+to)
}

func activeProduct(id, supplierID uint, price float64, stock, moq int) *model.Product {
	return &model.Product{
		ID:         id,
		Name:       fmt.Sprintf("Product %d", id),
		SupplierID: supplierID,
		Status:     model.ProductStatusActive,
		Pricing: model.Pricing{
			BasePrice:            price,
			Currency:             "USD",
			Unit:                 "kg",
			MinimumOrderQuantity: moq,
		},
		Inventory: model.Inventory{Quantity: stock},
	}
}

func standardRequest(items ...ItemRequest) PlaceOrderRequest {
	return PlaceOrderRequest{
		Items: items,
		Shipping: model.OrderShipping{
			Street: "1 Main St",
			City:   "Springfield",
			Method: model.ShippingStandard,
		},
		Payment: model.OrderPayment{Method: "bank_transfer"},
	}
}

func TestPlaceOrderPricing(t *testing.T) {
	// quantity=5 of a 100/unit product: subtotal 500, shipping 20, tax 50
	store := newStubStore(activeProduct(1, 42, 100, 10, 2))
	svc := NewService(store, store, nil)

	o, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 1, Quantity: 5}))
	require.NoError(t, err)

	assert.Equal(t, 500.0, o.Pricing.Subtotal)
	assert.Equal(t, 20.0, o.Pricing.Shipping)
	assert.Equal(t, 50.0, o.Pricing.Tax)
	assert.Equal(t, 570.0, o.Pricing.Total)
	assert.Equal(t, 5, store.stock(1))

	assert.Equal(t, string(StatusPending), o.Status)
	assert.Equal(t, model.PaymentPending, o.Payment.Status)
	assert.Empty(t, o.StatusHistory, "history begins on the first explicit transition")

	require.Len(t, o.Items, 1)
	assert.Equal(t, uint(42), o.Items[0].SupplierID)
	assert.Equal(t, 100.0, o.Items[0].Price)
	assert.Equal(t, 500.0, o.Items[0].Total)
}

func TestPlaceOrderExpressShipping(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 10, 1))
	svc := NewService(store, store, nil)

	req := standardRequest(ItemRequest{ProductID: 1, Quantity: 2})
	req.Shipping.Method = model.ShippingExpress

	o, err := svc.PlaceOrder(context.Background(), 7, req)
	require.NoError(t, err)
	assert.Equal(t, 50.0, o.Pricing.Shipping)
	assert.Equal(t, 200.0+50.0+20.0, o.Pricing.Total)
}

func TestPlaceOrderSubtotalIsSumOfLineTotals(t *testing.T) {
	store := newStubStore(
		activeProduct(1, 42, 100, 10, 1),
		activeProduct(2, 43, 7.5, 100, 1),
	)
	svc := NewService(store, store, nil)

	o, err := svc.PlaceOrder(context.Background(), 7, standardRequest(
		ItemRequest{ProductID: 1, Quantity: 3},
		ItemRequest{ProductID: 2, Quantity: 4},
	))
	require.NoError(t, err)

	var sum float64
	for _, item := range o.Items {
		sum += item.Total
	}
	assert.Equal(t, sum, o.Pricing.Subtotal)
	assert.Equal(t, o.Pricing.Subtotal+o.Pricing.Shipping+o.Pricing.Tax, o.Pricing.Total)
}

func TestPlaceOrderBelowMinimumLeavesStockUnchanged(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 10, 5))
	svc := NewService(store, store, nil)

	_, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 1, Quantity: 2}))
	assert.ErrorIs(t, err, ErrBelowMinimumOrder)
	assert.Equal(t, 10, store.stock(1))
}

func TestPlaceOrderInsufficientStockLeavesStockUnchanged(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 3, 1))
	svc := NewService(store, store, nil)

	_, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 1, Quantity: 4}))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, store.stock(1))
}

func TestPlaceOrderFailingItemAbortsWholeRequest(t *testing.T) {
	// The second item fails validation; the first must keep its stock
	store := newStubStore(
		activeProduct(1, 42, 100, 10, 1),
		activeProduct(2, 43, 50, 2, 1),
	)
	svc := NewService(store, store, nil)

	_, err := svc.PlaceOrder(context.Background(), 7, standardRequest(
		ItemRequest{ProductID: 1, Quantity: 5},
		ItemRequest{ProductID: 2, Quantity: 3},
	))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, store.stock(1))
	assert.Equal(t, 2, store.stock(2))
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, store, nil)

	_, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 99, Quantity: 1}))
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestPlaceOrderInactiveProduct(t *testing.T) {
	p := activeProduct(1, 42, 100, 10, 1)
	p.Status = model.ProductStatusDiscontinued
	store := newStubStore(p)
	svc := NewService(store, store, nil)

	_, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 1, Quantity: 1}))
	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.Equal(t, 10, store.stock(1))
}

func TestPlaceOrderEmpty(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, store, nil)

	_, err := svc.PlaceOrder(context.Background(), 7, standardRequest())
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPlaceOrderNumberFormat(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	o, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("RM%d0001", fixed.UnixMilli()), o.OrderNumber)

	second, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("RM%d0002", fixed.UnixMilli()), second.OrderNumber)
}

func TestPlaceOrderConcurrentStockContention(t *testing.T) {
	// Stock 10, two concurrent requests for 6 each: at most one may succeed
	store := newStubStore(activeProduct(1, 42, 100, 10, 1))
	svc := NewService(store, store, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(context.Background(), uint(i+1),
				standardRequest(ItemRequest{ProductID: 1, Quantity: 6}))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 4, store.stock(1))
}

func TestPlaceOrderPublishesEvent(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 10, 1))
	pub := &recordingPublisher{}
	svc := NewService(store, store, pub)

	o, err := svc.PlaceOrder(context.Background(), 7, standardRequest(ItemRequest{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)
	require.Len(t, pub.created, 1)
	assert.Equal(t, o.OrderNumber, pub.created[0])
}

func placeTestOrder(t *testing.T, svc *Service, store *stubStore, buyerID uint) *model.Order {
	t.Helper()
	o, err := svc.PlaceOrder(context.Background(), buyerID, standardRequest(ItemRequest{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)
	return o
}

func TestUpdateStatusAppendsExactlyOneHistoryEntry(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	o := placeTestOrder(t, svc, store, 7)

	admin := Actor{UserID: 1, Role: model.RoleAdmin}

	before := len(store.history(o.ID))
	updated, err := svc.UpdateStatus(context.Background(), o.ID, admin, StatusConfirmed, "looks good")
	require.NoError(t, err)

	history := store.history(o.ID)
	assert.Len(t, history, before+1)
	assert.Equal(t, string(StatusConfirmed), history[len(history)-1].Status)
	assert.Equal(t, "looks good", history[len(history)-1].Note)
	assert.Equal(t, string(StatusConfirmed), updated.Status)
}

func TestUpdateStatusDeliveredStampsActualDelivery(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	fixed := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	o := placeTestOrder(t, svc, store, 7)
	admin := Actor{UserID: 1, Role: model.RoleAdmin}

	for _, next := range []Status{StatusConfirmed, StatusProcessing, StatusShipped} {
		_, err := svc.UpdateStatus(context.Background(), o.ID, admin, next, "")
		require.NoError(t, err)
	}

	updated, err := svc.UpdateStatus(context.Background(), o.ID, admin, StatusDelivered, "left at door")
	require.NoError(t, err)
	require.NotNil(t, updated.Shipping.ActualDelivery)
	assert.Equal(t, fixed, *updated.Shipping.ActualDelivery)

	history := store.history(o.ID)
	assert.Equal(t, string(StatusDelivered), history[len(history)-1].Status)
	assert.Len(t, history, 4)
}

func TestUpdateStatusBuyerMayOnlyCancel(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	o := placeTestOrder(t, svc, store, 7)

	buyer := Actor{UserID: 7, Role: model.RoleBuyer}

	_, err := svc.UpdateStatus(context.Background(), o.ID, buyer, StatusShipped, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, buyer, StatusCancelled, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, string(StatusCancelled), updated.Status)
	require.NotNil(t, updated.CancelledBy)
	assert.Equal(t, uint(7), *updated.CancelledBy)
	assert.NotNil(t, updated.CancelledAt)
}

func TestUpdateStatusNonOwningBuyerForbidden(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	o := placeTestOrder(t, svc, store, 7)

	stranger := Actor{UserID: 99, Role: model.RoleBuyer}
	_, err := svc.UpdateStatus(context.Background(), o.ID, stranger, StatusShipped, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.UpdateStatus(context.Background(), o.ID, stranger, StatusCancelled, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestUpdateStatusSupplierOwningLineItem(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	o := placeTestOrder(t, svc, store, 7)

	supplier := Actor{UserID: 42, Role: model.RoleSupplier}
	updated, err := svc.UpdateStatus(context.Background(), o.ID, supplier, StatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, string(StatusConfirmed), updated.Status)

	otherSupplier := Actor{UserID: 43, Role: model.RoleSupplier}
	_, err = svc.UpdateStatus(context.Background(), o.ID, otherSupplier, StatusProcessing, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	o := placeTestOrder(t, svc, store, 7)

	admin := Actor{UserID: 1, Role: model.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), o.ID, admin, "misplaced", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, store.history(o.ID))
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	o := placeTestOrder(t, svc, store, 7)

	admin := Actor{UserID: 1, Role: model.RoleAdmin}

	// pending cannot jump straight to delivered
	_, err := svc.UpdateStatus(context.Background(), o.ID, admin, StatusDelivered, "")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Empty(t, store.history(o.ID), "rejected transitions must not touch the history")
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, store, nil)

	admin := Actor{UserID: 1, Role: model.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), 1234, admin, StatusConfirmed, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusPublishesEvent(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	pub := &recordingPublisher{}
	svc := NewService(store, store, pub)
	o := placeTestOrder(t, svc, store, 7)

	admin := Actor{UserID: 1, Role: model.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), o.ID, admin, StatusConfirmed, "")
	require.NoError(t, err)
	require.Len(t, pub.changed, 1)
	assert.Equal(t, "pending->confirmed", pub.changed[0])
}

func TestGetEnforcesRelation(t *testing.T) {
	store := newStubStore(activeProduct(1, 42, 100, 100, 1))
	svc := NewService(store, store, nil)
	o := placeTestOrder(t, svc, store, 7)

	_, err := svc.Get(context.Background(), o.ID, Actor{UserID: 7, Role: model.RoleBuyer})
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), o.ID, Actor{UserID: 42, Role: model.RoleSupplier})
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), o.ID, Actor{UserID: 1, Role: model.RoleAdmin})
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), o.ID, Actor{UserID: 99, Role: model.RoleBuyer})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.Get(context.Background(), 999, Actor{UserID: 1, Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestComputePricing(t *testing.T) {
	p := ComputePricing(1000, model.ShippingStandard)
	assert.Equal(t, model.OrderPricing{Subtotal: 1000, Shipping: 20, Tax: 100, Total: 1120}, p)

	p = ComputePricing(1000, model.ShippingExpress)
	assert.Equal(t, model.OrderPricing{Subtotal: 1000, Shipping: 50, Tax: 100, Total: 1150}, p)

	// overnight and freight ship at the standard flat rate
	p = ComputePricing(200, model.ShippingOvernight)
	assert.Equal(t, 20.0, p.Shipping)
}
