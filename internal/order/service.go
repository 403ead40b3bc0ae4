package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shubhmrj/Sellium/internal/model"
)

// Flat shipping rates and tax rate applied to every order
const (
	ExpressShippingCost  = 50.0
	StandardShippingCost = 20.0
	TaxRate              = 0.10
)

// StockDecrement is one conditional inventory decrement to commit with an order
type StockDecrement struct {
	ProductID uint
	Quantity  int
}

// ProductStore resolves products for order validation
type ProductStore interface {
	// GetProduct returns nil, nil when the product does not exist
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
}

// OrderStore persists orders and their status history
type OrderStore interface {
	// CreateOrder inserts the order and applies all stock decrements in a
	// single transaction. Returns ErrInsufficientStock (wrapped) and leaves
	// every product untouched when any decrement cannot be satisfied.
	CreateOrder(ctx context.Context, o *model.Order, decrements []StockDecrement) error
	// GetOrder returns nil, nil when the order does not exist
	GetOrder(ctx context.Context, id uint) (*model.Order, error)
	// UpdateStatus persists the order's mutated fields and appends the
	// history event in a single transaction
	UpdateStatus(ctx context.Context, o *model.Order, event *model.OrderStatusEvent) error
	// CountOrders returns the total number of orders ever placed
	CountOrders(ctx context.Context) (int64, error)
}

// EventPublisher emits order events to downstream consumers. Implementations
// must not block the request path.
type EventPublisher interface {
	OrderCreated(o *model.Order)
	OrderStatusChanged(o *model.Order, from, to, note string)
}

// Actor identifies the authenticated caller of an order operation
type Actor struct {
	UserID uint
	Role   string
}

// ItemRequest is one requested line of a new order
type ItemRequest struct {
	ProductID uint `json:"product"`
	Quantity  int  `json:"quantity"`
}

// PlaceOrderRequest carries everything needed to create an order
type PlaceOrderRequest struct {
	Items    []ItemRequest
	Shipping model.OrderShipping
	Payment  model.OrderPayment
}

// Service implements the order placement and status transition workflow
type Service struct {
	products  ProductStore
	orders    OrderStore
	publisher EventPublisher
	now       func() time.Time
}

// NewService creates the order workflow service. publisher may be nil when
// event publishing is not configured.
func NewService(products ProductStore, orders OrderStore, publisher EventPublisher) *Service {
	return &Service{
		products:  products,
		orders:    orders,
		publisher: publisher,
		now:       time.Now,
	}
}

// PlaceOrder validates every requested line item, computes pricing and
// commits the order together with all inventory decrements. Validation is a
// pure read pass; nothing is mutated until every item has passed, and the
// decrements themselves are conditional so a concurrent order racing for the
// same stock cannot drive inventory negative.
func (s *Service) PlaceOrder(ctx context.Context, buyerID uint, req PlaceOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var (
		subtotal   float64
		items      = make([]model.OrderItem, 0, len(req.Items))
		decrements = make([]StockDecrement, 0, len(req.Items))
	)

	// Phase one: validate all items without touching inventory
	for _, item := range req.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolving product %d: %w", item.ProductID, err)
		}
		if product == nil {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ErrProductNotFound)
		}
		if product.Status != model.ProductStatusActive {
			return nil, fmt.Errorf("product %s: %w", product.Name, ErrProductUnavailable)
		}
		if item.Quantity > product.Inventory.Quantity {
			return nil, fmt.Errorf("product %s (available %d): %w",
				product.Name, product.Inventory.Quantity, ErrInsufficientStock)
		}
		if item.Quantity < product.Pricing.MinimumOrderQuantity {
			return nil, fmt.Errorf("product %s (minimum %d): %w",
				product.Name, product.Pricing.MinimumOrderQuantity, ErrBelowMinimumOrder)
		}

		lineTotal := product.Pricing.BasePrice * float64(item.Quantity)
		subtotal += lineTotal

		items = append(items, model.OrderItem{
			ProductID:  product.ID,
			SupplierID: product.SupplierID,
			Quantity:   item.Quantity,
			Price:      product.Pricing.BasePrice,
			Total:      lineTotal,
		})
		decrements = append(decrements, StockDecrement{
			ProductID: product.ID,
			Quantity:  item.Quantity,
		})
	}

	pricing := ComputePricing(subtotal, req.Shipping.Method)

	number, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generating order number: %w", err)
	}

	o := &model.Order{
		OrderNumber: number,
		BuyerID:     buyerID,
		Items:       items,
		Pricing:     pricing,
		Shipping:    req.Shipping,
		Payment: model.OrderPayment{
			Method: req.Payment.Method,
			Status: model.PaymentPending,
		},
		Status: string(StatusPending),
		// History begins on the first explicit transition, pending is not seeded
	}

	// Phase two: commit order and decrements atomically
	if err := s.orders.CreateOrder(ctx, o, decrements); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.OrderCreated(o)
	}
	return o, nil
}

// ComputePricing derives the pricing summary from the accumulated subtotal.
// Shipping is a flat rate by method, tax is 10% of the subtotal.
func ComputePricing(subtotal float64, shippingMethod string) model.OrderPricing {
	shipping := StandardShippingCost
	if shippingMethod == model.ShippingExpress {
		shipping = ExpressShippingCost
	}
	tax := subtotal * TaxRate
	return model.OrderPricing{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}

// nextOrderNumber builds the human-readable unique order number, assigned
// exactly once at creation
func (s *Service) nextOrderNumber(ctx context.Context) (string, error) {
	count, err := s.orders.CountOrders(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RM%d%04d", s.now().UnixMilli(), count+1), nil
}

// Get loads an order and checks that the actor is related to it: the buyer,
// a supplier owning at least one line item, or an admin.
func (s *Service) Get(ctx context.Context, orderID uint, actor Actor) (*model.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if !s.canView(o, actor) {
		return nil, ErrNotAuthorized
	}
	return o, nil
}

func (s *Service) canView(o *model.Order, actor Actor) bool {
	switch {
	case actor.Role == model.RoleAdmin:
		return true
	case o.BuyerID == actor.UserID:
		return true
	default:
		return o.HasSupplier(actor.UserID)
	}
}

// UpdateStatus drives an order through the status state machine. The actor
// must be authorized for the transition, the target status must be one of
// the enumerated values and the pair (current, target) must be legal per the
// transition table. Exactly one history entry is appended per accepted
// transition, in the same transaction as the status change.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, actor Actor, to Status, note string) (*model.Order, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("status %q: %w", to, ErrInvalidStatus)
	}

	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	if !s.canTransitionAs(o, actor, to) {
		return nil, ErrNotAuthorized
	}

	from := Status(o.Status)
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, ErrIllegalTransition)
	}

	now := s.now()
	o.Status = string(to)
	switch to {
	case StatusDelivered:
		o.Shipping.ActualDelivery = &now
	case StatusCancelled:
		o.CancelledBy = &actor.UserID
		o.CancelledAt = &now
	}

	event := &model.OrderStatusEvent{
		OrderID:   o.ID,
		Status:    string(to),
		Note:      note,
		Timestamp: now,
	}
	if err := s.orders.UpdateStatus(ctx, o, event); err != nil {
		return nil, err
	}
	o.StatusHistory = append(o.StatusHistory, *event)

	if s.publisher != nil {
		s.publisher.OrderStatusChanged(o, string(from), string(to), note)
	}
	return o, nil
}

// canTransitionAs applies the per-role transition authorization: admins may
// set any status, suppliers owning a line item may drive the lifecycle, and
// buyers may only cancel their own orders.
func (s *Service) canTransitionAs(o *model.Order, actor Actor, to Status) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleSupplier:
		return o.HasSupplier(actor.UserID)
	case model.RoleBuyer:
		return o.BuyerID == actor.UserID && to == StatusCancelled
	}
	return false
}
