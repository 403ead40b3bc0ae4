package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/internal/order"
	"github.com/shubhmrj/Sellium/pkg/config"
	"github.com/shubhmrj/Sellium/prometheus"
)

var metricsOnce sync.Once

// Counters are package globals, register them once for the whole test run
func initTestMetrics() {
	metricsOnce.Do(func() {
		prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "marketplace_handler_test"}})
	})
}

// fakeProducts serves a fixed product catalog
type fakeProducts struct {
	products map[uint]*model.Product
}

func (f *fakeProducts) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

// fakeOrders counts commits; placement tests here never reach a successful one
type fakeOrders struct {
	created int
}

func (f *fakeOrders) CreateOrder(ctx context.Context, o *model.Order, decrements []order.StockDecrement) error {
	f.created++
	return nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, id uint) (*model.Order, error) {
	return nil, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, o *model.Order, event *model.OrderStatusEvent) error {
	return nil
}

func (f *fakeOrders) CountOrders(ctx context.Context) (int64, error) {
	return 0, nil
}

// fakeIdempotency records set and release calls
type fakeIdempotency struct {
	fresh    bool
	set      []string
	released []string
}

func (f *fakeIdempotency) SetOrderIdempotency(ctx context.Context, buyerID uint, key string) (bool, error) {
	f.set = append(f.set, key)
	return f.fresh, nil
}

func (f *fakeIdempotency) ReleaseOrderIdempotency(ctx context.Context, buyerID uint, key string) error {
	f.released = append(f.released, key)
	return nil
}

const orderBody = `{
	"items": [{"product": 1, "quantity": 2}],
	"shipping": {"address": {"street": "1 Main St", "city": "Springfield"}, "method": "standard"},
	"payment": {"method": "bank_transfer"}
}`

func createOrderContext(t *testing.T, idemKey string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(orderBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if idemKey != "" {
		req.Header.Set("X-Idempotency-Key", idemKey)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &model.User{ID: 7, Role: model.RoleBuyer, IsActive: true})
	return c, rec
}

func TestCreateOrderReleasesIdempotencyKeyOnFailure(t *testing.T) {
	initTestMetrics()

	// Out-of-stock product makes placement fail after the key was claimed
	products := &fakeProducts{products: map[uint]*model.Product{
		1: {
			ID:         1,
			Name:       "Basmati Rice",
			SupplierID: 42,
			Status:     model.ProductStatusActive,
			Pricing:    model.Pricing{BasePrice: 100, MinimumOrderQuantity: 1},
			Inventory:  model.Inventory{Quantity: 0},
		},
	}}
	orders := &fakeOrders{}
	orderService = order.NewService(products, orders, nil)
	idem := &fakeIdempotency{fresh: true}
	idempotency = idem
	defer func() { idempotency = nil }()

	c, rec := createOrderContext(t, "retry-key-1")
	require.NoError(t, CreateOrder(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, orders.created)
	assert.Equal(t, []string{"retry-key-1"}, idem.set)
	assert.Equal(t, []string{"retry-key-1"}, idem.released, "a failed placement must free the key for retry")
}

func TestCreateOrderRejectsReplayedIdempotencyKey(t *testing.T) {
	initTestMetrics()

	orders := &fakeOrders{}
	orderService = order.NewService(&fakeProducts{products: map[uint]*model.Product{}}, orders, nil)
	idem := &fakeIdempotency{fresh: false}
	idempotency = idem
	defer func() { idempotency = nil }()

	c, rec := createOrderContext(t, "replayed-key")
	require.NoError(t, CreateOrder(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duplicate order submission")
	assert.Equal(t, 0, orders.created)
	assert.Empty(t, idem.released, "a genuine replay keeps the key claimed")
}

func TestCreateOrderWithoutKeySkipsIdempotency(t *testing.T) {
	initTestMetrics()

	orderService = order.NewService(&fakeProducts{products: map[uint]*model.Product{}}, &fakeOrders{}, nil)
	idem := &fakeIdempotency{fresh: true}
	idempotency = idem
	defer func() { idempotency = nil }()

	c, rec := createOrderContext(t, "")
	require.NoError(t, CreateOrder(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, idem.set)
	assert.Empty(t, idem.released)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(fmt.Errorf("creating review: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, isDuplicateKey(fmt.Errorf("connection reset")))
	assert.False(t, isDuplicateKey(nil))
}
