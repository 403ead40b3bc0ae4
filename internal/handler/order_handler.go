package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhmrj/Sellium/internal/middleware"
	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/internal/order"
	"github.com/shubhmrj/Sellium/pkg/database"
	"github.com/shubhmrj/Sellium/pkg/logger"
	"github.com/shubhmrj/Sellium/prometheus"
)

// CreateOrderRequest mirrors the order creation API body
type CreateOrderRequest struct {
	Items    []order.ItemRequest `json:"items"`
	Shipping struct {
		Address struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Company   string `json:"company"`
			Street    string `json:"street"`
			City      string `json:"city"`
			State     string `json:"state"`
			ZipCode   string `json:"zipCode"`
			Country   string `json:"country"`
			Phone     string `json:"phone"`
		} `json:"address"`
		Method string `json:"method"`
	} `json:"shipping"`
	Payment struct {
		Method string `json:"method"`
	} `json:"payment"`
}

// CreateOrder places a new order for the calling buyer
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid order request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Order must contain at least one item"})
	}
	for _, item := range req.Items {
		if item.ProductID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Valid product ID is required"})
		}
		if item.Quantity < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Quantity must be at least 1"})
		}
	}
	if req.Shipping.Address.Street == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Shipping address is required"})
	}
	method := req.Shipping.Method
	if method == "" {
		method = model.ShippingStandard
	}
	if !model.ValidShippingMethod(method) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid shipping method"})
	}
	if !model.ValidPaymentMethod(req.Payment.Method) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid payment method"})
	}

	// Replay protection when Redis is configured and the client sent a key.
	// The key is claimed up front so concurrent replays collide, and released
	// again if placement fails so the buyer can retry with the same key.
	var idemKey string
	if idempotency != nil {
		if key := c.Request().Header.Get("X-Idempotency-Key"); key != "" {
			fresh, err := idempotency.SetOrderIdempotency(c.Request().Context(), user.ID, key)
			if err != nil {
				log.Error("Idempotency check failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while creating order"})
			}
			if !fresh {
				log.Warn("Duplicate order submission rejected",
					zap.Uint("buyer_id", user.ID),
					zap.String("idempotency_key", key))
				return c.JSON(http.StatusConflict, echo.Map{"message": "Duplicate order submission"})
			}
			idemKey = key
		}
	}

	placeReq := order.PlaceOrderRequest{
		Items: req.Items,
		Shipping: model.OrderShipping{
			FirstName: req.Shipping.Address.FirstName,
			LastName:  req.Shipping.Address.LastName,
			Company:   req.Shipping.Address.Company,
			Street:    req.Shipping.Address.Street,
			City:      req.Shipping.Address.City,
			State:     req.Shipping.Address.State,
			ZipCode:   req.Shipping.Address.ZipCode,
			Country:   req.Shipping.Address.Country,
			Phone:     req.Shipping.Address.Phone,
			Method:    method,
		},
		Payment: model.OrderPayment{Method: req.Payment.Method},
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	placed, err := orderService.PlaceOrder(c.Request().Context(), user.ID, placeReq)
	if err != nil {
		releaseIdempotency(c, user.ID, idemKey)
		switch {
		case errors.Is(err, order.ErrProductNotFound),
			errors.Is(err, order.ErrProductUnavailable),
			errors.Is(err, order.ErrInsufficientStock),
			errors.Is(err, order.ErrBelowMinimumOrder),
			errors.Is(err, order.ErrEmptyOrder):
			log.Warn("Order rejected", zap.Error(err))
			prometheus.RecordOrderRejection(rejectionReason(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		default:
			log.Error("Failed to create order", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while creating order"})
		}
	}

	prometheus.OrdersPlacedCounter.Inc()
	prometheus.OrderTotalAmountCounter.Add(placed.Pricing.Total)

	// Reload with references for the response
	var full model.Order
	if result := database.GetDB().
		Preload("Buyer").
		Preload("Items.Product").
		Preload("Items.Supplier").
		First(&full, placed.ID); result.Error == nil {
		placed = &full
	}

	log.Info("Order created",
		zap.Uint("order_id", placed.ID),
		zap.String("order_number", placed.OrderNumber),
		zap.Uint("buyer_id", user.ID),
		zap.Float64("total", placed.Pricing.Total))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Order created successfully",
		"order":   placed,
	})
}

// ListOrders returns the caller's orders: buyers see their own, suppliers see
// orders containing their products, admins see everything
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	page, limit := parsePagination(c, 10)

	query := database.GetDB().Model(&model.Order{})
	switch user.Role {
	case model.RoleBuyer:
		query = query.Where("buyer_id = ?", user.ID)
	case model.RoleSupplier:
		query = query.Where(
			"id IN (?)",
			database.GetDB().Model(&model.OrderItem{}).Select("order_id").Where("supplier_id = ?", user.ID),
		)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count orders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching orders"})
	}

	var orders []model.Order
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := query.
		Preload("Buyer").
		Preload("Items.Product").
		Preload("Items.Supplier").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders)
	if result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching orders"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"orders":     orders,
		"pagination": paginationEnvelope(page, limit, total),
	})
}

// GetOrder returns one order if the caller is related to it
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
	}

	_, err = orderService.Get(c.Request().Context(), id, order.Actor{UserID: user.ID, Role: user.Role})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
		case errors.Is(err, order.ErrNotAuthorized):
			log.Warn("Unauthorized order access", zap.Uint("order_id", id), zap.Uint("user_id", user.ID))
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Not authorized to view this order"})
		default:
			log.Error("Failed to fetch order", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching order"})
		}
	}

	// Access granted, load the full aggregate for the response
	var full model.Order
	if result := database.GetDB().
		Preload("Buyer").
		Preload("Items.Product").
		Preload("Items.Supplier").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		First(&full, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"order": full})
}

// StatusRequest defines the structure for a status transition
type StatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpdateOrderStatus drives an order through its lifecycle
func UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
	}

	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	actor := order.Actor{UserID: user.ID, Role: user.Role}
	var previous string
	if existing, getErr := orderService.Get(c.Request().Context(), id, actor); getErr == nil {
		previous = existing.Status
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	updated, err := orderService.UpdateStatus(c.Request().Context(), id, actor, order.Status(req.Status), req.Note)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
		case errors.Is(err, order.ErrNotAuthorized):
			log.Warn("Unauthorized status update",
				zap.Uint("order_id", id),
				zap.Uint("user_id", user.ID),
				zap.String("status", req.Status))
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Not authorized to update this order"})
		case errors.Is(err, order.ErrInvalidStatus), errors.Is(err, order.ErrIllegalTransition):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		default:
			log.Error("Failed to update order status", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while updating order status"})
		}
	}

	prometheus.RecordOrderTransition(previous, updated.Status)
	log.Info("Order status updated",
		zap.Uint("order_id", updated.ID),
		zap.String("from", previous),
		zap.String("to", updated.Status))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Order status updated successfully",
		"order":   updated,
	})
}

// releaseIdempotency frees a claimed key after a failed placement; no order
// exists, so the same key must be usable on retry
func releaseIdempotency(c echo.Context, buyerID uint, key string) {
	if idempotency == nil || key == "" {
		return
	}
	if err := idempotency.ReleaseOrderIdempotency(c.Request().Context(), buyerID, key); err != nil {
		logger.FromContext(c).Warn("Failed to release idempotency key",
			zap.Uint("buyer_id", buyerID),
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, order.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, order.ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, order.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, order.ErrBelowMinimumOrder):
		return "below_minimum_order"
	case errors.Is(err, order.ErrEmptyOrder):
		return "empty_order"
	}
	return "other"
}
