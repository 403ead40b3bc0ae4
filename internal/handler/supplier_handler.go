package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shubhmrj/Sellium/internal/middleware"
	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/pkg/database"
	"github.com/shubhmrj/Sellium/pkg/logger"
	"github.com/shubhmrj/Sellium/prometheus"
)

// SupplierProducts returns one supplier's active products, public
func SupplierProducts(c echo.Context) error {
	log := logger.FromContext(c)
	supplierID := c.Param("id")

	page, limit := parsePagination(c, 20)

	query := database.GetDB().Model(&model.Product{}).
		Where("supplier_id = ? AND status = ?", supplierID, model.ProductStatusActive)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count supplier products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching supplier products"})
	}

	var products []model.Product
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := query.
		Preload("Images").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list supplier products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching supplier products"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"products":   products,
		"pagination": paginationEnvelope(page, limit, total),
	})
}

// SupplierDashboard aggregates the calling supplier's product and order
// statistics, including delivered revenue for the current month
func SupplierDashboard(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var totalProducts, activeProducts int64
	db.Model(&model.Product{}).Where("supplier_id = ?", user.ID).Count(&totalProducts)
	db.Model(&model.Product{}).
		Where("supplier_id = ? AND status = ?", user.ID, model.ProductStatusActive).
		Count(&activeProducts)

	supplierOrders := db.Model(&model.OrderItem{}).Select("order_id").Where("supplier_id = ?", user.ID)

	var totalOrders, pendingOrders int64
	db.Model(&model.Order{}).Where("id IN (?)", supplierOrders).Count(&totalOrders)
	db.Model(&model.Order{}).
		Where("id IN (?) AND status IN ?", supplierOrders, []string{"pending", "confirmed"}).
		Count(&pendingOrders)

	var recentOrders []model.Order
	db.Preload("Buyer").
		Where("id IN (?)", supplierOrders).
		Order("created_at DESC").
		Limit(5).
		Find(&recentOrders)

	// Revenue from this supplier's delivered line items this month
	startOfMonth := time.Now().Truncate(24 * time.Hour)
	startOfMonth = time.Date(startOfMonth.Year(), startOfMonth.Month(), 1, 0, 0, 0, 0, startOfMonth.Location())

	var monthlyRevenue float64
	db.Model(&model.OrderItem{}).
		Select("COALESCE(SUM(order_items.total), 0)").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.supplier_id = ? AND orders.status = ? AND orders.created_at >= ?",
			user.ID, "delivered", startOfMonth).
		Scan(&monthlyRevenue)

	log.Info("Supplier dashboard fetched",
		zap.Uint("supplier_id", user.ID),
		zap.Int64("total_orders", totalOrders))
	return c.JSON(http.StatusOK, echo.Map{
		"statistics": echo.Map{
			"totalProducts":  totalProducts,
			"activeProducts": activeProducts,
			"totalOrders":    totalOrders,
			"pendingOrders":  pendingOrders,
			"monthlyRevenue": monthlyRevenue,
		},
		"recentOrders": recentOrders,
	})
}
