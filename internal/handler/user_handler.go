package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/pkg/database"
	"github.com/shubhmrj/Sellium/pkg/logger"
	"github.com/shubhmrj/Sellium/prometheus"
)

// ListUsers returns all accounts with role and search filters, admin only
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)

	page, limit := parsePagination(c, 20)

	query := database.GetDB().Model(&model.User{})
	if role := c.QueryParam("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching users"})
	}

	var users []model.User
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users)
	if result.Error != nil {
		log.Error("Failed to list users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching users"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":      users,
		"pagination": paginationEnvelope(page, limit, total),
	})
}

// ListSuppliers returns all active suppliers, public
func ListSuppliers(c echo.Context) error {
	log := logger.FromContext(c)

	var suppliers []model.User
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Where("role = ? AND is_active = ?", model.RoleSupplier, true).
		Find(&suppliers)
	if result.Error != nil {
		log.Error("Failed to list suppliers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching suppliers"})
	}

	return c.JSON(http.StatusOK, echo.Map{"suppliers": suppliers})
}
