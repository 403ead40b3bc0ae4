package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/pkg/database"
	"github.com/shubhmrj/Sellium/pkg/logger"
	"github.com/shubhmrj/Sellium/prometheus"
)

// ListCategories returns all active categories with their subcategories
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	var categories []model.Category
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Preload("Subcategories").
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&categories)
	if result.Error != nil {
		log.Error("Failed to list categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching categories"})
	}

	return c.JSON(http.StatusOK, echo.Map{"categories": categories})
}

// GetCategory returns one category with its parent and subcategories
func GetCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var category model.Category
	result := database.GetDB().
		Preload("Subcategories").
		First(&category, id)
	if result.Error != nil {
		log.Warn("Category not found", zap.String("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Category not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"category": category})
}

// CategoryRequest defines the structure for category creation
type CategoryRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Image            string `json:"image"`
	ParentCategoryID *uint  `json:"parentCategoryId"`
}

// CreateCategory adds a catalog category, admin only
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Category name is required"})
	}
	if len(req.Description) > 500 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Description cannot exceed 500 characters"})
	}

	// Check if category already exists
	var count int64
	database.GetDB().Model(&model.Category{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		log.Warn("Category already exists", zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{"message": "Category already exists"})
	}

	// If a parent is provided, verify it exists
	if req.ParentCategoryID != nil {
		var parent model.Category
		if result := database.GetDB().First(&parent, *req.ParentCategoryID); result.Error != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Parent category not found"})
		}
	}

	category := model.Category{
		Name:             req.Name,
		Slug:             slugify(req.Name),
		Description:      req.Description,
		Image:            req.Image,
		ParentCategoryID: req.ParentCategoryID,
		IsActive:         true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&category); result.Error != nil {
		if isDuplicateKey(result.Error) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "Category already exists"})
		}
		log.Error("Failed to create category", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while creating category"})
	}

	log.Info("Category created", zap.Uint("category_id", category.ID), zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Category created successfully",
		"category": category,
	})
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
