package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhmrj/Sellium/internal/middleware"
	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/pkg/database"
	"github.com/shubhmrj/Sellium/pkg/logger"
	"github.com/shubhmrj/Sellium/prometheus"
)

const (
	maxProductImages = 5
	maxImageSize     = 5 << 20 // 5MB per image
)

// sortColumns maps API sort keys to database columns
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"price":     "pricing_base_price",
	"rating":    "rating_average",
}

// ListProducts handles the public catalog listing with filters and pagination
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("list")

	page, limit := parsePagination(c, 20)

	query := database.GetDB().Model(&model.Product{})

	// Status filter defaults to active listings
	status := c.QueryParam("status")
	if status == "" {
		status = model.ProductStatusActive
	}
	query = query.Where("status = ?", status)

	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if supplier := c.QueryParam("supplier"); supplier != "" {
		query = query.Where("supplier_id = ?", supplier)
	}
	if unit := c.QueryParam("unit"); unit != "" {
		query = query.Where("pricing_unit = ?", unit)
	}
	if minPrice := c.QueryParam("minPrice"); minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("pricing_base_price >= ?", v)
		} else {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Min price must be a positive number"})
		}
	}
	if maxPrice := c.QueryParam("maxPrice"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("pricing_base_price <= ?", v)
		} else {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Max price must be a positive number"})
		}
	}
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR tags ILIKE ?", pattern, pattern, pattern)
	}

	// Whitelisted sort keys only
	sortBy := c.QueryParam("sortBy")
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if c.QueryParam("sortOrder") == "asc" {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching products"})
	}

	var products []model.Product
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := query.
		Preload("Supplier").
		Preload("Images").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while fetching products"})
	}

	log.Info("Products retrieved", zap.Int("count", len(products)), zap.Int64("total", total))
	return c.JSON(http.StatusOK, echo.Map{
		"products":   products,
		"pagination": paginationEnvelope(page, limit, total),
	})
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var product model.Product
	result := database.GetDB().
		Preload("Supplier").
		Preload("Images").
		Preload("Reviews").
		Preload("Reviews.User").
		First(&product, id)
	if result.Error != nil {
		log.Warn("Product not found", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Product not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"product": product})
}

// CreateProduct handles posting a new product listing with its images.
// Accepts a multipart form; suppliers own the products they create.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("create")

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	name := c.FormValue("name")
	description := c.FormValue("description")
	category := c.FormValue("category")
	if name == "" || description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Product name and description are required"})
	}
	if !model.ValidCategory(category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Category must be one of the predefined options"})
	}

	basePrice, err := strconv.ParseFloat(c.FormValue("basePrice"), 64)
	if err != nil || basePrice < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Base price must be a positive number"})
	}
	unit := c.FormValue("unit")
	if !model.ValidUnit(unit) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Unit is required"})
	}
	minimumOrderQuantity, err := strconv.Atoi(c.FormValue("minimumOrderQuantity"))
	if err != nil || minimumOrderQuantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Minimum order quantity must be at least 1"})
	}
	quantity, err := strconv.Atoi(c.FormValue("quantity"))
	if err != nil || quantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Quantity must be a non-negative integer"})
	}

	leadTime := 7
	if v := c.FormValue("leadTime"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			leadTime = parsed
		}
	}
	currency := c.FormValue("currency")
	if currency == "" {
		currency = "USD"
	}

	// Collect and upload images
	form, err := c.MultipartForm()
	if err != nil || form == nil || len(form.File["images"]) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "At least one image is required"})
	}
	files := form.File["images"]
	if len(files) > maxProductImages {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": fmt.Sprintf("At most %d images are allowed", maxProductImages),
		})
	}

	var images []model.ProductImage
	for _, file := range files {
		if file.Size > maxImageSize {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Images must be 5MB or smaller"})
		}
		src, err := file.Open()
		if err != nil {
			log.Error("Failed to open uploaded image", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while creating product"})
		}
		url, err := uploader.Upload(c.Request().Context(), file.Filename, src)
		src.Close()
		if err != nil {
			log.Error("Failed to upload image", zap.String("filename", file.Filename), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while uploading images"})
		}
		images = append(images, model.ProductImage{URL: url})
	}

	product := model.Product{
		Name:        name,
		Description: description,
		Category:    category,
		SupplierID:  user.ID,
		Images:      images,
		Pricing: model.Pricing{
			BasePrice:            basePrice,
			Currency:             currency,
			Unit:                 unit,
			MinimumOrderQuantity: minimumOrderQuantity,
		},
		Inventory: model.Inventory{
			Quantity:     quantity,
			Warehouse:    c.FormValue("warehouse"),
			Location:     c.FormValue("location"),
			LeadTimeDays: leadTime,
		},
		Status: model.ProductStatusActive,
		Tags:   c.FormValue("tags"),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&product); result.Error != nil {
		log.Error("Failed to create product", zap.String("name", name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while creating product"})
	}

	prometheus.UpdateProductInventory(strconv.FormatUint(uint64(product.ID), 10), product.Category, float64(quantity))
	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Uint("supplier_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Product created successfully",
		"product": product,
	})
}

// ProductUpdateRequest defines the mutable product fields
type ProductUpdateRequest struct {
	Name                 *string  `json:"name"`
	Description          *string  `json:"description"`
	Category             *string  `json:"category"`
	BasePrice            *float64 `json:"basePrice"`
	Currency             *string  `json:"currency"`
	Unit                 *string  `json:"unit"`
	MinimumOrderQuantity *int     `json:"minimumOrderQuantity"`
	Quantity             *int     `json:"quantity"`
	Warehouse            *string  `json:"warehouse"`
	Location             *string  `json:"location"`
	LeadTimeDays         *int     `json:"leadTimeDays"`
	Status               *string  `json:"status"`
	Tags                 *string  `json:"tags"`
}

// UpdateProduct handles editing a product. Restricted to the owning supplier
// or an admin; ownership itself is immutable.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("update")
	id := c.Param("id")

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	var product model.Product
	if result := database.GetDB().First(&product, id); result.Error != nil {
		log.Warn("Product not found for update", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Product not found"})
	}

	if product.SupplierID != user.ID && user.Role != model.RoleAdmin {
		log.Warn("Unauthorized product update attempt",
			zap.String("product_id", id),
			zap.Uint("user_id", user.ID))
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Not authorized to update this product"})
	}

	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if req.Name != nil {
		if *req.Name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Product name cannot be empty"})
		}
		product.Name = *req.Name
	}
	if req.Description != nil {
		if *req.Description == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Product description cannot be empty"})
		}
		product.Description = *req.Description
	}
	if req.Category != nil {
		if !model.ValidCategory(*req.Category) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Category must be one of the predefined options"})
		}
		product.Category = *req.Category
	}
	if req.BasePrice != nil {
		if *req.BasePrice < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Base price must be a positive number"})
		}
		product.Pricing.BasePrice = *req.BasePrice
	}
	if req.Currency != nil {
		product.Pricing.Currency = *req.Currency
	}
	if req.Unit != nil {
		if !model.ValidUnit(*req.Unit) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Unit must be one of the predefined options"})
		}
		product.Pricing.Unit = *req.Unit
	}
	if req.MinimumOrderQuantity != nil {
		if *req.MinimumOrderQuantity < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Minimum order quantity must be at least 1"})
		}
		product.Pricing.MinimumOrderQuantity = *req.MinimumOrderQuantity
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Quantity must be a non-negative integer"})
		}
		product.Inventory.Quantity = *req.Quantity
	}
	if req.Warehouse != nil {
		product.Inventory.Warehouse = *req.Warehouse
	}
	if req.Location != nil {
		product.Inventory.Location = *req.Location
	}
	if req.LeadTimeDays != nil {
		product.Inventory.LeadTimeDays = *req.LeadTimeDays
	}
	if req.Status != nil {
		if !model.ValidProductStatus(*req.Status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid product status"})
		}
		product.Status = *req.Status
	}
	if req.Tags != nil {
		product.Tags = *req.Tags
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&product); result.Error != nil {
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while updating product"})
	}

	prometheus.UpdateProductInventory(strconv.FormatUint(uint64(product.ID), 10), product.Category, float64(product.Inventory.Quantity))
	log.Info("Product updated", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct handles deleting a product (soft delete)
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("delete")
	id := c.Param("id")

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	var product model.Product
	if result := database.GetDB().First(&product, id); result.Error != nil {
		log.Warn("Product not found for deletion", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Product not found"})
	}

	if product.SupplierID != user.ID && user.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Not authorized to delete this product"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&product); result.Error != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while deleting product"})
	}

	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}

// ReviewRequest defines the structure for adding a review
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// AddReview attaches a buyer's rating to a product, at most once per buyer,
// and recomputes the product's rating aggregate from all reviews.
func AddReview(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Rating must be between 1 and 5"})
	}
	if len(req.Comment) > 500 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Comment cannot exceed 500 characters"})
	}

	var product model.Product
	if result := database.GetDB().First(&product, c.Param("id")); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Product not found"})
	}

	// One review per (product, buyer)
	var existing int64
	database.GetDB().Model(&model.Review{}).
		Where("product_id = ? AND user_id = ?", product.ID, user.ID).
		Count(&existing)
	if existing > 0 {
		log.Warn("Duplicate review rejected",
			zap.Uint("product_id", product.ID),
			zap.Uint("user_id", user.ID))
		return c.JSON(http.StatusConflict, echo.Map{"message": "You have already reviewed this product"})
	}

	review := model.Review{
		ProductID: product.ID,
		UserID:    user.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}

	// Append the review and recompute the aggregate in one transaction
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		var reviews []model.Review
		if err := tx.Where("product_id = ?", product.ID).Find(&reviews).Error; err != nil {
			return err
		}
		average, count := model.AverageRating(reviews)
		return tx.Model(&model.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
			"rating_average": average,
			"rating_count":   count,
		}).Error
	})
	if err != nil {
		// The unique index catches a concurrent review slipping past the count
		if isDuplicateKey(err) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "You have already reviewed this product"})
		}
		log.Error("Failed to add review", zap.Uint("product_id", product.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error while adding review"})
	}

	prometheus.ReviewsAddedCounter.Inc()
	log.Info("Review added",
		zap.Uint("product_id", product.ID),
		zap.Uint("user_id", user.ID),
		zap.Int("rating", req.Rating))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Review added successfully",
		"review":  review,
	})
}

// parsePagination reads page/limit query params with sane bounds
func parsePagination(c echo.Context, defaultLimit int) (page, limit int) {
	page = 1
	limit = defaultLimit
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v >= 1 && v <= 100 {
		limit = v
	}
	return page, limit
}

// paginationEnvelope builds the pagination block shared by all list responses
func paginationEnvelope(page, limit int, total int64) echo.Map {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return echo.Map{
		"current": page,
		"pages":   pages,
		"total":   total,
		"limit":   limit,
	}
}
