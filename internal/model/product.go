package model

import (
	"time"

	"gorm.io/gorm"
)

// Product statuses
const (
	ProductStatusActive       = "active"
	ProductStatusInactive     = "inactive"
	ProductStatusOutOfStock   = "out_of_stock"
	ProductStatusDiscontinued = "discontinued"
)

// ProductCategories is the enumerated set of product categories
var ProductCategories = []string{
	"Vegetables", "Fruits", "Grains", "Dairy", "Meat",
	"Seafood", "Beverages", "Snacks", "Condiments", "Spices",
}

// ProductUnits is the enumerated set of pricing units
var ProductUnits = []string{
	"kg", "ton", "pound", "gram", "liter", "gallon", "piece", "cubic_meter",
}

// Pricing holds the pricing block embedded in a product
type Pricing struct {
	BasePrice            float64 `json:"basePrice" gorm:"not null"`
	Currency             string  `json:"currency" gorm:"type:varchar(10);default:USD"`
	Unit                 string  `json:"unit" gorm:"type:varchar(20);not null"`
	MinimumOrderQuantity int     `json:"minimumOrderQuantity" gorm:"not null;default:1"`
}

// Inventory holds the stock block embedded in a product. Quantity is only
// ever decremented through a conditional update, so it cannot go negative.
type Inventory struct {
	Quantity     int    `json:"quantity" gorm:"not null;default:0;check:inventory_quantity >= 0"`
	Warehouse    string `json:"warehouse" gorm:"type:varchar(100)"`
	Location     string `json:"location" gorm:"type:varchar(255)"`
	LeadTimeDays int    `json:"leadTimeDays" gorm:"default:7"`
}

// Rating holds the review aggregate derived from product reviews
type Rating struct {
	Average float64 `json:"average" gorm:"default:0"`
	Count   int     `json:"count" gorm:"default:0"`
}

// Product represents a raw-material listing owned by a supplier
type Product struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	Name        string         `json:"name" gorm:"type:varchar(200);not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	Category    string         `json:"category" gorm:"type:varchar(50);not null;index"`
	SupplierID  uint           `json:"supplierId" gorm:"index;not null"`
	Supplier    *User          `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Images      []ProductImage `json:"images,omitempty" gorm:"foreignKey:ProductID"`
	Pricing     Pricing        `json:"pricing" gorm:"embedded;embeddedPrefix:pricing_"`
	Inventory   Inventory      `json:"inventory" gorm:"embedded;embeddedPrefix:inventory_"`
	Status      string         `json:"status" gorm:"type:varchar(20);default:active;index"`
	Tags        string         `json:"tags" gorm:"type:text"`
	Rating      Rating         `json:"rating" gorm:"embedded;embeddedPrefix:rating_"`
	Reviews     []Review       `json:"reviews,omitempty" gorm:"foreignKey:ProductID"`
	IsVerified  bool           `json:"isVerified" gorm:"default:false"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// ProductImage stores one uploaded image URL for a product
type ProductImage struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ProductID uint      `json:"productId" gorm:"index;not null"`
	URL       string    `json:"url" gorm:"type:varchar(500);not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review is one buyer rating for a product. A buyer may review a product at
// most once, enforced by the composite unique index.
type Review struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ProductID uint      `json:"productId" gorm:"uniqueIndex:idx_product_reviewer;not null"`
	UserID    uint      `json:"userId" gorm:"uniqueIndex:idx_product_reviewer;not null"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Rating    int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string    `json:"comment" gorm:"type:varchar(500)"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidProductStatus reports whether status is one of the enumerated values
func ValidProductStatus(status string) bool {
	switch status {
	case ProductStatusActive, ProductStatusInactive, ProductStatusOutOfStock, ProductStatusDiscontinued:
		return true
	}
	return false
}

// ValidCategory reports whether the category is one of the predefined options
func ValidCategory(category string) bool {
	for _, c := range ProductCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ValidUnit reports whether the unit is one of the predefined options
func ValidUnit(unit string) bool {
	for _, u := range ProductUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// AverageRating computes the arithmetic mean over all review ratings.
// Returns 0 for an empty slice.
func AverageRating(reviews []Review) (average float64, count int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return float64(total) / float64(len(reviews)), len(reviews)
}
