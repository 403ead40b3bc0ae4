package model

import (
	"time"

	"gorm.io/gorm"
)

// Category represents a catalog category, optionally nested under a parent
type Category struct {
	ID               uint           `json:"id" gorm:"primarykey"`
	Name             string         `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Slug             string         `json:"slug" gorm:"type:varchar(120);index"`
	Description      string         `json:"description" gorm:"type:varchar(500)"`
	Image            string         `json:"image" gorm:"type:varchar(255)"`
	ParentCategoryID *uint          `json:"parentCategoryId,omitempty" gorm:"index"`
	Subcategories    []Category     `json:"subcategories,omitempty" gorm:"foreignKey:ParentCategoryID"`
	IsActive         bool           `json:"isActive" gorm:"default:true"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}
