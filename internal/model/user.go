package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleBuyer    = "buyer"
	RoleSupplier = "supplier"
	RoleAdmin    = "admin"
)

// Address holds a postal address embedded in users and orders
type Address struct {
	Street  string `json:"street" gorm:"type:varchar(255)"`
	City    string `json:"city" gorm:"type:varchar(100)"`
	State   string `json:"state" gorm:"type:varchar(100)"`
	ZipCode string `json:"zipCode" gorm:"type:varchar(20)"`
	Country string `json:"country" gorm:"type:varchar(100)"`
}

// Company holds supplier company details
type Company struct {
	Name               string `json:"name" gorm:"type:varchar(200)"`
	Type               string `json:"type" gorm:"type:varchar(100)"`
	RegistrationNumber string `json:"registrationNumber" gorm:"type:varchar(100)"`
	Website            string `json:"website" gorm:"type:varchar(255)"`
}

// User represents a marketplace account with a role of buyer, supplier or admin
type User struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	FirstName   string         `json:"firstName" gorm:"type:varchar(50);not null"`
	LastName    string         `json:"lastName" gorm:"type:varchar(50);not null"`
	Email       string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password    string         `json:"-" gorm:"type:varchar(255);not null"`
	Role        string         `json:"role" gorm:"type:varchar(20);default:buyer;index"`
	Phone       string         `json:"phone" gorm:"type:varchar(30)"`
	Address     Address        `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Company     Company        `json:"company" gorm:"embedded;embeddedPrefix:company_"`
	IsVerified  bool           `json:"isVerified" gorm:"default:false"`
	IsActive    bool           `json:"isActive" gorm:"default:true"`
	Avatar      string         `json:"avatar" gorm:"type:varchar(255)"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// ValidRole reports whether the given role is one of the enumerated roles
func ValidRole(role string) bool {
	switch role {
	case RoleBuyer, RoleSupplier, RoleAdmin:
		return true
	}
	return false
}
