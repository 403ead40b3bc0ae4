package model

import (
	"time"
)

// Shipping methods
const (
	ShippingStandard  = "standard"
	ShippingExpress   = "express"
	ShippingOvernight = "overnight"
	ShippingFreight   = "freight"
)

// Payment methods
var PaymentMethods = []string{
	"credit_card", "bank_transfer", "paypal", "stripe", "cash_on_delivery",
}

// Payment statuses
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
	PaymentRefunded   = "refunded"
)

// OrderPricing holds the computed pricing summary embedded in an order
type OrderPricing struct {
	Subtotal float64 `json:"subtotal" gorm:"not null"`
	Shipping float64 `json:"shipping" gorm:"default:0"`
	Tax      float64 `json:"tax" gorm:"default:0"`
	Total    float64 `json:"total" gorm:"not null"`
}

// OrderShipping holds the shipping block embedded in an order
type OrderShipping struct {
	FirstName         string     `json:"firstName" gorm:"type:varchar(50)"`
	LastName          string     `json:"lastName" gorm:"type:varchar(50)"`
	Company           string     `json:"company" gorm:"type:varchar(200)"`
	Street            string     `json:"street" gorm:"type:varchar(255)"`
	City              string     `json:"city" gorm:"type:varchar(100)"`
	State             string     `json:"state" gorm:"type:varchar(100)"`
	ZipCode           string     `json:"zipCode" gorm:"type:varchar(20)"`
	Country           string     `json:"country" gorm:"type:varchar(100)"`
	Phone             string     `json:"phone" gorm:"type:varchar(30)"`
	Method            string     `json:"method" gorm:"type:varchar(20);default:standard"`
	TrackingNumber    string     `json:"trackingNumber" gorm:"type:varchar(100)"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time `json:"actualDelivery,omitempty"`
}

// OrderPayment holds the payment block embedded in an order. Status only,
// there is no processor integration.
type OrderPayment struct {
	Method        string     `json:"method" gorm:"type:varchar(30);not null"`
	Status        string     `json:"status" gorm:"type:varchar(20);default:pending"`
	TransactionID string     `json:"transactionId" gorm:"type:varchar(100)"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

// OrderItem is one line of an order. Price and supplier are snapshots taken
// at order time so later product edits do not change the order.
type OrderItem struct {
	ID         uint     `json:"id" gorm:"primarykey"`
	OrderID    uint     `json:"orderId" gorm:"index;not null"`
	ProductID  uint     `json:"productId" gorm:"index;not null"`
	Product    *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	SupplierID uint     `json:"supplierId" gorm:"index;not null"`
	Supplier   *User    `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Quantity   int      `json:"quantity" gorm:"not null;check:quantity >= 1"`
	Price      float64  `json:"price" gorm:"not null"`
	Total      float64  `json:"total" gorm:"not null"`
}

// OrderStatusEvent is one entry of the append-only status history log
type OrderStatusEvent struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	OrderID   uint      `json:"orderId" gorm:"index;not null"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null"`
	Note      string    `json:"note" gorm:"type:varchar(500)"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
}

// Order is the aggregate root for a placed order. Orders are never deleted,
// the status history keeps the audit trail.
type Order struct {
	ID            uint               `json:"id" gorm:"primarykey"`
	OrderNumber   string             `json:"orderNumber" gorm:"type:varchar(40);uniqueIndex;not null"`
	BuyerID       uint               `json:"buyerId" gorm:"index;not null"`
	Buyer         *User              `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Items         []OrderItem        `json:"items" gorm:"foreignKey:OrderID"`
	Pricing       OrderPricing       `json:"pricing" gorm:"embedded;embeddedPrefix:pricing_"`
	Shipping      OrderShipping      `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`
	Payment       OrderPayment       `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	Status        string             `json:"status" gorm:"type:varchar(20);default:pending;index"`
	StatusHistory []OrderStatusEvent `json:"statusHistory" gorm:"foreignKey:OrderID"`
	BuyerNote     string             `json:"buyerNote" gorm:"type:varchar(500)"`
	SupplierNote  string             `json:"supplierNote" gorm:"type:varchar(500)"`
	AdminNote     string             `json:"adminNote" gorm:"type:varchar(500)"`
	CancelledBy   *uint              `json:"cancelledBy,omitempty"`
	CancelledAt   *time.Time         `json:"cancelledAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// HasSupplier reports whether any line item belongs to the given supplier
func (o *Order) HasSupplier(supplierID uint) bool {
	for _, item := range o.Items {
		if item.SupplierID == supplierID {
			return true
		}
	}
	return false
}

// ValidShippingMethod reports whether method is one of the enumerated values
func ValidShippingMethod(method string) bool {
	switch method {
	case ShippingStandard, ShippingExpress, ShippingOvernight, ShippingFreight:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether method is one of the enumerated values
func ValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
