package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shubhmrj/Sellium/internal/model"
)

// GormStore implements ProductStore and OrderStore on top of GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store bound to the given database handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetProduct resolves a product by id. Returns nil, nil when absent.
func (s *GormStore) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	result := s.db.WithContext(ctx).First(&product, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &product, nil
}

// CreateOrder applies every stock decrement as a conditional update and
// inserts the order aggregate, all inside one transaction. A decrement only
// succeeds when enough stock remains, so two orders racing for the same
// product cannot both pass; the losing transaction rolls back completely.
func (s *GormStore) CreateOrder(ctx context.Context, o *model.Order, decrements []StockDecrement) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range decrements {
			result := tx.Model(&model.Product{}).
				Where("id = ? AND inventory_quantity >= ?", d.ProductID, d.Quantity).
				UpdateColumn("inventory_quantity", gorm.Expr("inventory_quantity - ?", d.Quantity))
			if result.Error != nil {
				return fmt.Errorf("decrementing stock for product %d: %w", d.ProductID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("product %d: %w", d.ProductID, ErrInsufficientStock)
			}
		}
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		return nil
	})
}

// GetOrder loads an order with its line items and status history.
// Returns nil, nil when absent.
func (s *GormStore) GetOrder(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	result := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		First(&o, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &o, nil
}

// UpdateStatus persists the transition and appends the history event in one
// transaction so the history log always matches the current status.
func (s *GormStore) UpdateStatus(ctx context.Context, o *model.Order, event *model.OrderStatusEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status": o.Status,
		}
		if o.Shipping.ActualDelivery != nil {
			updates["shipping_actual_delivery"] = o.Shipping.ActualDelivery
		}
		if o.CancelledBy != nil {
			updates["cancelled_by"] = o.CancelledBy
			updates["cancelled_at"] = o.CancelledAt
		}
		if err := tx.Model(&model.Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("appending status history: %w", err)
		}
		return nil
	})
}

// CountOrders returns the total number of orders ever placed
func (s *GormStore) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Order{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
