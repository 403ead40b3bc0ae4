package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The quantity field is embedded with the inventory_ prefix, so its check
// constraint must name the prefixed column or the products migration fails.
func TestInventoryQuantityCheckNamesPrefixedColumn(t *testing.T) {
	field, ok := reflect.TypeOf(Inventory{}).FieldByName("Quantity")
	require.True(t, ok)
	assert.Contains(t, field.Tag.Get("gorm"), "check:inventory_quantity >= 0")
}

func TestAverageRating(t *testing.T) {
	avg, count := AverageRating(nil)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, count)

	avg, count = AverageRating([]Review{{Rating: 4}})
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 1, count)

	avg, count = AverageRating([]Review{{Rating: 5}, {Rating: 4}, {Rating: 2}})
	assert.InDelta(t, 11.0/3.0, avg, 1e-9)
	assert.Equal(t, 3, count)
}

func TestValidProductStatus(t *testing.T) {
	for _, s := range []string{ProductStatusActive, ProductStatusInactive, ProductStatusOutOfStock, ProductStatusDiscontinued} {
		assert.True(t, ValidProductStatus(s), s)
	}
	assert.False(t, ValidProductStatus("archived"))
	assert.False(t, ValidProductStatus(""))
}

func TestValidCategoryAndUnit(t *testing.T) {
	assert.True(t, ValidCategory("Vegetables"))
	assert.False(t, ValidCategory("vegetables"), "categories are case sensitive")
	assert.False(t, ValidCategory("Electronics"))

	assert.True(t, ValidUnit("kg"))
	assert.True(t, ValidUnit("cubic_meter"))
	assert.False(t, ValidUnit("box"))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleBuyer))
	assert.True(t, ValidRole(RoleSupplier))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("manager"))
}

func TestOrderHasSupplier(t *testing.T) {
	o := &Order{Items: []OrderItem{{SupplierID: 3}, {SupplierID: 7}}}
	assert.True(t, o.HasSupplier(3))
	assert.True(t, o.HasSupplier(7))
	assert.False(t, o.HasSupplier(9))

	empty := &Order{}
	assert.False(t, empty.HasSupplier(3))
}

func TestValidShippingAndPaymentMethod(t *testing.T) {
	assert.True(t, ValidShippingMethod(ShippingExpress))
	assert.False(t, ValidShippingMethod("drone"))

	assert.True(t, ValidPaymentMethod("bank_transfer"))
	assert.False(t, ValidPaymentMethod("barter"))
}
