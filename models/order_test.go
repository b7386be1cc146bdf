package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidOrderStatus(t *testing.T) {
	for _, status := range ValidOrderStatuses {
		assert.True(t, IsValidOrderStatus(status), "status %q should be valid", status)
	}

	assert.False(t, IsValidOrderStatus("paid"))
	assert.False(t, IsValidOrderStatus("Confirmed"))
	assert.False(t, IsValidOrderStatus(""))
}

func TestOrderStockDeducted(t *testing.T) {
	tests := []struct {
		status   string
		deducted bool
	}{
		{OrderStatusPending, false},
		{OrderStatusConfirmed, true},
		{OrderStatusProcessing, true},
		{OrderStatusShipped, true},
		{OrderStatusDelivered, false},
		{OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		order := Order{OrderStatus: tt.status}
		assert.Equal(t, tt.deducted, order.StockDeducted(), "status: %s", tt.status)
	}
}

func TestProductStockFlags(t *testing.T) {
	sellable := Product{StockQuantity: 10, LowStockThreshold: 5}
	assert.True(t, sellable.InStock())
	assert.False(t, sellable.LowStock())

	running := Product{StockQuantity: 3, LowStockThreshold: 5}
	assert.True(t, running.InStock())
	assert.True(t, running.LowStock())

	soldOut := Product{StockQuantity: 0, LowStockThreshold: 5}
	assert.False(t, soldOut.InStock())
	assert.False(t, soldOut.LowStock())
}
