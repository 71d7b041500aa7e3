package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusCreated, StatusPreparing, true},
		{StatusPreparing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPreparing, StatusDelivered, false},
		{StatusShipped, StatusPreparing, false},
		{StatusDelivered, StatusPreparing, false},
		{StatusPreparing, StatusCancelled, true},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPreparing, false},
		{StatusShipped, StatusShipped, true},
		{StatusPreparing, OrderStatus("lost"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, ok := ParseOrderStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, s)

	_, ok = ParseOrderStatus("Shipped")
	assert.False(t, ok)
}

func TestParseShippingField(t *testing.T) {
	f, ok := ParseShippingField("tracking_number")
	assert.True(t, ok)
	assert.Equal(t, TrackingNumberField, f)

	_, ok = ParseShippingField("status")
	assert.False(t, ok)
}
