package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle label of an order.
type OrderStatus string

const (
	StatusCreated   OrderStatus = "created"
	StatusPreparing OrderStatus = "preparing"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = map[OrderStatus]int{
	StatusCreated:   0,
	StatusPreparing: 1,
	StatusShipped:   2,
	StatusDelivered: 3,
	StatusCancelled: 4,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(s)
	_, ok := orderStatuses[status]
	return status, ok
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order may move from s to next.
// Moves are forward one step along created -> preparing -> shipped -> delivered,
// or to cancelled from any non-terminal status. Re-applying the current status
// is allowed so shipping details can be edited.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if _, ok := orderStatuses[next]; !ok {
		return false
	}
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return orderStatuses[next] == orderStatuses[s]+1
}

// Contact holds the customer fields captured at checkout.
type Contact struct {
	Name    string `json:"customerName" db:"customer_name" binding:"required,max=120"`
	Phone   string `json:"phone" db:"phone" binding:"max=40"`
	Email   string `json:"email" db:"email" binding:"omitempty,email"`
	Address string `json:"address" db:"address" binding:"required,max=500"`
	Note    string `json:"note" db:"note" binding:"max=1000"`
}

// Order is the model for the 'orders' table.
type Order struct {
	ID         int64           `json:"id" db:"id"`
	OrderCode  string          `json:"orderCode" db:"order_code"`
	Items      LineItems       `json:"items" db:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice" db:"total_price"`
	Contact
	Status          OrderStatus    `json:"status" db:"status"`
	ShippingCompany sql.NullString `json:"-" db:"shipping_company"`
	TrackingNumber  sql.NullString `json:"-" db:"tracking_number"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

// Shipping is the optional carrier info an admin attaches to an order.
type Shipping struct {
	Company        *string `json:"shippingCompany,omitempty"`
	TrackingNumber *string `json:"trackingNumber,omitempty"`
}

// ShippingField is the closed set of shipping columns an admin may edit one at a time.
type ShippingField string

const (
	ShippingCompanyField ShippingField = "shipping_company"
	TrackingNumberField  ShippingField = "tracking_number"
)

func ParseShippingField(s string) (ShippingField, bool) {
	switch ShippingField(s) {
	case ShippingCompanyField, TrackingNumberField:
		return ShippingField(s), true
	}
	return "", false
}

// OrderView is the JSON shape returned for an order.
type OrderView struct {
	*Order
	ShippingCompany string `json:"shippingCompany,omitempty"`
	TrackingNumber  string `json:"trackingNumber,omitempty"`
}

func (o *Order) View() OrderView {
	return OrderView{
		Order:           o,
		ShippingCompany: o.ShippingCompany.String,
		TrackingNumber:  o.TrackingNumber.String,
	}
}
