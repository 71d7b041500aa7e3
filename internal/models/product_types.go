package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold = 5

// Product is the model for the 'products' table.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Slug        string          `json:"slug" db:"slug"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Image       string          `json:"image" db:"image"`
	Category    string          `json:"category" db:"category"`
	Subcategory Tags            `json:"subcategory" db:"subcategory"`
	Description string          `json:"description" db:"description"`
	Brand       string          `json:"brand" db:"brand"`

	// --- Stock ---
	InStock           bool       `json:"inStock" db:"in_stock"`
	StockQuantity     int        `json:"stock" db:"stock_quantity"`
	LowStockThreshold int        `json:"lowStockThreshold" db:"low_stock_threshold"`
	LastRestocked     *time.Time `json:"lastRestocked,omitempty" db:"last_restocked"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsLowStock reports whether stock is at or below the product's threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// StockStats is the admin dashboard summary of inventory.
type StockStats struct {
	TotalProducts int `json:"totalProducts" db:"total_products"`
	TotalUnits    int `json:"totalUnits" db:"total_units"`
	OutOfStock    int `json:"outOfStock" db:"out_of_stock"`
	LowStock      int `json:"lowStock" db:"low_stock"`
}
