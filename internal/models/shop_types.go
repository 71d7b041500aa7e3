package models

import (
	"time"
)

// Campaign is the model for the 'campaigns' table.
type Campaign struct {
	ID              int64      `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	DiscountPercent int        `json:"discountPercent" db:"discount_percent"`
	Image           string     `json:"image" db:"image"`
	Active          bool       `json:"active" db:"active"`
	StartsAt        *time.Time `json:"startsAt,omitempty" db:"starts_at"`
	EndsAt          *time.Time `json:"endsAt,omitempty" db:"ends_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// Review is the model for the 'reviews' table. One row per user and product.
type Review struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"productId" db:"product_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// WishlistItem is the model for the 'wishlist' table joined with product fields.
type WishlistItem struct {
	ProductID int64     `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Image     string    `json:"image" db:"image"`
	AddedAt   time.Time `json:"addedAt" db:"created_at"`
}

// Message is the model for the 'messages' table (contact form).
type Message struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	IsRead    bool      `json:"isRead" db:"is_read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
