package models

import "time"

// OrderStatus enumerates order states.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether the status is a known value.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Order is a purchase record tying a user to a movie.
type Order struct {
	ID        string      `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"user_id"`
	MovieID   string      `db:"movie_id" json:"movie_id"`
	Amount    float64     `db:"amount" json:"amount"`
	Status    OrderStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// CreateOrderRequest is the payload for placing an order.
type CreateOrderRequest struct {
	MovieID string  `json:"movie_id" validate:"required,uuid"`
	Amount  float64 `json:"amount" validate:"gte=0"`
}
