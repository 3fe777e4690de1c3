package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Order is the order record the gateway integration reads and transitions.
// OrderID doubles as the MNT_TRANSACTION_ID correlation identifier, so it is
// always a UUID string.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID       string        `bun:"order_id,pk" json:"order_id"`
	UserID        string        `bun:"user_id" json:"user_id"`
	Total         float64       `bun:"total" json:"total"`
	CurrencyCode  string        `bun:"currency_code" json:"currency_code"`
	Status        OrderStatus   `bun:"status" json:"status"`
	PaymentStatus PaymentStatus `bun:"payment_status" json:"payment_status"`
	CreatedAt     time.Time     `bun:"created_at" json:"created_at"`
	PaidAt        time.Time     `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
}

// OrderNote is the freeform audit trail attached to an order. Every inbound
// gateway callback is recorded here, verified or not.
type OrderNote struct {
	bun.BaseModel `bun:"table:order_notes"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID           string    `bun:"order_id" json:"order_id"`
	Note              string    `bun:"note" json:"note"`
	DisplayToCustomer bool      `bun:"display_to_customer" json:"display_to_customer"`
	CreatedAt         time.Time `bun:"created_at" json:"created_at"`
}

type OrderPaidEvent struct {
	Type    string    `json:"type"`
	OrderID string    `json:"order_id"`
	UserID  string    `json:"user_id"`
	Total   float64   `json:"total"`
	PaidAt  time.Time `json:"paid_at"`
}
