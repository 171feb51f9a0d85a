package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the persisted order state. Status only ever moves from
// pending toward a terminal outcome; every write goes through the transition
// policy, never directly through the repository callers.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Terminal reports whether no further automatic transition is permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed || s == OrderStatusCanceled
}

type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint        `gorm:"not null;index" json:"user_id"`
	Status OrderStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	// TotalCents is the order total in the display currency, in minor units.
	TotalCents int64  `gorm:"not null" json:"total_cents"`
	Currency   string `gorm:"type:varchar(3);not null" json:"currency"`

	BillingName  string `gorm:"not null" json:"billing_name"`
	BillingEmail string `gorm:"not null" json:"billing_email"`

	// TransactionID is the processor-side transaction reference recorded when
	// the order completes.
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Notes []OrderNote `gorm:"foreignKey:OrderID" json:"notes,omitempty"`
}

type OrderItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderID   uint `gorm:"not null;index" json:"order_id"`
	ProductID uint `gorm:"not null" json:"product_id"`

	Title          string `gorm:"not null" json:"title"`
	Quantity       int64  `gorm:"not null;default:1" json:"quantity"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
}

type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title      string `gorm:"not null" json:"title"`
	PriceCents int64  `gorm:"not null" json:"price_cents"`
	Stock      int64  `gorm:"not null;default:0" json:"stock"`
}

// OrderNote is an audit annotation appended to an order; payment completion
// and anomalies are recorded here rather than overwriting order fields.
type OrderNote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID uint   `gorm:"not null;index" json:"order_id"`
	Note    string `gorm:"type:text;not null" json:"note"`
}

// PaymentToken is the single-use verification token embedded in the redirect
// URL of a payment session. It authenticates the buyer's synchronous return
// and must validate exactly once per checkout attempt.
type PaymentToken struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID uint   `gorm:"not null;index" json:"order_id"`
	Token   string `gorm:"uniqueIndex;not null" json:"-"`
	Used    bool   `gorm:"not null;default:false" json:"used"`
}
