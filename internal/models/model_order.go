package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPaid      OrderStatus = "Paid"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Order is created once the buyer confirms the preview; payment capture runs
// after creation, so a Pending order may still end up Cancelled.
type Order struct {
	Number string `gorm:"column:number;primary_key;type:varchar(32)" json:"number"`
	// BasketID links the order back to its originating basket. Order
	// existence per basket id is the duplicate-return guard used by the
	// checkout flow.
	BasketID   string      `gorm:"column:basket_id;type:varchar(64);not null;uniqueIndex" json:"basket_id"`
	CustomerID *string     `gorm:"column:customer_id;type:varchar(64);index" json:"customer_id"`
	GuestEmail *string     `gorm:"column:guest_email;type:varchar(128)" json:"guest_email"`
	Status     OrderStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`

	Currency string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Total    decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null" json:"total"`

	ShippingMethodName string          `gorm:"column:shipping_method_name;type:varchar(128)" json:"shipping_method_name"`
	ShippingCharge     decimal.Decimal `gorm:"column:shipping_charge;type:numeric(12,2)" json:"shipping_charge"`

	// PaymentDetails is the capture-phase snapshot, persisted on every
	// outcome so history survives declines.
	PaymentDetails datatypes.JSON `gorm:"column:payment_details;type:jsonb" json:"payment_details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "order"
}
