package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSource records the funds allocated against an order; one per order.
type PaymentSource struct {
	ID          string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	OrderNumber string `gorm:"column:order_number;type:varchar(32);not null;uniqueIndex" json:"order_number"`
	SourceType  string `gorm:"column:source_type;type:varchar(32);not null;default:'PayPal'" json:"source_type"`

	Currency        string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	AmountAllocated decimal.Decimal `gorm:"column:amount_allocated;type:numeric(12,2);not null" json:"amount_allocated"`
	AmountDebited   decimal.Decimal `gorm:"column:amount_debited;type:numeric(12,2);not null" json:"amount_debited"`

	CreatedAt time.Time `json:"created_at"`
}

func (PaymentSource) TableName() string {
	return "payment_source"
}

type PaymentEventType string

const (
	PaymentEventSettled PaymentEventType = "Settled"
	PaymentEventFailure PaymentEventType = "Failure"
)

// PaymentEvent is appended per settlement outcome. Reference carries the
// gateway correlation id, the join key for reconciling captures against
// their originating authorizations.
type PaymentEvent struct {
	ID          string           `gorm:"column:id;primary_key;type:uuid" json:"id"`
	OrderNumber string           `gorm:"column:order_number;type:varchar(32);not null;index" json:"order_number"`
	Type        PaymentEventType `gorm:"column:type;type:varchar(16);not null" json:"type"`

	Currency  string          `gorm:"column:currency;type:varchar(8)" json:"currency"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Reference string          `gorm:"column:reference;type:varchar(64);index" json:"reference"`

	CreatedAt time.Time `json:"created_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_event"
}
