package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BasketStatus string

const (
	// BasketStatusOpen means the buyer can still edit the basket.
	BasketStatusOpen BasketStatus = "Open"
	// BasketStatusFrozen brackets the off-site redirect window: the basket is
	// reserved while the buyer is on the gateway and must not change.
	BasketStatusFrozen BasketStatus = "Frozen"
	// BasketStatusSubmitted means an order has been placed from this basket.
	BasketStatusSubmitted BasketStatus = "Submitted"
)

type Basket struct {
	ID       string       `gorm:"column:id;primary_key;type:uuid" json:"id"`
	OwnerID  *string      `gorm:"column:owner_id;type:varchar(64);index" json:"owner_id"`
	Status   BasketStatus `gorm:"column:status;type:varchar(16);not null;default:'Open';index" json:"status"`
	Currency string       `gorm:"column:currency;type:varchar(8);not null" json:"currency"`

	ShippingAddressID *string `gorm:"column:shipping_address_id;type:uuid" json:"shipping_address_id"`
	BillingAddressID  *string `gorm:"column:billing_address_id;type:uuid" json:"billing_address_id"`

	// ShippingMethodCode is the method chosen earlier in the buyer's checkout
	// session, if any.
	ShippingMethodCode *string `gorm:"column:shipping_method_code;type:varchar(64)" json:"shipping_method_code"`

	Lines []*BasketLine `gorm:"foreignKey:BasketID" json:"lines"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Basket) TableName() string {
	return "basket"
}

func (b *Basket) IsEmpty() bool {
	return b == nil || len(b.Lines) == 0
}

// Total recomputes the line total from current line prices, so a reloaded
// frozen basket always prices against fresh data.
func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.Price())
	}
	return total
}

func (b *Basket) IsShippingRequired() bool {
	for _, l := range b.Lines {
		if !l.Digital {
			return true
		}
	}
	return false
}

type BasketLine struct {
	ID       string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	BasketID string `gorm:"column:basket_id;type:uuid;not null;index" json:"basket_id"`

	SKU      string `gorm:"column:sku;type:varchar(64);not null" json:"sku"`
	Title    string `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Quantity int32  `gorm:"column:quantity;not null" json:"quantity"`
	// Digital lines do not require shipping.
	Digital   bool            `gorm:"column:digital;not null;default:false" json:"digital"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`

	CreatedAt time.Time `json:"created_at"`
}

func (BasketLine) TableName() string {
	return "basket_line"
}

func (l *BasketLine) Price() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}
