package models

import "time"

// PreAuthSnapshot stores the checkout context captured when a gateway session
// was opened, keyed by the gateway token. Return and capture phases read it to
// recover session context; the address and cart columns are opaque renderable
// blobs for the dashboard.
//
// Customer and basket references are weak: both are plain nullable columns, so
// deleting the referenced row leaves the snapshot intact.
type PreAuthSnapshot struct {
	ID    string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Token string `gorm:"column:token;type:varchar(32);not null;uniqueIndex" json:"token"`

	// Email is the buyer email reported by the gateway; falls back to the
	// authenticated customer's email when absent.
	Email *string `gorm:"column:email;type:varchar(128)" json:"email"`

	BillingAddr  string `gorm:"column:billing_addr;type:text" json:"billing_addr"`
	ShippingAddr string `gorm:"column:shipping_addr;type:text" json:"shipping_addr"`
	ShoppingCart string `gorm:"column:shopping_cart;type:text" json:"shopping_cart"`

	CustomerID *string `gorm:"column:customer_id;type:varchar(64);index" json:"customer_id"`
	BasketID   *string `gorm:"column:basket_id;type:varchar(64);index" json:"basket_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (PreAuthSnapshot) TableName() string {
	return "express_preauth_snapshot"
}
