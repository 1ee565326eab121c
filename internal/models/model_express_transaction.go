package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NVPMethod is the PayPal NVP API operation captured by a ledger row.
type NVPMethod string

const (
	NVPMethodSetExpressCheckout        NVPMethod = "SetExpressCheckout"
	NVPMethodGetExpressCheckoutDetails NVPMethod = "GetExpressCheckoutDetails"
	NVPMethodDoExpressCheckoutPayment  NVPMethod = "DoExpressCheckoutPayment"
)

type Ack string

const (
	AckSuccess            Ack = "Success"
	AckSuccessWithWarning Ack = "SuccessWithWarning"
	AckFailure            Ack = "Failure"
)

// credentialPattern matches the API password pair in a raw NVP request body.
var credentialPattern = regexp.MustCompile(`PWD=[^&]+&`)

// RedactCredentials masks the API password in a captured request payload so
// it never reaches the audit trail in the clear.
func RedactCredentials(raw string) string {
	return credentialPattern.ReplaceAllString(raw, "PWD=XXXXXX&")
}

// ExpressTransaction is one row of the gateway audit ledger: a single NVP
// request/response pair. Rows are insert-only; the only mutation is the
// credential redaction applied at write time.
type ExpressTransaction struct {
	ID      string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Method  NVPMethod `gorm:"column:method;type:varchar(32);not null" json:"method"`
	Version string    `gorm:"column:version;type:varchar(8);not null" json:"version"`

	// Amount/Currency carry the request amount for SetExpressCheckout and
	// DoExpressCheckoutPayment calls; nil for detail fetches.
	Amount   *decimal.Decimal `gorm:"column:amount;type:numeric(12,2)" json:"amount"`
	Currency string           `gorm:"column:currency;type:varchar(8)" json:"currency"`

	Ack           Ack    `gorm:"column:ack;type:varchar(32);not null" json:"ack"`
	CorrelationID string `gorm:"column:correlation_id;type:varchar(32);index" json:"correlation_id"`
	Token         string `gorm:"column:token;type:varchar(32);index" json:"token"`

	ErrorCode    string `gorm:"column:error_code;type:varchar(32)" json:"error_code"`
	ErrorMessage string `gorm:"column:error_message;type:varchar(256)" json:"error_message"`

	RawRequest  string `gorm:"column:raw_request;type:text" json:"raw_request"`
	RawResponse string `gorm:"column:raw_response;type:text" json:"raw_response"`

	CreatedAt time.Time `json:"created_at"`
}

func (ExpressTransaction) TableName() string {
	return "express_transaction"
}

// BeforeCreate masks credentials in the raw request before the row is written.
func (t *ExpressTransaction) BeforeCreate(*gorm.DB) error {
	t.RawRequest = RedactCredentials(t.RawRequest)
	return nil
}

func (t *ExpressTransaction) IsSuccessful() bool {
	return t.Ack == AckSuccess || t.Ack == AckSuccessWithWarning
}

func (t *ExpressTransaction) String() string {
	return fmt.Sprintf("method: %s: token: %s", t.Method, t.Token)
}
