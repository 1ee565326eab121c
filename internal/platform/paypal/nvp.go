package paypal

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/models"
)

// Response wraps one parsed NVP reply together with the raw wire payloads.
// Raw payloads still contain credentials; the ledger redacts them at write
// time.
type Response struct {
	Method  models.NVPMethod
	Version string

	// Amount/Currency echo the request amount for calls that carry one.
	Amount   *decimal.Decimal
	Currency string

	Values      url.Values
	RawRequest  string
	RawResponse string
}

// Value returns the named NVP response field, or "" when absent.
func (r *Response) Value(key string) string {
	return r.Values.Get(key)
}

func (r *Response) Ack() models.Ack {
	return models.Ack(r.Value("ACK"))
}

func (r *Response) IsSuccessful() bool {
	ack := r.Ack()
	return ack == models.AckSuccess || ack == models.AckSuccessWithWarning
}

func (r *Response) Token() string {
	return r.Value("TOKEN")
}

func (r *Response) CorrelationID() string {
	return r.Value("CORRELATIONID")
}

func (r *Response) ErrorCode() string {
	return r.Value("L_ERRORCODE0")
}

func (r *Response) ErrorMessage() string {
	if msg := r.Value("L_LONGMESSAGE0"); msg != "" {
		return msg
	}
	return r.Value("L_SHORTMESSAGE0")
}

// TransactionAmount returns the buyer-visible amount reported by the gateway.
// GetExpressCheckoutDetails and DoExpressCheckoutPayment report it under
// different keys depending on API version, so both are checked.
func (r *Response) TransactionAmount() (decimal.Decimal, error) {
	for _, key := range []string{"PAYMENTREQUEST_0_AMT", "AMT"} {
		if v := r.Value(key); v != "" {
			return decimal.NewFromString(v)
		}
	}
	return decimal.Zero, fmt.Errorf("paypal: no amount in %s response", r.Method)
}

func (r *Response) TransactionCurrency() string {
	for _, key := range []string{"PAYMENTREQUEST_0_CURRENCYCODE", "CURRENCYCODE"} {
		if v := r.Value(key); v != "" {
			return v
		}
	}
	return ""
}

func (r *Response) BuyerEmail() string {
	return r.Value("EMAIL")
}

func (r *Response) PayerID() string {
	return r.Value("PAYERID")
}

// ShippingOptionName is the option the buyer picked on the gateway UI, if any.
func (r *Response) ShippingOptionName() string {
	return r.Value("SHIPPINGOPTIONNAME")
}

func (r *Response) ShippingCharge() decimal.Decimal {
	if v := r.Value("PAYMENTREQUEST_0_SHIPPINGAMT"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// ShipToAddress builds an address from the PAYMENTREQUEST_0_SHIPTO* response
// fields. Returns nil when the gateway reported no shipping address.
func (r *Response) ShipToAddress() *models.Address {
	if r.Value("PAYMENTREQUEST_0_SHIPTOSTREET") == "" &&
		r.Value("PAYMENTREQUEST_0_SHIPTOCOUNTRYCODE") == "" {
		return nil
	}
	name := r.Value("PAYMENTREQUEST_0_SHIPTONAME")
	first, last := splitName(name)
	return &models.Address{
		FirstName:   first,
		LastName:    last,
		Line1:       r.Value("PAYMENTREQUEST_0_SHIPTOSTREET"),
		Line2:       r.Value("PAYMENTREQUEST_0_SHIPTOSTREET2"),
		City:        r.Value("PAYMENTREQUEST_0_SHIPTOCITY"),
		State:       r.Value("PAYMENTREQUEST_0_SHIPTOSTATE"),
		Postcode:    r.Value("PAYMENTREQUEST_0_SHIPTOZIP"),
		CountryCode: r.Value("PAYMENTREQUEST_0_SHIPTOCOUNTRYCODE"),
	}
}

// Err returns the gateway-level error for a failed acknowledgement, nil when
// the call succeeded.
func (r *Response) Err() *Error {
	if r.IsSuccessful() {
		return nil
	}
	return &Error{
		Code:          r.ErrorCode(),
		CorrelationID: r.CorrelationID(),
		Message:       r.ErrorMessage(),
	}
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// Pair is one ordered NVP key/value entry.
type Pair struct {
	Key   string
	Value string
}

// EncodePairs urlencodes pairs preserving their order. The gateway's indexed
// list fields (L_SHIPPINGOPTIONNAME0...) are order-sensitive, which rules out
// url.Values.
func EncodePairs(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
