package checkout

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/internal/platform/paypal"
)

// Host frontend routes that checkout outcomes redirect to.
const (
	RouteBasketSummary   = "/basket/"
	RouteShippingAddress = "/checkout/shipping-address/"
	RouteShippingMethod  = "/checkout/shipping-method/"
	RouteThankYou        = "/checkout/thank-you/"
)

// OrderStatusURL is the buyer-facing status page for an order.
func OrderStatusURL(number string) string {
	return fmt.Sprintf("/accounts/orders/%s/", number)
}

// PreviewURL is the Phase C entry point for a basket; token and payer id are
// carried so a re-rendered preview keeps its gateway session.
func PreviewURL(basketID, token, payerID string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("PayerID", payerID)
	return fmt.Sprintf("/checkout/paypal/place-order/%s?%s", basketID, q.Encode())
}

// PaymentURL is the Phase D entry point carrying everything capture needs.
func PaymentURL(orderNumber string, amount decimal.Decimal, currency, token, payerID string) string {
	q := url.Values{}
	q.Set("amount", amount.StringFixed(2))
	q.Set("currency", currency)
	q.Set("token", token)
	q.Set("payer_id", payerID)
	return fmt.Sprintf("/checkout/paypal/payment/%s?%s", orderNumber, q.Encode())
}

type MessageLevel string

const (
	MessageInfo    MessageLevel = "info"
	MessageWarning MessageLevel = "warning"
	MessageError   MessageLevel = "error"
)

// Message is a user-facing flash message attached to a redirect.
type Message struct {
	Level MessageLevel `json:"level"`
	Text  string       `json:"text"`
}

// RedirectTarget is the outcome contract of every checkout phase: where to
// send the buyer, plus an optional flash message for the host frontend.
type RedirectTarget struct {
	URL     string   `json:"url"`
	Message *Message `json:"message,omitempty"`
}

func redirect(url string) *RedirectTarget {
	return &RedirectTarget{URL: url}
}

func redirectMsg(url string, level MessageLevel, text string) *RedirectTarget {
	return &RedirectTarget{URL: url, Message: &Message{Level: level, Text: text}}
}

// Preview is the non-persistent order confirmation payload rendered before
// the order exists.
type Preview struct {
	BasketID string `json:"basket_id"`
	Token    string `json:"token"`
	PayerID  string `json:"payer_id"`

	Email    string          `json:"email"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	BasketTotal decimal.Decimal `json:"basket_total"`
}

// SuccessResult is the Phase C outcome: exactly one of Redirect or Preview is
// set.
type SuccessResult struct {
	Redirect *RedirectTarget `json:"redirect,omitempty"`
	Preview  *Preview        `json:"preview,omitempty"`
}

// InitiateRequest carries the session context the host frontend supplies for
// Phase A. It is threaded through the phase as a value; phases keep no state
// between calls.
type InitiateRequest struct {
	BasketID      string
	CustomerID    *string
	CustomerEmail string
	// AsPaymentMethod is true when the buyer reached PayPal from the payment
	// step of checkout (shipping details already collected) rather than
	// straight from the basket page.
	AsPaymentMethod bool
}

// ReturnParams carries the gateway's success-return query parameters.
type ReturnParams struct {
	BasketID string
	Token    string
	PayerID  string
}

// SubmitParams carries the preview form submission.
type SubmitParams struct {
	BasketID      string
	Token         string
	PayerID       string
	TermsAccepted bool
}

// PaymentParams carries everything Phase D needs to settle an order.
type PaymentParams struct {
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Token       string
	PayerID     string
}

// ShippingCallbackRequest is the gateway's mid-session shipping-options
// payload.
type ShippingCallbackRequest struct {
	BasketID string

	Street      string
	Street2     string
	City        string
	State       string
	Postcode    string
	CountryCode string

	CurrencyCode string
}

// PlaceOrderRequest is handed to the order-placement collaborator.
type PlaceOrderRequest struct {
	Basket     *models.Basket
	GuestEmail string
	PayerID    string
	Token      string

	Total    decimal.Decimal
	Currency string

	ShippingMethodName string
	ShippingCharge     decimal.Decimal
}

// Gateway is the remote payment gateway protocol the orchestrator drives.
type Gateway interface {
	SetExpressCheckout(ctx context.Context, p paypal.SetCheckoutParams) (*paypal.Response, error)
	GetExpressCheckoutDetails(ctx context.Context, token string) (*paypal.Response, error)
	DoExpressCheckoutPayment(ctx context.Context, p paypal.PaymentParams) (*paypal.Response, error)
	RedirectURL(token string) string
}

// Ledger persists the gateway audit trail and pre-authorization snapshots.
type Ledger interface {
	Record(ctx context.Context, resp *paypal.Response) (*models.ExpressTransaction, error)
	SavePreAuth(ctx context.Context, snap *models.PreAuthSnapshot) error
	PreAuthByToken(ctx context.Context, token string) (*models.PreAuthSnapshot, error)
}

// BasketStore reads and transitions baskets. Thaw is idempotent: thawing an
// Open basket is a no-op.
type BasketStore interface {
	ByID(ctx context.Context, id string) (*models.Basket, error)
	FrozenByID(ctx context.Context, id string) (*models.Basket, error)
	Freeze(ctx context.Context, basket *models.Basket) error
	Thaw(ctx context.Context, basket *models.Basket) error
}

// OrderStore reads orders and places new ones from a frozen basket.
type OrderStore interface {
	ByNumber(ctx context.Context, number string) (*models.Order, error)
	ByBasketID(ctx context.Context, basketID string) (*models.Order, error)
	Place(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error)
	SetStatus(ctx context.Context, number string, status models.OrderStatus) error
}

// PaymentStore maintains the payment ledger attached to orders.
type PaymentStore interface {
	EnsureSource(ctx context.Context, orderNumber, currency string, amount decimal.Decimal) (*models.PaymentSource, error)
	AddEvent(ctx context.Context, orderNumber string, typ models.PaymentEventType, amount decimal.Decimal, reference string) error
	SavePaymentDetails(ctx context.Context, orderNumber string, details any) error
}

// AddressStore resolves the addresses referenced by a basket.
type AddressStore interface {
	ByID(ctx context.Context, id string) (*models.Address, error)
}

// Service is the orchestrator surface the HTTP layer depends on.
type Service interface {
	Initiate(ctx context.Context, req *InitiateRequest) (*RedirectTarget, error)
	HandleCancel(ctx context.Context, basketID string) (*RedirectTarget, error)
	HandleSuccessReturn(ctx context.Context, p *ReturnParams) (*SuccessResult, error)
	SubmitPreview(ctx context.Context, p *SubmitParams) (*RedirectTarget, error)
	HandlePayment(ctx context.Context, p *PaymentParams) (*RedirectTarget, error)
	ShippingOptions(ctx context.Context, req *ShippingCallbackRequest) (body string, found bool)
}
