package paypal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/metrics"
)

const (
	liveEndpoint    = "https://api-3t.paypal.com/nvp"
	sandboxEndpoint = "https://api-3t.sandbox.paypal.com/nvp"

	liveWebscrURL    = "https://www.paypal.com/webscr"
	sandboxWebscrURL = "https://www.sandbox.paypal.com/webscr"

	// DefaultVersion is the NVP API version used when config omits one.
	DefaultVersion = "88.0"
)

// CodePaymentRetry is the ambiguous decline returned by
// DoExpressCheckoutPayment when the buyer must pick another funding source on
// the gateway's own UI. It is the one decline that must re-redirect to the
// gateway instead of cancelling the order.
const CodePaymentRetry = "10486"

// Error is a gateway-level failure: either a transport problem (empty Code)
// or a declined/failed acknowledgement.
type Error struct {
	Code          string
	CorrelationID string
	Message       string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("paypal: %s", e.Message)
	}
	return fmt.Sprintf("paypal: [%s] %s", e.Code, e.Message)
}

// Config holds the NVP API credentials and environment selection.
type Config struct {
	User      string
	Password  string
	Signature string
	Version   string
	Sandbox   bool
}

// Item is one basket line reported to the gateway for the buyer's review.
type Item struct {
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
}

// ShippingOption is a candidate method offered on the gateway UI. The first
// option in the slice is the default.
type ShippingOption struct {
	Name   string
	Amount decimal.Decimal
}

// ShipTo fixes the shipping destination on the gateway when the merchant has
// already collected one.
type ShipTo struct {
	Name        string
	Line1       string
	Line2       string
	City        string
	State       string
	Postcode    string
	CountryCode string
}

// SetCheckoutParams describes one SetExpressCheckout call.
type SetCheckoutParams struct {
	Amount   decimal.Decimal
	Currency string

	ReturnURL string
	CancelURL string
	// CallbackURL is the server-to-server shipping-options endpoint; empty
	// disables the callback.
	CallbackURL     string
	CallbackTimeout int

	Items           []Item
	ShippingOptions []ShippingOption
	ShipTo          *ShipTo
	NoShipping      bool

	BuyerEmail string
}

// PaymentParams describes one DoExpressCheckoutPayment call.
type PaymentParams struct {
	PayerID  string
	Token    string
	Amount   decimal.Decimal
	Currency string
}

// Client speaks the Express Checkout NVP protocol. It knows nothing about
// baskets or orders.
type Client struct {
	cfg  Config
	http *http.Client
	cb   *gobreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "paypal_nvp",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 20 * time.Second},
		cb:   cb,
	}
}

func (c *Client) endpoint() string {
	if c.cfg.Sandbox {
		return sandboxEndpoint
	}
	return liveEndpoint
}

// RedirectURL builds the buyer-facing gateway URL for a checkout token. The
// same URL is reused by the capture phase when a retryable decline sends the
// buyer back to the gateway.
func (c *Client) RedirectURL(token string) string {
	base := liveWebscrURL
	if c.cfg.Sandbox {
		base = sandboxWebscrURL
	}
	q := url.Values{}
	q.Set("cmd", "_express-checkout")
	q.Set("token", token)
	return base + "?" + q.Encode()
}

func amt(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// SetExpressCheckout opens a new gateway session and returns its token.
func (c *Client) SetExpressCheckout(ctx context.Context, p SetCheckoutParams) (*Response, error) {
	pairs := []Pair{
		{"PAYMENTREQUEST_0_AMT", amt(p.Amount)},
		{"PAYMENTREQUEST_0_CURRENCYCODE", p.Currency},
		{"PAYMENTREQUEST_0_PAYMENTACTION", "Sale"},
		{"RETURNURL", p.ReturnURL},
		{"CANCELURL", p.CancelURL},
	}
	for i, item := range p.Items {
		pairs = append(pairs,
			Pair{fmt.Sprintf("L_PAYMENTREQUEST_0_NAME%d", i), item.Name},
			Pair{fmt.Sprintf("L_PAYMENTREQUEST_0_QTY%d", i), strconv.Itoa(int(item.Quantity))},
			Pair{fmt.Sprintf("L_PAYMENTREQUEST_0_AMT%d", i), amt(item.UnitPrice)},
		)
	}
	if p.CallbackURL != "" {
		timeout := p.CallbackTimeout
		if timeout <= 0 {
			timeout = 4
		}
		pairs = append(pairs,
			Pair{"CALLBACK", p.CallbackURL},
			Pair{"CALLBACKTIMEOUT", strconv.Itoa(timeout)},
		)
	}
	for i, opt := range p.ShippingOptions {
		isDefault := "false"
		if i == 0 {
			isDefault = "true"
		}
		pairs = append(pairs,
			Pair{fmt.Sprintf("L_SHIPPINGOPTIONNAME%d", i), opt.Name},
			Pair{fmt.Sprintf("L_SHIPPINGOPTIONAMOUNT%d", i), amt(opt.Amount)},
			Pair{fmt.Sprintf("L_SHIPPINGOPTIONISDEFAULT%d", i), isDefault},
		)
	}
	switch {
	case p.ShipTo != nil:
		pairs = append(pairs,
			Pair{"ADDROVERRIDE", "1"},
			Pair{"PAYMENTREQUEST_0_SHIPTONAME", p.ShipTo.Name},
			Pair{"PAYMENTREQUEST_0_SHIPTOSTREET", p.ShipTo.Line1},
			Pair{"PAYMENTREQUEST_0_SHIPTOSTREET2", p.ShipTo.Line2},
			Pair{"PAYMENTREQUEST_0_SHIPTOCITY", p.ShipTo.City},
			Pair{"PAYMENTREQUEST_0_SHIPTOSTATE", p.ShipTo.State},
			Pair{"PAYMENTREQUEST_0_SHIPTOZIP", p.ShipTo.Postcode},
			Pair{"PAYMENTREQUEST_0_SHIPTOCOUNTRYCODE", p.ShipTo.CountryCode},
		)
	case p.NoShipping:
		pairs = append(pairs, Pair{"NOSHIPPING", "1"})
	}
	if p.BuyerEmail != "" {
		pairs = append(pairs, Pair{"EMAIL", p.BuyerEmail})
	}

	amount := p.Amount
	return c.call(ctx, models.NVPMethodSetExpressCheckout, pairs, &amount, p.Currency)
}

// GetExpressCheckoutDetails fetches the current transaction state by token.
func (c *Client) GetExpressCheckoutDetails(ctx context.Context, token string) (*Response, error) {
	pairs := []Pair{{"TOKEN", token}}
	return c.call(ctx, models.NVPMethodGetExpressCheckoutDetails, pairs, nil, "")
}

// DoExpressCheckoutPayment captures the funds authorized for a token.
func (c *Client) DoExpressCheckoutPayment(ctx context.Context, p PaymentParams) (*Response, error) {
	pairs := []Pair{
		{"TOKEN", p.Token},
		{"PAYERID", p.PayerID},
		{"PAYMENTREQUEST_0_AMT", amt(p.Amount)},
		{"PAYMENTREQUEST_0_CURRENCYCODE", p.Currency},
		{"PAYMENTREQUEST_0_PAYMENTACTION", "Sale"},
	}
	amount := p.Amount
	return c.call(ctx, models.NVPMethodDoExpressCheckoutPayment, pairs, &amount, p.Currency)
}

func (c *Client) call(ctx context.Context, method models.NVPMethod, pairs []Pair, amount *decimal.Decimal, currency string) (*Response, error) {
	common := []Pair{
		{"METHOD", string(method)},
		{"VERSION", c.cfg.Version},
		{"USER", c.cfg.User},
		{"PWD", c.cfg.Password},
		{"SIGNATURE", c.cfg.Signature},
	}
	body := EncodePairs(append(common, pairs...))

	start := time.Now()
	raw, err := c.cb.Execute(func() (interface{}, error) {
		return c.post(ctx, body)
	})
	metrics.GatewayCallDuration.WithLabelValues(string(method)).Observe(metrics.MillisecondsSince(start))
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(string(method), "TransportError").Inc()
		return nil, &Error{Message: err.Error()}
	}

	rawResp := raw.(string)
	values, err := url.ParseQuery(rawResp)
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(string(method), "MalformedResponse").Inc()
		return nil, &Error{Message: fmt.Sprintf("malformed NVP response: %v", err)}
	}
	metrics.GatewayCalls.WithLabelValues(string(method), values.Get("ACK")).Inc()

	return &Response{
		Method:      method,
		Version:     c.cfg.Version,
		Amount:      amount,
		Currency:    currency,
		Values:      values,
		RawRequest:  body,
		RawResponse: rawResp,
	}, nil
}

func (c *Client) post(ctx context.Context, body string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
