package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/app/service/shipping"
	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/internal/platform/paypal"
	"github.com/clearbrook/checkout/pkg/logctx"
)

// Initiate runs Phase A: open a gateway session for the basket, persist the
// audit row and pre-auth snapshot, freeze the basket and hand back the
// off-site redirect. Protocol-level failures are mapped to a recovery
// redirect; only store failures surface as errors.
func (o *Orchestrator) Initiate(ctx context.Context, req *InitiateRequest) (*RedirectTarget, error) {
	target, err := o.initiate(ctx, req)
	if err == nil {
		return target, nil
	}
	if rt, ok := mapInitiateErr(err); ok {
		logctx.FromCtx(ctx, o.log).Warnw("checkout initiation rejected", "basket_id", req.BasketID, "err", err)
		return rt, nil
	}
	return nil, err
}

// mapInitiateErr maps each initiation error kind to its recovery redirect.
// The distinct shipping errors drive distinct redirects so the buyer lands on
// the step that can fix the problem.
func mapInitiateErr(err error) (*RedirectTarget, bool) {
	var invalid *InvalidBasketError
	var gerr *paypal.Error
	switch {
	case errors.Is(err, ErrEmptyBasket):
		return redirectMsg(RouteBasketSummary, MessageError, "Your basket is empty"), true
	case errors.Is(err, ErrMissingShippingAddress):
		return redirectMsg(RouteShippingAddress, MessageError, "A shipping address must be specified"), true
	case errors.Is(err, ErrMissingShippingMethod):
		return redirectMsg(RouteShippingMethod, MessageError, "A shipping method must be specified"), true
	case errors.Is(err, ErrBasketNotFound):
		return redirectMsg(RouteBasketSummary, MessageError, "No basket was found"), true
	case errors.As(err, &invalid):
		return redirectMsg(RouteBasketSummary, MessageWarning, invalid.Reason), true
	case errors.As(err, &gerr):
		return redirectMsg(RouteBasketSummary, MessageError, "An error occurred communicating with PayPal"), true
	}
	return nil, false
}

func (o *Orchestrator) initiate(ctx context.Context, req *InitiateRequest) (*RedirectTarget, error) {
	log := logctx.FromCtx(ctx, o.log)

	basket, err := o.baskets.ByID(ctx, req.BasketID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBasketNotFound
		}
		return nil, err
	}
	if basket.Status != models.BasketStatusOpen {
		return nil, &InvalidBasketError{Reason: "basket is already reserved for another checkout"}
	}
	if basket.IsEmpty() {
		return nil, ErrEmptyBasket
	}

	currency := basket.Currency
	if currency == "" {
		currency = o.cfg.PayPal.Currency
	}

	params := paypal.SetCheckoutParams{
		Currency:   currency,
		ReturnURL:  o.cfg.Server.PublicURL + "/checkout/paypal/place-order/" + basket.ID,
		CancelURL:  o.cfg.Server.PublicURL + "/checkout/paypal/cancel/" + basket.ID,
		BuyerEmail: req.CustomerEmail,
		Items: lo.Map(basket.Lines, func(l *models.BasketLine, _ int) paypal.Item {
			return paypal.Item{Name: l.Title, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		}),
	}

	total := basket.Total()
	var shipAddr *models.Address

	switch {
	case req.AsPaymentMethod && basket.IsShippingRequired():
		// The checkout pages already collected shipping details; fix them on
		// the gateway instead of offering options.
		shipAddr, err = o.basketShippingAddress(ctx, basket)
		if err != nil {
			return nil, err
		}
		if shipAddr == nil {
			return nil, ErrMissingShippingAddress
		}
		method, err := o.chosenShippingMethod(ctx, basket, shipAddr)
		if err != nil {
			return nil, err
		}
		total = total.Add(method.Charge)
		params.ShipTo = &paypal.ShipTo{
			Name:        shipAddr.FirstName + " " + shipAddr.LastName,
			Line1:       shipAddr.Line1,
			Line2:       shipAddr.Line2,
			City:        shipAddr.City,
			State:       shipAddr.State,
			Postcode:    shipAddr.Postcode,
			CountryCode: shipAddr.CountryCode,
		}
	case !basket.IsShippingRequired():
		params.NoShipping = true
	default:
		// Basket-page initiation: the buyer will pick an address on the
		// gateway, which asks us for options via the callback.
		methods := o.shipping.Methods(ctx, basket.OwnerID, basket, nil)
		params.ShippingOptions = lo.Map(methods, func(m shipping.Method, _ int) paypal.ShippingOption {
			return paypal.ShippingOption{Name: m.Name, Amount: m.Charge}
		})
		params.CallbackURL = o.cfg.CallbackBaseURL() + "/checkout/paypal/shipping-options/" + basket.ID
		params.CallbackTimeout = o.cfg.PayPal.CallbackTimeout
	}
	params.Amount = total

	resp, err := o.gateway.SetExpressCheckout(ctx, params)
	if err != nil {
		return nil, err
	}
	// Ledger write happens before any branching on the response.
	if _, err := o.ledger.Record(ctx, resp); err != nil {
		return nil, err
	}
	if gerr := resp.Err(); gerr != nil {
		return nil, gerr
	}
	token := resp.Token()
	if token == "" {
		return nil, &paypal.Error{Message: "no token in SetExpressCheckout response"}
	}

	if err := o.savePreAuth(ctx, basket, req, token, shipAddr); err != nil {
		return nil, err
	}

	// Freeze before the redirect response is written, so the basket cannot
	// be edited while funds may be reserved remotely.
	if err := o.baskets.Freeze(ctx, basket); err != nil {
		return nil, err
	}

	url := o.gateway.RedirectURL(token)
	log.Infow("basket frozen, redirecting to gateway", "basket_id", basket.ID, "token", token)
	return redirect(url), nil
}

func (o *Orchestrator) basketShippingAddress(ctx context.Context, basket *models.Basket) (*models.Address, error) {
	if basket.ShippingAddressID == nil {
		return nil, nil
	}
	addr, err := o.addresses.ByID(ctx, *basket.ShippingAddressID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return addr, nil
}

func (o *Orchestrator) basketBillingAddress(ctx context.Context, basket *models.Basket) (*models.Address, error) {
	if basket.BillingAddressID == nil {
		return nil, nil
	}
	addr, err := o.addresses.ByID(ctx, *basket.BillingAddressID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return addr, nil
}

func (o *Orchestrator) chosenShippingMethod(ctx context.Context, basket *models.Basket, addr *models.Address) (shipping.Method, error) {
	if basket.ShippingMethodCode == nil {
		return shipping.Method{}, ErrMissingShippingMethod
	}
	methods := o.shipping.Methods(ctx, basket.OwnerID, basket, addr)
	method, ok := shipping.ByCode(methods, *basket.ShippingMethodCode)
	if !ok {
		return shipping.Method{}, ErrMissingShippingMethod
	}
	return method, nil
}

// cartSnapshot is the renderable cart blob stored on the pre-auth snapshot.
type cartSnapshot struct {
	Items []cartSnapshotItem `json:"items"`
	Total decimal.Decimal    `json:"total"`
	// CapturedAt records when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at"`
}

type cartSnapshotItem struct {
	SKU       string          `json:"sku"`
	Title     string          `json:"title"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (o *Orchestrator) savePreAuth(ctx context.Context, basket *models.Basket, req *InitiateRequest, token string, shipAddr *models.Address) error {
	billAddr, err := o.basketBillingAddress(ctx, basket)
	if err != nil {
		return err
	}

	cart, err := json.Marshal(cartSnapshot{
		Items: lo.Map(basket.Lines, func(l *models.BasketLine, _ int) cartSnapshotItem {
			return cartSnapshotItem{SKU: l.SKU, Title: l.Title, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		}),
		Total:      basket.Total(),
		CapturedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	snap := &models.PreAuthSnapshot{
		Token:        token,
		BillingAddr:  billAddr.Summary(),
		ShippingAddr: shipAddr.Summary(),
		ShoppingCart: string(cart),
		CustomerID:   req.CustomerID,
		BasketID:     &basket.ID,
	}
	if req.CustomerEmail != "" {
		email := req.CustomerEmail
		snap.Email = &email
	}
	return o.ledger.SavePreAuth(ctx, snap)
}
