package checkout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/app/service/shipping"
	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/internal/platform/paypal"
	"github.com/clearbrook/checkout/pkg/logctx"
)

const gatewayProblemMsg = "A problem occurred communicating with PayPal - please try again later"

// HandleSuccessReturn runs the Phase C GET: the buyer came back from the
// gateway with a token and payer id, and expects an order preview. When an
// order already exists for the basket (second return for the same checkout)
// the preview is skipped and the buyer is routed straight to capture.
func (o *Orchestrator) HandleSuccessReturn(ctx context.Context, p *ReturnParams) (*SuccessResult, error) {
	log := logctx.FromCtx(ctx, o.log)

	order, err := o.orders.ByBasketID(ctx, p.BasketID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		order = nil
	}

	if p.PayerID == "" || p.Token == "" {
		log.Warnw("missing query params on success return", "basket_id", p.BasketID)
		return &SuccessResult{
			Redirect: redirectMsg(RouteBasketSummary, MessageError, "Unable to determine PayPal transaction details"),
		}, nil
	}

	resp, err := o.fetchDetails(ctx, p.Token)
	if err != nil {
		log.Warnw("unable to fetch transaction details", "token", p.Token, "err", err)
		if order == nil {
			return &SuccessResult{Redirect: redirectMsg(RouteBasketSummary, MessageError, gatewayProblemMsg)}, nil
		}
		return &SuccessResult{Redirect: redirectMsg(OrderStatusURL(order.Number), MessageError, gatewayProblemMsg)}, nil
	}

	amount, aerr := resp.TransactionAmount()
	currency := resp.TransactionCurrency()

	if order != nil {
		// Duplicate return: the order exists, so skip the preview and go
		// straight to capture with the freshly fetched amount.
		if aerr != nil {
			return &SuccessResult{Redirect: redirectMsg(OrderStatusURL(order.Number), MessageError, gatewayProblemMsg)}, nil
		}
		return &SuccessResult{Redirect: redirect(PaymentURL(order.Number, amount, currency, p.Token, p.PayerID))}, nil
	}

	basket, err := o.loadFrozenBasket(ctx, p.BasketID)
	if err != nil {
		return nil, err
	}
	if basket == nil {
		log.Warnw("unable to load frozen basket", "basket_id", p.BasketID)
		return &SuccessResult{
			Redirect: redirectMsg(RouteBasketSummary, MessageError, "No basket was found that corresponds to your PayPal transaction"),
		}, nil
	}
	if aerr != nil {
		return &SuccessResult{Redirect: redirectMsg(RouteBasketSummary, MessageError, gatewayProblemMsg)}, nil
	}

	log.Infow("showing preview", "basket_id", basket.ID, "payer_id", p.PayerID, "token", p.Token)
	return &SuccessResult{
		Preview: &Preview{
			BasketID:    basket.ID,
			Token:       p.Token,
			PayerID:     p.PayerID,
			Email:       o.buyerEmail(ctx, resp, p.Token),
			Amount:      amount,
			Currency:    currency,
			BasketTotal: basket.Total(),
		},
	}, nil
}

// SubmitPreview runs the Phase C POST: re-fetch the transaction (client
// submitted amounts are never trusted), validate the submission and place the
// order, then route to capture.
func (o *Orchestrator) SubmitPreview(ctx context.Context, p *SubmitParams) (*RedirectTarget, error) {
	log := logctx.FromCtx(ctx, o.log)

	if p.PayerID == "" || p.Token == "" {
		return redirectMsg(RouteBasketSummary, MessageError, gatewayProblemMsg), nil
	}

	resp, err := o.fetchDetails(ctx, p.Token)
	if err != nil {
		log.Warnw("unable to fetch transaction details on submit", "token", p.Token, "err", err)
		return redirectMsg(RouteBasketSummary, MessageError, gatewayProblemMsg), nil
	}

	basket, err := o.loadFrozenBasket(ctx, p.BasketID)
	if err != nil {
		return nil, err
	}
	if basket == nil {
		return redirectMsg(RouteBasketSummary, MessageError, gatewayProblemMsg), nil
	}

	previewURL := PreviewURL(basket.ID, p.Token, p.PayerID)

	shipAddr, billAddr, err := o.submissionAddresses(ctx, basket, resp)
	if err != nil {
		return nil, err
	}
	if shipAddr != nil && billAddr != nil && shipAddr.CountryCode != billAddr.CountryCode {
		log.Warnw("shipping and billing country differ",
			"basket_id", basket.ID, "shipping", shipAddr.CountryCode, "billing", billAddr.CountryCode)
		return redirectMsg(previewURL, MessageError, ErrCountryMismatch.Error()), nil
	}
	if !p.TermsAccepted {
		return redirectMsg(previewURL, MessageError, "To place your order, you need to agree to our terms and conditions"), nil
	}

	amount, err := resp.TransactionAmount()
	if err != nil {
		return redirectMsg(RouteBasketSummary, MessageError, gatewayProblemMsg), nil
	}
	currency := resp.TransactionCurrency()

	method := o.resolveShippingMethod(ctx, basket, shipAddr, resp)

	order, err := o.orders.Place(ctx, &PlaceOrderRequest{
		Basket:             basket,
		GuestEmail:         o.buyerEmail(ctx, resp, p.Token),
		PayerID:            p.PayerID,
		Token:              p.Token,
		Total:              amount,
		Currency:           currency,
		ShippingMethodName: method.Name,
		ShippingCharge:     method.Charge,
	})
	if err != nil {
		return nil, err
	}

	log.Infow("order placed", "basket_id", basket.ID, "order_number", order.Number)
	return redirect(PaymentURL(order.Number, amount, currency, p.Token, p.PayerID)), nil
}

// fetchDetails issues GetExpressCheckoutDetails and records the call; it
// returns an error for transport failures and failed acknowledgements alike.
func (o *Orchestrator) fetchDetails(ctx context.Context, token string) (*paypal.Response, error) {
	resp, err := o.gateway.GetExpressCheckoutDetails(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := o.ledger.Record(ctx, resp); err != nil {
		return nil, err
	}
	if gerr := resp.Err(); gerr != nil {
		return nil, gerr
	}
	return resp, nil
}

// buyerEmail prefers the email reported on the details response. Some payer
// accounts withhold EMAIL, so the pre-auth snapshot captured when the
// session was opened fills in.
func (o *Orchestrator) buyerEmail(ctx context.Context, resp *paypal.Response, token string) string {
	if email := resp.BuyerEmail(); email != "" {
		return email
	}
	snap, err := o.ledger.PreAuthByToken(ctx, token)
	if err != nil || snap.Email == nil {
		return ""
	}
	return *snap.Email
}

// loadFrozenBasket reloads the basket reserved for this checkout. Prices are
// recomputed from current lines on access, so the preview shows fresh totals.
func (o *Orchestrator) loadFrozenBasket(ctx context.Context, basketID string) (*models.Basket, error) {
	basket, err := o.baskets.FrozenByID(ctx, basketID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return basket, nil
}

// submissionAddresses resolves the shipping and billing addresses used for
// the country check. The basket's own addresses win; the gateway-reported
// ship-to address fills in when the merchant never collected one. A missing
// billing address defaults to the shipping address.
func (o *Orchestrator) submissionAddresses(ctx context.Context, basket *models.Basket, resp *paypal.Response) (shipAddr, billAddr *models.Address, err error) {
	shipAddr, err = o.basketShippingAddress(ctx, basket)
	if err != nil {
		return nil, nil, err
	}
	if shipAddr == nil {
		shipAddr = resp.ShipToAddress()
	}
	billAddr, err = o.basketBillingAddress(ctx, basket)
	if err != nil {
		return nil, nil, err
	}
	if billAddr == nil {
		billAddr = shipAddr
	}
	return shipAddr, billAddr, nil
}

// resolveShippingMethod picks the method used for order pricing: the
// gateway-returned option when the buyer chose one on the gateway UI, else
// the method already chosen in the buyer's session, else the cheapest
// available (documented default for the unspecified fallback).
func (o *Orchestrator) resolveShippingMethod(ctx context.Context, basket *models.Basket, addr *models.Address, resp *paypal.Response) shipping.Method {
	if !basket.IsShippingRequired() {
		return shipping.Method{Code: "no-shipping", Name: "No shipping required", Charge: decimal.Zero}
	}
	if name := resp.ShippingOptionName(); name != "" {
		return shipping.Method{Code: "gateway-option", Name: name, Charge: resp.ShippingCharge()}
	}
	methods := o.shipping.Methods(ctx, basket.OwnerID, basket, addr)
	if basket.ShippingMethodCode != nil {
		if m, ok := shipping.ByCode(methods, *basket.ShippingMethodCode); ok {
			m.Charge = resp.ShippingCharge()
			return m
		}
	}
	if len(methods) > 0 {
		return methods[0]
	}
	return shipping.Method{Code: "unresolved", Name: "Shipping", Charge: resp.ShippingCharge()}
}
