package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/internal/platform/paypal"
	"github.com/clearbrook/checkout/pkg/logctx"
)

// paymentDetails is the capture snapshot persisted on the order for every
// outcome, success or decline.
type paymentDetails struct {
	Token         string          `json:"token"`
	PayerID       string          `json:"payer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Outcome       string          `json:"outcome"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
	CapturedAt    time.Time       `json:"captured_at"`
}

// HandlePayment runs Phase D: allocate a payment source, issue the capture
// call and settle or decline the order. The one decline code that means "the
// buyer may still be able to pay" re-redirects to the gateway instead of
// cancelling; every other failure cancels the order and records a Failure
// event keyed by the gateway correlation id.
func (o *Orchestrator) HandlePayment(ctx context.Context, p *PaymentParams) (*RedirectTarget, error) {
	log := logctx.FromCtx(ctx, o.log)

	order, err := o.orders.ByNumber(ctx, p.OrderNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return redirectMsg(RouteBasketSummary, MessageError, "Order not found"), nil
		}
		return nil, err
	}

	if _, err := o.payments.EnsureSource(ctx, order.Number, p.Currency, p.Amount); err != nil {
		return nil, err
	}

	details := paymentDetails{
		Token:      p.Token,
		PayerID:    p.PayerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		CapturedAt: time.Now().UTC(),
	}

	target, err := o.capture(ctx, order, p, &details)
	if err != nil {
		return nil, err
	}

	// The payment snapshot is persisted in every outcome, before the buyer
	// is redirected, so history survives declines.
	if err := o.payments.SavePaymentDetails(ctx, order.Number, details); err != nil {
		return nil, err
	}
	log.Infow("capture finished", "order_number", order.Number, "outcome", details.Outcome)
	return target, nil
}

func (o *Orchestrator) capture(ctx context.Context, order *models.Order, p *PaymentParams, details *paymentDetails) (*RedirectTarget, error) {
	resp, err := o.gateway.DoExpressCheckoutPayment(ctx, paypal.PaymentParams{
		PayerID:  p.PayerID,
		Token:    p.Token,
		Amount:   p.Amount,
		Currency: p.Currency,
	})

	var gerr *paypal.Error
	switch {
	case err != nil && errors.As(err, &gerr):
		// Transport-level failure: no response to record.
	case err != nil:
		gerr = &paypal.Error{Message: err.Error()}
	default:
		if _, lerr := o.ledger.Record(ctx, resp); lerr != nil {
			return nil, lerr
		}
		gerr = resp.Err()
	}

	if gerr != nil {
		details.CorrelationID = gerr.CorrelationID
		details.ErrorCode = gerr.Code
		if gerr.Code == paypal.CodePaymentRetry {
			// The buyer may still be able to pay with a different funding
			// source; send them back to the gateway with the same token
			// instead of cancelling a possibly-payable order.
			details.Outcome = "retry"
			return redirect(o.gateway.RedirectURL(p.Token)), nil
		}
		details.Outcome = "declined"
		return o.declineOrder(ctx, order, p.Amount, gerr)
	}

	correlationID := resp.CorrelationID()
	details.Outcome = "settled"
	details.CorrelationID = correlationID

	amount := p.Amount
	if a, aerr := resp.TransactionAmount(); aerr == nil {
		amount = a
	}
	if err := o.payments.AddEvent(ctx, order.Number, models.PaymentEventSettled, amount, correlationID); err != nil {
		return nil, err
	}
	if err := o.orders.SetStatus(ctx, order.Number, models.OrderStatusPaid); err != nil {
		return nil, err
	}
	return redirect(RouteThankYou), nil
}

func (o *Orchestrator) declineOrder(ctx context.Context, order *models.Order, amount decimal.Decimal, gerr *paypal.Error) (*RedirectTarget, error) {
	if err := o.orders.SetStatus(ctx, order.Number, models.OrderStatusCancelled); err != nil {
		return nil, err
	}
	if err := o.payments.AddEvent(ctx, order.Number, models.PaymentEventFailure, amount, gerr.CorrelationID); err != nil {
		return nil, err
	}

	msg := "A problem occurred while processing payment for this order - no payment has been taken. Please contact customer services if this problem persists"
	if gerr.Code != "" {
		msg = fmt.Sprintf("%s [Code: %s]", msg, gerr.Code)
	}
	return redirectMsg(OrderStatusURL(order.Number), MessageError, msg), nil
}
