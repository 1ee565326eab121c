package checkout

import (
	"context"
	"errors"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/logctx"
)

// HandleCancel runs Phase B: the buyer backed out on the gateway (or the
// gateway sent them to the cancel URL after an unrecoverable decline).
//
// If an order already exists for the basket the decline happened after order
// placement; the order is cancelled and the buyer lands on its status page.
// Otherwise the frozen basket is thawed. Repeated cancels are harmless: thaw
// is a no-op on an already-open basket.
func (o *Orchestrator) HandleCancel(ctx context.Context, basketID string) (*RedirectTarget, error) {
	log := logctx.FromCtx(ctx, o.log)
	cancelled := &Message{Level: MessageError, Text: "PayPal transaction cancelled"}

	order, err := o.orders.ByBasketID(ctx, basketID)
	switch {
	case err == nil:
		if err := o.orders.SetStatus(ctx, order.Number, models.OrderStatusCancelled); err != nil {
			return nil, err
		}
		log.Infow("payment cancelled after order placement", "basket_id", basketID, "order_number", order.Number)
		return &RedirectTarget{URL: OrderStatusURL(order.Number), Message: cancelled}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	basket, err := o.baskets.ByID(ctx, basketID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return redirectMsg(RouteBasketSummary, MessageError, "No basket was found"), nil
		}
		return nil, err
	}
	if err := o.baskets.Thaw(ctx, basket); err != nil {
		return nil, err
	}
	log.Infow("payment cancelled, basket thawed", "basket_id", basketID)
	return &RedirectTarget{URL: RouteBasketSummary, Message: cancelled}, nil
}
