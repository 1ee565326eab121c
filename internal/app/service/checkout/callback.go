package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/internal/platform/paypal"
	"github.com/clearbrook/checkout/pkg/logctx"
)

// ShippingOptions answers the gateway's mid-session callback: the buyer is
// picking a shipping address on the gateway UI and the gateway asks which
// methods deliver there. The response is an ordered NVP document; the
// gateway's UI depends on always receiving one, so this degrades (empty
// country, "no options" flag) rather than failing. found is false only when
// the basket id resolves to nothing.
func (o *Orchestrator) ShippingOptions(ctx context.Context, req *ShippingCallbackRequest) (string, bool) {
	log := logctx.FromCtx(ctx, o.log)

	basket, err := o.baskets.ByID(ctx, req.BasketID)
	if err != nil {
		log.Warnw("shipping callback for unknown basket", "basket_id", req.BasketID, "err", err)
		return "", false
	}

	// Provisional address from the callback payload. A missing or malformed
	// country code degrades to an empty country value.
	addr := &models.Address{
		Line1:       req.Street,
		Line2:       req.Street2,
		City:        req.City,
		State:       req.State,
		Postcode:    req.Postcode,
		CountryCode: normalizeCountry(req.CountryCode),
	}

	methods := o.shipping.Methods(ctx, basket.OwnerID, basket, addr)

	currency := req.CurrencyCode
	if currency == "" {
		currency = o.cfg.PayPal.Currency
	}

	pairs := []paypal.Pair{
		{Key: "METHOD", Value: "CallbackResponse"},
		{Key: "CURRENCYCODE", Value: currency},
	}
	if len(methods) == 0 {
		// Flag up to the gateway that we do not ship to this address.
		pairs = append(pairs, paypal.Pair{Key: "NO_SHIPPING_OPTION_DETAILS", Value: "1"})
		return paypal.EncodePairs(pairs), true
	}

	zero := decimal.Zero.StringFixed(2)
	for i, m := range methods {
		isDefault := "0"
		if i == 0 {
			isDefault = "1"
		}
		pairs = append(pairs,
			paypal.Pair{Key: fmt.Sprintf("L_SHIPPINGOPTIONNAME%d", i), Value: m.Name},
			paypal.Pair{Key: fmt.Sprintf("L_SHIPPINGOPTIONLABEL%d", i), Value: m.Label},
			paypal.Pair{Key: fmt.Sprintf("L_SHIPPINGOPTIONAMOUNT%d", i), Value: m.Charge.StringFixed(2)},
			// Tax and insurance are assumed zero for now.
			paypal.Pair{Key: fmt.Sprintf("L_TAXAMT%d", i), Value: zero},
			paypal.Pair{Key: fmt.Sprintf("L_INSURANCEAMT%d", i), Value: zero},
			paypal.Pair{Key: fmt.Sprintf("L_SHIPPINGOPTIONISDEFAULT%d", i), Value: isDefault},
		)
	}
	return paypal.EncodePairs(pairs), true
}

// normalizeCountry keeps only well-formed ISO alpha-2 codes.
func normalizeCountry(code string) string {
	if len(code) != 2 {
		return ""
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return code
}
