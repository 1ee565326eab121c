package checkout

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store implementations when no row matches.
var ErrNotFound = errors.New("record not found")

var (
	// ErrEmptyBasket rejects initiation of a checkout for a basket with no
	// lines.
	ErrEmptyBasket = errors.New("basket is empty")
	// ErrMissingShippingAddress is raised when checkout-page initiation runs
	// without a resolved shipping address.
	ErrMissingShippingAddress = errors.New("a shipping address must be specified")
	// ErrMissingShippingMethod is raised when checkout-page initiation runs
	// without a chosen shipping method.
	ErrMissingShippingMethod = errors.New("a shipping method must be specified")
	// ErrBasketNotFound means no frozen basket matches the returning buyer's
	// basket id.
	ErrBasketNotFound = errors.New("basket not found")
	// ErrCountryMismatch rejects order placement when shipping and billing
	// countries differ.
	ErrCountryMismatch = errors.New("different shipping and billing country")
	// ErrTermsNotAccepted rejects order placement without terms-of-service
	// acceptance.
	ErrTermsNotAccepted = errors.New("terms and conditions not accepted")
	// ErrMissingParameters means the gateway return lacked the token or
	// payer id.
	ErrMissingParameters = errors.New("missing token or payer id")
)

// InvalidBasketError carries a human-readable reason the basket cannot be
// checked out.
type InvalidBasketError struct {
	Reason string
}

func (e *InvalidBasketError) Error() string {
	return fmt.Sprintf("invalid basket: %s", e.Reason)
}
