package shipping

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/config"
)

func tableResolver(methods ...*config.ShippingMethodConfig) Resolver {
	cfg := &config.Config{Shipping: config.ShippingConfig{Methods: methods}}
	return NewTableResolver(cfg, zap.NewNop().Sugar())
}

func physicalBasket() *models.Basket {
	return &models.Basket{Lines: []*models.BasketLine{{SKU: "widget", Quantity: 1, UnitPrice: decimal.RequireFromString("49.99")}}}
}

func TestTableResolver_FiltersByCountry(t *testing.T) {
	r := tableResolver(
		&config.ShippingMethodConfig{Code: "uk-only", Name: "UK Only", Charge: "2.50", Countries: []string{"GB"}},
		&config.ShippingMethodConfig{Code: "worldwide", Name: "Worldwide", Charge: "12.00"},
	)

	methods := r.Methods(context.Background(), nil, physicalBasket(), &models.Address{CountryCode: "GB"})
	require.Len(t, methods, 2)

	methods = r.Methods(context.Background(), nil, physicalBasket(), &models.Address{CountryCode: "DE"})
	require.Len(t, methods, 1)
	require.Equal(t, "worldwide", methods[0].Code)
}

func TestTableResolver_CheapestFirst(t *testing.T) {
	r := tableResolver(
		&config.ShippingMethodConfig{Code: "express", Name: "Express", Charge: "9.50"},
		&config.ShippingMethodConfig{Code: "standard", Name: "Standard", Charge: "3.00"},
	)

	methods := r.Methods(context.Background(), nil, physicalBasket(), &models.Address{CountryCode: "GB"})
	require.Len(t, methods, 2)
	require.Equal(t, "standard", methods[0].Code)
	require.Equal(t, "express", methods[1].Code)
}

func TestTableResolver_UnknownCountryOnlyUnrestricted(t *testing.T) {
	r := tableResolver(
		&config.ShippingMethodConfig{Code: "uk-only", Name: "UK Only", Charge: "2.50", Countries: []string{"GB"}},
		&config.ShippingMethodConfig{Code: "worldwide", Name: "Worldwide", Charge: "12.00"},
	)

	methods := r.Methods(context.Background(), nil, physicalBasket(), nil)
	require.Len(t, methods, 1)
	require.Equal(t, "worldwide", methods[0].Code)
}

func TestTableResolver_DigitalBasketNeedsNoShipping(t *testing.T) {
	r := tableResolver(&config.ShippingMethodConfig{Code: "standard", Name: "Standard", Charge: "3.00"})
	basket := &models.Basket{Lines: []*models.BasketLine{{SKU: "ebook", Quantity: 1, Digital: true, UnitPrice: decimal.RequireFromString("10.00")}}}

	methods := r.Methods(context.Background(), nil, basket, &models.Address{CountryCode: "GB"})
	require.Len(t, methods, 1)
	require.Equal(t, "no-shipping", methods[0].Code)
	require.True(t, methods[0].Charge.IsZero())
}

func TestTableResolver_SkipsMalformedCharge(t *testing.T) {
	r := tableResolver(
		&config.ShippingMethodConfig{Code: "broken", Name: "Broken", Charge: "free"},
		&config.ShippingMethodConfig{Code: "standard", Name: "Standard", Charge: "3.00"},
	)

	methods := r.Methods(context.Background(), nil, physicalBasket(), &models.Address{CountryCode: "GB"})
	require.Len(t, methods, 1)
	require.Equal(t, "standard", methods[0].Code)
}

func TestByCode(t *testing.T) {
	methods := []Method{{Code: "standard"}, {Code: "express"}}

	m, ok := ByCode(methods, "express")
	require.True(t, ok)
	require.Equal(t, "express", m.Code)

	_, ok = ByCode(methods, "pigeon")
	require.False(t, ok)
}
