package app

import (
	"time"

	"github.com/clearbrook/checkout/internal/app/api/server"
	"github.com/clearbrook/checkout/internal/app/service/checkout"
	"github.com/clearbrook/checkout/internal/app/service/ledger"
	"github.com/clearbrook/checkout/internal/app/service/shipping"
	"github.com/clearbrook/checkout/internal/app/service/stores"
	"github.com/clearbrook/checkout/internal/platform/db"
	"github.com/clearbrook/checkout/internal/platform/paypal"
	"github.com/clearbrook/checkout/pkg/config"
	"github.com/clearbrook/checkout/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

func newPayPalClient(cfg *config.Config) *paypal.Client {
	return paypal.NewClient(paypal.Config{
		User:      cfg.PayPal.User,
		Password:  cfg.PayPal.Password,
		Signature: cfg.PayPal.Signature,
		Version:   cfg.PayPal.Version,
		Sandbox:   cfg.PayPal.Sandbox,
	})
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	shipping.Module,
	ledger.Module,
	stores.Module,
	checkout.Module,
	fx.Provide(newPayPalClient),
	fx.Provide(func(c *paypal.Client) checkout.Gateway { return c }),
	fx.Provide(func(s *ledger.Service) checkout.Ledger { return s }),
)
