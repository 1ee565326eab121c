package checkout

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/clearbrook/checkout/internal/app/service/shipping"
	"github.com/clearbrook/checkout/pkg/config"
)

// Orchestrator drives the four checkout phases against the gateway, the
// audit ledger and the order/basket stores. It is stateless: durable state
// transitions (basket status, order existence, ledger rows) are the only
// channel between phases.
type Orchestrator struct {
	cfg *config.Config
	log *zap.SugaredLogger

	gateway   Gateway
	ledger    Ledger
	baskets   BasketStore
	orders    OrderStore
	payments  PaymentStore
	addresses AddressStore
	shipping  shipping.Resolver
}

type Params struct {
	fx.In

	Cfg       *config.Config
	Log       *zap.SugaredLogger
	Gateway   Gateway
	Ledger    Ledger
	Baskets   BasketStore
	Orders    OrderStore
	Payments  PaymentStore
	Addresses AddressStore
	Shipping  shipping.Resolver
}

func NewOrchestrator(p Params) Service {
	return &Orchestrator{
		cfg:       p.Cfg,
		log:       p.Log,
		gateway:   p.Gateway,
		ledger:    p.Ledger,
		baskets:   p.Baskets,
		orders:    p.Orders,
		payments:  p.Payments,
		addresses: p.Addresses,
		shipping:  p.Shipping,
	}
}
