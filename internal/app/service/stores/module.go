package stores

import "go.uber.org/fx"

// Module exposes the gorm-backed store implementations via Fx, bound to the
// orchestrator's collaborator interfaces.
var Module = fx.Options(
	fx.Provide(NewBasketStore),
	fx.Provide(NewOrderStore),
	fx.Provide(NewPaymentStore),
	fx.Provide(NewAddressStore),
)
