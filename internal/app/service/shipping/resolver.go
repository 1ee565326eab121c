package shipping

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/config"
)

// Method is one deliverable shipping method with its charge for a basket.
type Method struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Label  string          `json:"label"`
	Charge decimal.Decimal `json:"charge"`
}

// Resolver ranks the shipping methods deliverable for a basket and candidate
// destination. Implementations never fail: an empty slice means nothing ships
// to that destination.
type Resolver interface {
	Methods(ctx context.Context, ownerID *string, basket *models.Basket, addr *models.Address) []Method
}

// TableResolver resolves methods from the configured rate table, cheapest
// first.
type TableResolver struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

func NewTableResolver(cfg *config.Config, log *zap.SugaredLogger) Resolver {
	return &TableResolver{cfg: cfg, log: log}
}

func (r *TableResolver) Methods(ctx context.Context, ownerID *string, basket *models.Basket, addr *models.Address) []Method {
	if basket != nil && !basket.IsShippingRequired() {
		return []Method{{Code: "no-shipping", Name: "No shipping required", Label: "No shipping required", Charge: decimal.Zero}}
	}

	country := ""
	if addr != nil {
		country = addr.CountryCode
	}

	available := lo.Filter(r.cfg.Shipping.Methods, func(m *config.ShippingMethodConfig, _ int) bool {
		return shipsTo(m, country)
	})

	methods := make([]Method, 0, len(available))
	for _, m := range available {
		charge, err := decimal.NewFromString(m.Charge)
		if err != nil {
			r.log.Warnw("invalid shipping charge in config", "code", m.Code, "charge", m.Charge)
			continue
		}
		methods = append(methods, Method{Code: m.Code, Name: m.Name, Label: m.Label, Charge: charge})
	}

	sort.SliceStable(methods, func(i, j int) bool {
		return methods[i].Charge.LessThan(methods[j].Charge)
	})
	return methods
}

// shipsTo reports whether a method delivers to the country. A method with no
// country restriction ships anywhere, including to an unknown (empty) country.
func shipsTo(m *config.ShippingMethodConfig, country string) bool {
	if len(m.Countries) == 0 {
		return true
	}
	if country == "" {
		return false
	}
	return lo.Contains(m.Countries, country)
}

// ByCode finds a method by its code among the resolved candidates.
func ByCode(methods []Method, code string) (Method, bool) {
	return lo.Find(methods, func(m Method) bool { return m.Code == code })
}
