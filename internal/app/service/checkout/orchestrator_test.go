package checkout

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearbrook/checkout/internal/app/service/shipping"
	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/internal/platform/paypal"
	"github.com/clearbrook/checkout/pkg/config"
)

func nvpResponse(method models.NVPMethod, kv map[string]string) *paypal.Response {
	vals := url.Values{}
	for k, v := range kv {
		vals.Set(k, v)
	}
	return &paypal.Response{Method: method, Version: "88.0", Values: vals}
}

type stubGateway struct {
	setResp *paypal.Response
	setErr  error
	getResp *paypal.Response
	getErr  error
	doResp  *paypal.Response
	doErr   error

	setCalls int
	doCalls  int
	lastSet  paypal.SetCheckoutParams
	lastDo   paypal.PaymentParams
}

func (g *stubGateway) SetExpressCheckout(_ context.Context, p paypal.SetCheckoutParams) (*paypal.Response, error) {
	g.setCalls++
	g.lastSet = p
	return g.setResp, g.setErr
}

func (g *stubGateway) GetExpressCheckoutDetails(_ context.Context, _ string) (*paypal.Response, error) {
	return g.getResp, g.getErr
}

func (g *stubGateway) DoExpressCheckoutPayment(_ context.Context, p paypal.PaymentParams) (*paypal.Response, error) {
	g.doCalls++
	g.lastDo = p
	return g.doResp, g.doErr
}

func (g *stubGateway) RedirectURL(token string) string {
	return "https://www.sandbox.paypal.com/webscr?cmd=_express-checkout&token=" + token
}

type stubLedger struct {
	recorded []*paypal.Response
	snaps    []*models.PreAuthSnapshot
}

func (l *stubLedger) Record(_ context.Context, resp *paypal.Response) (*models.ExpressTransaction, error) {
	l.recorded = append(l.recorded, resp)
	return &models.ExpressTransaction{Ack: resp.Ack(), Token: resp.Token()}, nil
}

func (l *stubLedger) SavePreAuth(_ context.Context, snap *models.PreAuthSnapshot) error {
	l.snaps = append(l.snaps, snap)
	return nil
}

func (l *stubLedger) PreAuthByToken(_ context.Context, token string) (*models.PreAuthSnapshot, error) {
	for _, s := range l.snaps {
		if s.Token == token {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

type stubBaskets struct {
	baskets map[string]*models.Basket
}

func (s *stubBaskets) ByID(_ context.Context, id string) (*models.Basket, error) {
	b, ok := s.baskets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *stubBaskets) FrozenByID(_ context.Context, id string) (*models.Basket, error) {
	b, ok := s.baskets[id]
	if !ok || b.Status != models.BasketStatusFrozen {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *stubBaskets) Freeze(_ context.Context, basket *models.Basket) error {
	basket.Status = models.BasketStatusFrozen
	return nil
}

func (s *stubBaskets) Thaw(_ context.Context, basket *models.Basket) error {
	if basket.Status == models.BasketStatusFrozen {
		basket.Status = models.BasketStatusOpen
	}
	return nil
}

type stubOrders struct {
	orders map[string]*models.Order
	placed []*PlaceOrderRequest
}

func (s *stubOrders) ByNumber(_ context.Context, number string) (*models.Order, error) {
	o, ok := s.orders[number]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *stubOrders) ByBasketID(_ context.Context, basketID string) (*models.Order, error) {
	for _, o := range s.orders {
		if o.BasketID == basketID {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubOrders) Place(_ context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	s.placed = append(s.placed, req)
	o := &models.Order{
		Number:   "200001",
		BasketID: req.Basket.ID,
		Status:   models.OrderStatusPending,
		Currency: req.Currency,
		Total:    req.Total,
	}
	s.orders[o.Number] = o
	req.Basket.Status = models.BasketStatusSubmitted
	return o, nil
}

func (s *stubOrders) SetStatus(_ context.Context, number string, status models.OrderStatus) error {
	o, ok := s.orders[number]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

type stubPayments struct {
	sources map[string]*models.PaymentSource
	events  []*models.PaymentEvent
	details map[string]any
}

func (s *stubPayments) EnsureSource(_ context.Context, orderNumber, currency string, amount decimal.Decimal) (*models.PaymentSource, error) {
	src, ok := s.sources[orderNumber]
	if !ok {
		src = &models.PaymentSource{OrderNumber: orderNumber, Currency: currency, AmountAllocated: amount, AmountDebited: amount}
		s.sources[orderNumber] = src
	}
	return src, nil
}

func (s *stubPayments) AddEvent(_ context.Context, orderNumber string, typ models.PaymentEventType, amount decimal.Decimal, reference string) error {
	s.events = append(s.events, &models.PaymentEvent{OrderNumber: orderNumber, Type: typ, Amount: amount, Reference: reference})
	return nil
}

func (s *stubPayments) SavePaymentDetails(_ context.Context, orderNumber string, details any) error {
	s.details[orderNumber] = details
	return nil
}

type stubAddresses struct {
	addrs map[string]*models.Address
}

func (s *stubAddresses) ByID(_ context.Context, id string) (*models.Address, error) {
	a, ok := s.addrs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

type stubResolver struct {
	methods  []shipping.Method
	lastAddr *models.Address
}

func (r *stubResolver) Methods(_ context.Context, _ *string, _ *models.Basket, addr *models.Address) []shipping.Method {
	r.lastAddr = addr
	return r.methods
}

type fixture struct {
	orch      Service
	gateway   *stubGateway
	ledger    *stubLedger
	baskets   *stubBaskets
	orders    *stubOrders
	payments  *stubPayments
	addresses *stubAddresses
	resolver  *stubResolver
}

func newFixture() *fixture {
	f := &fixture{
		gateway:   &stubGateway{},
		ledger:    &stubLedger{},
		baskets:   &stubBaskets{baskets: map[string]*models.Basket{}},
		orders:    &stubOrders{orders: map[string]*models.Order{}},
		payments:  &stubPayments{sources: map[string]*models.PaymentSource{}, details: map[string]any{}},
		addresses: &stubAddresses{addrs: map[string]*models.Address{}},
		resolver:  &stubResolver{},
	}
	cfg := &config.Config{
		Server: config.ServerConfig{PublicURL: "https://shop.example.com"},
		PayPal: config.PayPalConfig{Currency: "USD", Version: "88.0"},
	}
	f.orch = NewOrchestrator(Params{
		Cfg:       cfg,
		Log:       zap.NewNop().Sugar(),
		Gateway:   f.gateway,
		Ledger:    f.ledger,
		Baskets:   f.baskets,
		Orders:    f.orders,
		Payments:  f.payments,
		Addresses: f.addresses,
		Shipping:  f.resolver,
	})
	return f
}

func (f *fixture) addBasket(id string, status models.BasketStatus, lines ...*models.BasketLine) *models.Basket {
	b := &models.Basket{ID: id, Status: status, Currency: "USD", Lines: lines}
	f.baskets.baskets[id] = b
	return b
}

func physicalLine(sku string, qty int32, price string) *models.BasketLine {
	return &models.BasketLine{SKU: sku, Title: sku, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func digitalLine(sku string, qty int32, price string) *models.BasketLine {
	l := physicalLine(sku, qty, price)
	l.Digital = true
	return l
}

func TestInitiate_EmptyBasketIsRejected(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusOpen)

	target, err := f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "b1"})
	require.NoError(t, err)
	require.Equal(t, RouteBasketSummary, target.URL)
	require.NotNil(t, target.Message)
	require.Equal(t, MessageError, target.Message.Level)
	require.Zero(t, f.gateway.setCalls, "gateway must not be contacted for an empty basket")
	require.Equal(t, models.BasketStatusOpen, f.baskets.baskets["b1"].Status)
}

func TestInitiate_UnknownBasket(t *testing.T) {
	f := newFixture()

	target, err := f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "missing"})
	require.NoError(t, err)
	require.Equal(t, RouteBasketSummary, target.URL)
	require.Zero(t, f.gateway.setCalls)
}

func TestInitiate_FrozenBasketIsRejected(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))

	target, err := f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "b1"})
	require.NoError(t, err)
	require.Equal(t, RouteBasketSummary, target.URL)
	require.Equal(t, MessageWarning, target.Message.Level)
	require.Zero(t, f.gateway.setCalls)
}

func TestInitiate_FreezesBasketAndSnapshotsSession(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusOpen, digitalLine("ebook", 2, "10.00"))
	f.gateway.setResp = nvpResponse(models.NVPMethodSetExpressCheckout, map[string]string{
		"ACK": "Success", "TOKEN": "EC-123",
	})

	target, err := f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "b1", CustomerEmail: "buyer@example.com"})
	require.NoError(t, err)
	require.Contains(t, target.URL, "cmd=_express-checkout")
	require.Contains(t, target.URL, "token=EC-123")

	require.Equal(t, models.BasketStatusFrozen, f.baskets.baskets["b1"].Status)
	require.Len(t, f.ledger.recorded, 1)
	require.Len(t, f.ledger.snaps, 1)

	snap := f.ledger.snaps[0]
	require.Equal(t, "EC-123", snap.Token)
	require.Contains(t, snap.ShoppingCart, "ebook")
	require.NotNil(t, snap.Email)
	require.Equal(t, "buyer@example.com", *snap.Email)

	require.True(t, f.gateway.lastSet.NoShipping, "digital-only basket fixes no-shipping on the gateway")
	require.True(t, f.gateway.lastSet.Amount.Equal(decimal.RequireFromString("20.00")))
}

func TestInitiate_GatewayFailureLeavesBasketOpen(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusOpen, digitalLine("ebook", 1, "10.00"))
	f.gateway.setResp = nvpResponse(models.NVPMethodSetExpressCheckout, map[string]string{
		"ACK": "Failure", "L_ERRORCODE0": "10001", "L_LONGMESSAGE0": "Internal Error",
	})

	target, err := f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "b1"})
	require.NoError(t, err)
	require.Equal(t, RouteBasketSummary, target.URL)
	require.Contains(t, target.Message.Text, "PayPal")

	// The failed call still lands in the audit trail.
	require.Len(t, f.ledger.recorded, 1)
	require.Empty(t, f.ledger.snaps)
	require.Equal(t, models.BasketStatusOpen, f.baskets.baskets["b1"].Status)
}

func TestInitiate_AsPaymentMethodRequiresAddressAndMethod(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusOpen, physicalLine("widget", 1, "49.99"))

	target, err := f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "b1", AsPaymentMethod: true})
	require.NoError(t, err)
	require.Equal(t, RouteShippingAddress, target.URL)

	// Address present, method missing.
	addrID := "a1"
	f.addresses.addrs[addrID] = &models.Address{ID: addrID, CountryCode: "GB", Line1: "1 Egg St"}
	f.baskets.baskets["b1"].ShippingAddressID = &addrID

	target, err = f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "b1", AsPaymentMethod: true})
	require.NoError(t, err)
	require.Equal(t, RouteShippingMethod, target.URL)
}

func TestInitiate_AsPaymentMethodFixesShipToAndCharge(t *testing.T) {
	f := newFixture()
	b := f.addBasket("b1", models.BasketStatusOpen, physicalLine("widget", 1, "49.99"))
	addrID, methodCode := "a1", "standard"
	f.addresses.addrs[addrID] = &models.Address{ID: addrID, FirstName: "Ada", LastName: "Lovelace", Line1: "1 Egg St", City: "London", CountryCode: "GB"}
	b.ShippingAddressID = &addrID
	b.ShippingMethodCode = &methodCode
	f.resolver.methods = []shipping.Method{{Code: "standard", Name: "Standard", Charge: decimal.RequireFromString("3.00")}}
	f.gateway.setResp = nvpResponse(models.NVPMethodSetExpressCheckout, map[string]string{
		"ACK": "Success", "TOKEN": "EC-55",
	})

	_, err := f.orch.Initiate(context.Background(), &InitiateRequest{BasketID: "b1", AsPaymentMethod: true})
	require.NoError(t, err)
	require.NotNil(t, f.gateway.lastSet.ShipTo)
	require.Equal(t, "GB", f.gateway.lastSet.ShipTo.CountryCode)
	require.True(t, f.gateway.lastSet.Amount.Equal(decimal.RequireFromString("52.99")), "total includes the shipping charge")
}

func TestHandleCancel_ThawsFrozenBasketAndIsIdempotent(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))

	for i := 0; i < 2; i++ {
		target, err := f.orch.HandleCancel(context.Background(), "b1")
		require.NoError(t, err)
		require.Equal(t, RouteBasketSummary, target.URL)
		require.Equal(t, "PayPal transaction cancelled", target.Message.Text)
		require.Equal(t, models.BasketStatusOpen, f.baskets.baskets["b1"].Status)
	}
}

func TestHandleCancel_CancelsPlacedOrder(t *testing.T) {
	f := newFixture()
	f.orders.orders["200001"] = &models.Order{Number: "200001", BasketID: "b1", Status: models.OrderStatusPending}

	target, err := f.orch.HandleCancel(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, OrderStatusURL("200001"), target.URL)
	require.Equal(t, models.OrderStatusCancelled, f.orders.orders["200001"].Status)
}

func TestHandleCancel_UnknownBasket(t *testing.T) {
	f := newFixture()

	target, err := f.orch.HandleCancel(context.Background(), "nope")
	require.NoError(t, err)
	require.Equal(t, RouteBasketSummary, target.URL)
	require.Equal(t, MessageError, target.Message.Level)
}

func TestHandleSuccessReturn_MissingParams(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))

	res, err := f.orch.HandleSuccessReturn(context.Background(), &ReturnParams{BasketID: "b1", Token: "EC-1"})
	require.NoError(t, err)
	require.Nil(t, res.Preview)
	require.Equal(t, RouteBasketSummary, res.Redirect.URL)
}

func TestHandleSuccessReturn_ShowsPreview(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))
	f.gateway.getResp = nvpResponse(models.NVPMethodGetExpressCheckoutDetails, map[string]string{
		"ACK": "Success", "TOKEN": "EC-1", "EMAIL": "buyer@example.com",
		"PAYMENTREQUEST_0_AMT": "49.99", "PAYMENTREQUEST_0_CURRENCYCODE": "USD",
	})

	res, err := f.orch.HandleSuccessReturn(context.Background(), &ReturnParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9"})
	require.NoError(t, err)
	require.Nil(t, res.Redirect)
	require.NotNil(t, res.Preview)
	require.Equal(t, "buyer@example.com", res.Preview.Email)
	require.True(t, res.Preview.Amount.Equal(decimal.RequireFromString("49.99")))
	require.Equal(t, "USD", res.Preview.Currency)
	require.Len(t, f.ledger.recorded, 1, "detail fetch is audited")
}

func TestHandleSuccessReturn_EmailFallsBackToSnapshot(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))
	email := "buyer@example.com"
	f.ledger.snaps = append(f.ledger.snaps, &models.PreAuthSnapshot{Token: "EC-1", Email: &email})
	f.gateway.getResp = nvpResponse(models.NVPMethodGetExpressCheckoutDetails, map[string]string{
		"ACK": "Success", "TOKEN": "EC-1",
		"PAYMENTREQUEST_0_AMT": "49.99", "PAYMENTREQUEST_0_CURRENCYCODE": "USD",
	})

	res, err := f.orch.HandleSuccessReturn(context.Background(), &ReturnParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9"})
	require.NoError(t, err)
	require.NotNil(t, res.Preview)
	require.Equal(t, "buyer@example.com", res.Preview.Email, "missing EMAIL on the details response is filled from the pre-auth snapshot")
}

func TestHandleSuccessReturn_DuplicateReturnSkipsPreview(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusSubmitted, physicalLine("widget", 1, "49.99"))
	f.orders.orders["200001"] = &models.Order{Number: "200001", BasketID: "b1", Status: models.OrderStatusPending}
	f.gateway.getResp = nvpResponse(models.NVPMethodGetExpressCheckoutDetails, map[string]string{
		"ACK": "Success", "TOKEN": "EC-1", "PAYMENTREQUEST_0_AMT": "49.99", "PAYMENTREQUEST_0_CURRENCYCODE": "USD",
	})

	res, err := f.orch.HandleSuccessReturn(context.Background(), &ReturnParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9"})
	require.NoError(t, err)
	require.Nil(t, res.Preview)
	require.Contains(t, res.Redirect.URL, "/checkout/paypal/payment/200001")
}

func TestHandleSuccessReturn_GoneBasket(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusOpen, physicalLine("widget", 1, "49.99"))
	f.gateway.getResp = nvpResponse(models.NVPMethodGetExpressCheckoutDetails, map[string]string{
		"ACK": "Success", "TOKEN": "EC-1", "PAYMENTREQUEST_0_AMT": "49.99",
	})

	res, err := f.orch.HandleSuccessReturn(context.Background(), &ReturnParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9"})
	require.NoError(t, err)
	require.Nil(t, res.Preview)
	require.Equal(t, RouteBasketSummary, res.Redirect.URL)
	require.Contains(t, res.Redirect.Message.Text, "No basket was found")
}

func submitFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))
	f.gateway.getResp = nvpResponse(models.NVPMethodGetExpressCheckoutDetails, map[string]string{
		"ACK": "Success", "TOKEN": "EC-1", "EMAIL": "buyer@example.com",
		"PAYMENTREQUEST_0_AMT": "49.99", "PAYMENTREQUEST_0_CURRENCYCODE": "USD",
	})
	return f
}

func TestSubmitPreview_CountryMismatchReRendersPreview(t *testing.T) {
	f := submitFixture(t)
	shipID, billID := "a1", "a2"
	f.addresses.addrs[shipID] = &models.Address{ID: shipID, CountryCode: "DE"}
	f.addresses.addrs[billID] = &models.Address{ID: billID, CountryCode: "FR"}
	f.baskets.baskets["b1"].ShippingAddressID = &shipID
	f.baskets.baskets["b1"].BillingAddressID = &billID

	target, err := f.orch.SubmitPreview(context.Background(), &SubmitParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9", TermsAccepted: true})
	require.NoError(t, err)
	require.Contains(t, target.URL, "/checkout/paypal/place-order/b1")
	require.Contains(t, target.URL, "token=EC-1")
	require.Equal(t, ErrCountryMismatch.Error(), target.Message.Text)
	require.Empty(t, f.orders.placed, "no order may be placed on a country mismatch")
}

func TestSubmitPreview_RequiresTerms(t *testing.T) {
	f := submitFixture(t)

	target, err := f.orch.SubmitPreview(context.Background(), &SubmitParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9"})
	require.NoError(t, err)
	require.Contains(t, target.URL, "/checkout/paypal/place-order/b1")
	require.Contains(t, target.Message.Text, "terms and conditions")
	require.Empty(t, f.orders.placed)
}

func TestSubmitPreview_PlacesOrderWithGatewayAmount(t *testing.T) {
	f := submitFixture(t)

	target, err := f.orch.SubmitPreview(context.Background(), &SubmitParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9", TermsAccepted: true})
	require.NoError(t, err)
	require.Len(t, f.orders.placed, 1)

	placed := f.orders.placed[0]
	require.True(t, placed.Total.Equal(decimal.RequireFromString("49.99")), "amount comes from the gateway re-fetch, never the client")
	require.Equal(t, "USD", placed.Currency)
	require.Equal(t, "buyer@example.com", placed.GuestEmail)

	require.Contains(t, target.URL, "/checkout/paypal/payment/200001")
	require.Contains(t, target.URL, "amount=49.99")
	require.Contains(t, target.URL, "payer_id=P-9")
}

func TestSubmitPreview_GuestEmailFallsBackToSnapshot(t *testing.T) {
	f := submitFixture(t)
	f.gateway.getResp.Values.Del("EMAIL")
	email := "buyer@example.com"
	f.ledger.snaps = append(f.ledger.snaps, &models.PreAuthSnapshot{Token: "EC-1", Email: &email})

	_, err := f.orch.SubmitPreview(context.Background(), &SubmitParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9", TermsAccepted: true})
	require.NoError(t, err)
	require.Len(t, f.orders.placed, 1)
	require.Equal(t, "buyer@example.com", f.orders.placed[0].GuestEmail)
}

func TestSubmitPreview_GatewayOptionWinsMethodResolution(t *testing.T) {
	f := submitFixture(t)
	f.gateway.getResp.Values.Set("SHIPPINGOPTIONNAME", "Express")
	f.gateway.getResp.Values.Set("PAYMENTREQUEST_0_SHIPPINGAMT", "9.50")

	_, err := f.orch.SubmitPreview(context.Background(), &SubmitParams{BasketID: "b1", Token: "EC-1", PayerID: "P-9", TermsAccepted: true})
	require.NoError(t, err)
	require.Len(t, f.orders.placed, 1)
	require.Equal(t, "Express", f.orders.placed[0].ShippingMethodName)
	require.True(t, f.orders.placed[0].ShippingCharge.Equal(decimal.RequireFromString("9.50")))
}

func paymentFixture(t *testing.T) (*fixture, *PaymentParams) {
	t.Helper()
	f := newFixture()
	f.orders.orders["200001"] = &models.Order{Number: "200001", BasketID: "b1", Status: models.OrderStatusPending}
	p := &PaymentParams{
		OrderNumber: "200001",
		Amount:      decimal.RequireFromString("20.00"),
		Currency:    "EUR",
		Token:       "EC-1",
		PayerID:     "P-9",
	}
	return f, p
}

func TestHandlePayment_SettlesOrder(t *testing.T) {
	f, p := paymentFixture(t)
	f.gateway.doResp = nvpResponse(models.NVPMethodDoExpressCheckoutPayment, map[string]string{
		"ACK": "Success", "TOKEN": "EC-1", "CORRELATIONID": "COR123",
		"PAYMENTREQUEST_0_AMT": "20.00", "PAYMENTREQUEST_0_CURRENCYCODE": "EUR",
	})

	target, err := f.orch.HandlePayment(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, RouteThankYou, target.URL)
	require.Equal(t, models.OrderStatusPaid, f.orders.orders["200001"].Status)

	require.Len(t, f.payments.events, 1)
	ev := f.payments.events[0]
	require.Equal(t, models.PaymentEventSettled, ev.Type)
	require.True(t, ev.Amount.Equal(decimal.RequireFromString("20.00")))
	require.Equal(t, "COR123", ev.Reference)

	details, ok := f.payments.details["200001"].(paymentDetails)
	require.True(t, ok)
	require.Equal(t, "settled", details.Outcome)
	require.Equal(t, "COR123", details.CorrelationID)
}

func TestHandlePayment_RetryDeclineReRedirectsWithoutCancelling(t *testing.T) {
	f, p := paymentFixture(t)
	f.gateway.doResp = nvpResponse(models.NVPMethodDoExpressCheckoutPayment, map[string]string{
		"ACK": "Failure", "L_ERRORCODE0": "10486", "CORRELATIONID": "COR-R",
		"L_LONGMESSAGE0": "This transaction couldn't be completed.",
	})

	target, err := f.orch.HandlePayment(context.Background(), p)
	require.NoError(t, err)
	require.Contains(t, target.URL, "cmd=_express-checkout")
	require.Contains(t, target.URL, "token=EC-1")
	require.Nil(t, target.Message)

	// The order survives: the buyer may still pay with another funding source.
	require.Equal(t, models.OrderStatusPending, f.orders.orders["200001"].Status)
	require.Empty(t, f.payments.events)

	details, ok := f.payments.details["200001"].(paymentDetails)
	require.True(t, ok, "the decline snapshot must still be persisted")
	require.Equal(t, "retry", details.Outcome)
	require.Equal(t, "10486", details.ErrorCode)
}

func TestHandlePayment_DeclineCancelsOrderOnce(t *testing.T) {
	f, p := paymentFixture(t)
	f.gateway.doResp = nvpResponse(models.NVPMethodDoExpressCheckoutPayment, map[string]string{
		"ACK": "Failure", "L_ERRORCODE0": "10417", "CORRELATIONID": "COR-F",
		"L_LONGMESSAGE0": "The transaction cannot complete successfully.",
	})

	target, err := f.orch.HandlePayment(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, OrderStatusURL("200001"), target.URL)
	require.Contains(t, target.Message.Text, "[Code: 10417]")

	require.Equal(t, models.OrderStatusCancelled, f.orders.orders["200001"].Status)
	require.Len(t, f.payments.events, 1)
	require.Equal(t, models.PaymentEventFailure, f.payments.events[0].Type)
	require.Equal(t, "COR-F", f.payments.events[0].Reference)
}

func TestHandlePayment_TransportFailureCancelsOrder(t *testing.T) {
	f, p := paymentFixture(t)
	f.gateway.doErr = &paypal.Error{Message: "connection refused"}

	target, err := f.orch.HandlePayment(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, OrderStatusURL("200001"), target.URL)
	require.NotContains(t, target.Message.Text, "[Code:")
	require.Equal(t, models.OrderStatusCancelled, f.orders.orders["200001"].Status)
	require.Empty(t, f.ledger.recorded, "no response to audit on a transport failure")
}

func TestHandlePayment_UnknownOrder(t *testing.T) {
	f := newFixture()

	target, err := f.orch.HandlePayment(context.Background(), &PaymentParams{OrderNumber: "999", Amount: decimal.Zero})
	require.NoError(t, err)
	require.Equal(t, RouteBasketSummary, target.URL)
	require.Zero(t, f.gateway.doCalls)
}

func TestShippingOptions_UnknownBasket(t *testing.T) {
	f := newFixture()

	_, found := f.orch.ShippingOptions(context.Background(), &ShippingCallbackRequest{BasketID: "nope"})
	require.False(t, found)
}

func TestShippingOptions_NoMethods(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))

	body, found := f.orch.ShippingOptions(context.Background(), &ShippingCallbackRequest{
		BasketID: "b1", CountryCode: "AQ", CurrencyCode: "USD",
	})
	require.True(t, found)
	require.True(t, strings.HasPrefix(body, "METHOD=CallbackResponse"))
	require.Contains(t, body, "NO_SHIPPING_OPTION_DETAILS=1")
}

func TestShippingOptions_OrderedBodyWithDefault(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))
	f.resolver.methods = []shipping.Method{
		{Code: "standard", Name: "Standard", Label: "3-5 days", Charge: decimal.RequireFromString("3.00")},
		{Code: "express", Name: "Express", Label: "Next day", Charge: decimal.RequireFromString("9.50")},
	}

	body, found := f.orch.ShippingOptions(context.Background(), &ShippingCallbackRequest{
		BasketID: "b1", CountryCode: "GB", CurrencyCode: "GBP",
	})
	require.True(t, found)
	require.Contains(t, body, "CURRENCYCODE=GBP")
	require.Contains(t, body, "L_SHIPPINGOPTIONNAME0=Standard")
	require.Contains(t, body, "L_SHIPPINGOPTIONAMOUNT0=3.00")
	require.Contains(t, body, "L_SHIPPINGOPTIONISDEFAULT0=1")
	require.Contains(t, body, "L_SHIPPINGOPTIONNAME1=Express")
	require.Contains(t, body, "L_SHIPPINGOPTIONISDEFAULT1=0")
	require.Less(t, strings.Index(body, "L_SHIPPINGOPTIONNAME0"), strings.Index(body, "L_SHIPPINGOPTIONNAME1"))

	require.NotNil(t, f.resolver.lastAddr)
	require.Equal(t, "GB", f.resolver.lastAddr.CountryCode)
}

func TestShippingOptions_MalformedCountryDegrades(t *testing.T) {
	f := newFixture()
	f.addBasket("b1", models.BasketStatusFrozen, physicalLine("widget", 1, "49.99"))

	_, found := f.orch.ShippingOptions(context.Background(), &ShippingCallbackRequest{
		BasketID: "b1", CountryCode: "Germany",
	})
	require.True(t, found)
	require.NotNil(t, f.resolver.lastAddr)
	require.Empty(t, f.resolver.lastAddr.CountryCode)
}
