package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/app/service/checkout"
	"github.com/clearbrook/checkout/pkg/logctx"
	"github.com/clearbrook/checkout/pkg/response"
	"go.uber.org/zap"
)

// redirectTo writes the phase outcome as a 302, folding the flash message
// into msg/level query params for the host frontend to render.
func redirectTo(c *gin.Context, target *checkout.RedirectTarget) {
	u := target.URL
	if target.Message != nil {
		q := url.Values{}
		q.Set("msg", target.Message.Text)
		q.Set("level", string(target.Message.Level))
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + q.Encode()
	}
	c.Redirect(http.StatusFound, u)
}

func fatal(c *gin.Context, log *zap.SugaredLogger, err error) {
	logctx.FromGin(c, log).Errorf("checkout phase failed: %v", err)
	c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
}

// @Summary      Start PayPal Express Checkout
// @Description  Opens a gateway session for the basket, freezes it and redirects the buyer to PayPal.
// @Tags         Checkout
// @Param        basket_id          query  string  true   "Basket id"
// @Param        as_payment_method  query  string  false  "Set to 1 when shipping details were already collected"
// @Success      302
// @Router       /checkout/paypal/redirect [get]
func ApiCheckoutRedirect(svc checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		basketID := c.Query("basket_id")
		if basketID == "" {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "basket_id is required"))
			return
		}
		req := &checkout.InitiateRequest{
			BasketID:        basketID,
			CustomerEmail:   c.Query("email"),
			AsPaymentMethod: c.Query("as_payment_method") == "1",
		}
		if cid := c.Query("customer_id"); cid != "" {
			req.CustomerID = &cid
		}

		target, err := svc.Initiate(c.Request.Context(), req)
		if err != nil {
			fatal(c, log, err)
			return
		}
		redirectTo(c, target)
	}
}

// @Summary      Cancel return from PayPal
// @Tags         Checkout
// @Param        basket_id  path  string  true  "Basket id"
// @Success      302
// @Router       /checkout/paypal/cancel/{basket_id} [get]
func ApiCheckoutCancel(svc checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := svc.HandleCancel(c.Request.Context(), c.Param("basket_id"))
		if err != nil {
			fatal(c, log, err)
			return
		}
		redirectTo(c, target)
	}
}

// @Summary      Success return from PayPal (preview)
// @Description  Fetches transaction details and renders the order preview, or routes straight to capture when the order already exists.
// @Tags         Checkout
// @Produce      json
// @Param        basket_id  path   string  true  "Basket id"
// @Param        token      query  string  true  "Gateway token"
// @Param        PayerID    query  string  true  "Gateway payer id"
// @Success      200  {object}  checkout.Preview
// @Router       /checkout/paypal/place-order/{basket_id} [get]
func ApiCheckoutSuccess(svc checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.HandleSuccessReturn(c.Request.Context(), &checkout.ReturnParams{
			BasketID: c.Param("basket_id"),
			Token:    c.Query("token"),
			PayerID:  c.Query("PayerID"),
		})
		if err != nil {
			fatal(c, log, err)
			return
		}
		if res.Preview != nil {
			c.JSON(http.StatusOK, response.OKT(res.Preview))
			return
		}
		redirectTo(c, res.Redirect)
	}
}

// @Summary      Place order from preview
// @Tags         Checkout
// @Param        basket_id  path  string  true  "Basket id"
// @Success      302
// @Router       /checkout/paypal/place-order/{basket_id} [post]
func ApiCheckoutPlaceOrder(svc checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := svc.SubmitPreview(c.Request.Context(), &checkout.SubmitParams{
			BasketID:      c.Param("basket_id"),
			Token:         c.PostForm("token"),
			PayerID:       c.PostForm("payer_id"),
			TermsAccepted: c.PostForm("terms_accepted") != "",
		})
		if err != nil {
			fatal(c, log, err)
			return
		}
		redirectTo(c, target)
	}
}

// @Summary      Capture payment for an order
// @Tags         Checkout
// @Param        order_number  path   string  true  "Order number"
// @Param        amount        query  string  true  "Amount"
// @Param        currency      query  string  true  "Currency code"
// @Param        token         query  string  true  "Gateway token"
// @Param        payer_id      query  string  true  "Gateway payer id"
// @Success      302
// @Router       /checkout/paypal/payment/{order_number} [get]
func ApiCheckoutPayment(svc checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid amount"))
			return
		}
		target, err := svc.HandlePayment(c.Request.Context(), &checkout.PaymentParams{
			OrderNumber: c.Param("order_number"),
			Amount:      amount,
			Currency:    c.Query("currency"),
			Token:       c.Query("token"),
			PayerID:     c.Query("payer_id"),
		})
		if err != nil {
			fatal(c, log, err)
			return
		}
		redirectTo(c, target)
	}
}

// ApiShippingOptions answers the gateway's server-to-server shipping-options
// callback. It must always reply 200 with a well-formed NVP body for known
// baskets; only an unknown basket id yields a 404.
func ApiShippingOptions(svc checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, found := svc.ShippingOptions(c.Request.Context(), &checkout.ShippingCallbackRequest{
			BasketID:     c.Param("basket_id"),
			Street:       c.PostForm("PAYMENTREQUEST_0_SHIPTOSTREET"),
			Street2:      c.PostForm("PAYMENTREQUEST_0_SHIPTOSTREET2"),
			City:         c.PostForm("PAYMENTREQUEST_0_SHIPTOCITY"),
			State:        c.PostForm("PAYMENTREQUEST_0_SHIPTOSTATE"),
			Postcode:     c.PostForm("PAYMENTREQUEST_0_SHIPTOZIP"),
			CountryCode:  c.PostForm("PAYMENTREQUEST_0_SHIPTOCOUNTRY"),
			CurrencyCode: c.PostForm("CURRENCYCODE"),
		})
		if !found {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "application/x-www-form-urlencoded; charset=utf-8", []byte(body))
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, svc checkout.Service, log *zap.SugaredLogger) {
	r.GET("/redirect", ApiCheckoutRedirect(svc, log))
	r.GET("/cancel/:basket_id", ApiCheckoutCancel(svc, log))
	r.GET("/place-order/:basket_id", ApiCheckoutSuccess(svc, log))
	r.POST("/place-order/:basket_id", ApiCheckoutPlaceOrder(svc, log))
	r.GET("/payment/:order_number", ApiCheckoutPayment(svc, log))
	r.POST("/shipping-options/:basket_id", ApiShippingOptions(svc))
}
