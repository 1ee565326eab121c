package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/clearbrook/checkout/internal/app/service/ledger"
	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/config"
	"github.com/clearbrook/checkout/pkg/response"
	"github.com/clearbrook/checkout/pkg/types"
)

// Ledger is the slice of the audit ledger the dashboard reads.
type Ledger interface {
	ScanTransactions(ctx context.Context, req *ledger.ScanTransactionsRequest) (*ledger.ScanTransactionsResponse, error)
	ScanUnmatchedTransactions(ctx context.Context, req *ledger.ScanTransactionsRequest) (*ledger.ScanTransactionsResponse, error)
	TransactionByID(ctx context.Context, id string) (*models.ExpressTransaction, error)
	PreAuthByToken(ctx context.Context, token string) (*models.PreAuthSnapshot, error)
	PreAuthEmailsByTokens(ctx context.Context, tokens []string) (map[string]string, error)
}

type ListTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type TransactionItem struct {
	ID            string           `json:"id"`
	Method        models.NVPMethod `json:"method"`
	Version       string           `json:"version"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
	Ack           models.Ack       `json:"ack"`
	IsSuccessful  bool             `json:"is_successful"`
	CorrelationID string           `json:"correlation_id"`
	Token         string           `json:"token"`
	Email         string           `json:"email"`
	ErrorCode     string           `json:"error_code"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toTransactionItem(m *models.ExpressTransaction) *TransactionItem {
	return &TransactionItem{
		ID:            m.ID,
		Method:        m.Method,
		Version:       m.Version,
		Amount:        m.Amount,
		Currency:      m.Currency,
		Ack:           m.Ack,
		IsSuccessful:  m.IsSuccessful(),
		CorrelationID: m.CorrelationID,
		Token:         m.Token,
		ErrorCode:     m.ErrorCode,
		CreatedAt:     m.CreatedAt,
	}
}

type ListTransactionsResponse struct {
	Items []*TransactionItem `json:"items"`
	Total int64              `json:"total"`
}

// TransactionDetail includes the raw (credential-redacted) NVP payloads for
// support staff reviewing a dispute, plus the pre-auth snapshot captured when
// the session was opened.
type TransactionDetail struct {
	*TransactionItem
	ErrorMessage string                  `json:"error_message"`
	RawRequest   string                  `json:"raw_request"`
	RawResponse  string                  `json:"raw_response"`
	PreAuth      *models.PreAuthSnapshot `json:"pre_auth,omitempty"`
}

// attachBuyerEmails joins the buyer email recorded in the pre-auth snapshot
// onto each listed row sharing its token. Best effort: the list still
// renders when the join fails.
func attachBuyerEmails(ctx context.Context, ldg Ledger, items []*TransactionItem) {
	tokens := lo.Uniq(lo.FilterMap(items, func(it *TransactionItem, _ int) (string, bool) {
		return it.Token, it.Token != ""
	}))
	emails, err := ldg.PreAuthEmailsByTokens(ctx, tokens)
	if err != nil {
		return
	}
	for _, it := range items {
		it.Email = emails[it.Token]
	}
}

func listTransactions(ldg Ledger, scan func(context.Context, *ledger.ScanTransactionsRequest) (*ledger.ScanTransactionsResponse, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := scan(c.Request.Context(), &ledger.ScanTransactionsRequest{
			Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		items := lo.Map(res.Items, func(it *models.ExpressTransaction, _ int) *TransactionItem { return toTransactionItem(it) })
		attachBuyerEmails(c.Request.Context(), ldg, items)
		c.JSON(http.StatusOK, response.OKT(&ListTransactionsResponse{Items: items, Total: res.Total}))
	}
}

// @Summary      List Gateway Transactions (Admin)
// @Description  Retrieves a paginated and filterable list of recorded gateway calls.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListTransactionsRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.ListTransactionsResponse
// @Router       /api/v1/admin/list_transactions [post]
func ApiListTransactions(ldg Ledger) gin.HandlerFunc {
	return listTransactions(ldg, ldg.ScanTransactions)
}

// @Summary      List Unmatched Gateway Transactions (Admin)
// @Description  Retrieves recorded gateway calls that never produced an order, cancelled and declined sessions included. Session opens are excluded.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListTransactionsRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.ListTransactionsResponse
// @Router       /api/v1/admin/list_unmatched_transactions [post]
func ApiListUnmatchedTransactions(ldg Ledger) gin.HandlerFunc {
	return listTransactions(ldg, ldg.ScanUnmatchedTransactions)
}

// @Summary      Get Gateway Transaction (Admin)
// @Description  Retrieves one recorded gateway call including its raw NVP payloads.
// @Tags         Admin
// @Produce      json
// @Param        id  path  string  true  "Transaction id"
// @Success      200  {object}  handlers.TransactionDetail
// @Router       /api/v1/admin/transactions/{id} [get]
func ApiGetTransaction(ldg Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		txn, err := ldg.TransactionByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		detail := &TransactionDetail{
			TransactionItem: toTransactionItem(txn),
			ErrorMessage:    txn.ErrorMessage,
			RawRequest:      txn.RawRequest,
			RawResponse:     txn.RawResponse,
		}
		if txn.Token != "" {
			// Best effort: detail fetches recorded before the session opened
			// have no snapshot.
			if snap, err := ldg.PreAuthByToken(c.Request.Context(), txn.Token); err == nil {
				detail.PreAuth = snap
				if snap.Email != nil {
					detail.Email = *snap.Email
				}
			}
		}
		c.JSON(http.StatusOK, response.OKT(detail))
	}
}

// @Summary      Dashboard Settings (Admin)
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /api/v1/admin/dashboard_settings [get]
func ApiDashboardSettings(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(map[string]bool{
			"show_payment_forms": cfg.Dashboard.ShowPaymentForms,
		}))
	}
}

func RegisterDashboardRoutes(r gin.IRouter, ldg Ledger, cfg *config.Config) {
	r.POST("/list_transactions", ApiListTransactions(ldg))
	r.POST("/list_unmatched_transactions", ApiListUnmatchedTransactions(ldg))
	r.GET("/transactions/:id", ApiGetTransaction(ldg))
	r.GET("/dashboard_settings", ApiDashboardSettings(cfg))
}
