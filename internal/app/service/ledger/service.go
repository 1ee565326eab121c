package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/internal/platform/paypal"
	"github.com/clearbrook/checkout/pkg/logctx"
	"github.com/clearbrook/checkout/pkg/tool"
	"github.com/clearbrook/checkout/pkg/types"
)

// Service is the gateway audit ledger. Every NVP request/response pair
// becomes one immutable ExpressTransaction row; pre-authorization snapshots
// are stored alongside, keyed by gateway token.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Record persists one gateway call. The write happens before the caller
// branches on the response content, so the audit trail captures declines too.
func (s *Service) Record(ctx context.Context, resp *paypal.Response) (*models.ExpressTransaction, error) {
	txn := &models.ExpressTransaction{
		ID:            tool.GenerateUUIDV7(),
		Method:        resp.Method,
		Version:       resp.Version,
		Amount:        resp.Amount,
		Currency:      resp.Currency,
		Ack:           resp.Ack(),
		CorrelationID: resp.CorrelationID(),
		Token:         resp.Token(),
		ErrorCode:     resp.ErrorCode(),
		ErrorMessage:  resp.ErrorMessage(),
		RawRequest:    resp.RawRequest,
		RawResponse:   resp.RawResponse,
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to record gateway call: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("gateway call recorded",
		"method", txn.Method, "ack", txn.Ack, "token", txn.Token, "correlation_id", txn.CorrelationID)
	return txn, nil
}

// SavePreAuth stores the checkout context for a freshly opened gateway
// session.
func (s *Service) SavePreAuth(ctx context.Context, snap *models.PreAuthSnapshot) error {
	if snap.ID == "" {
		snap.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(snap).Error; err != nil {
		return fmt.Errorf("failed to save pre-auth snapshot: %w", err)
	}
	return nil
}

func (s *Service) PreAuthByToken(ctx context.Context, token string) (*models.PreAuthSnapshot, error) {
	var snap models.PreAuthSnapshot
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&snap).Error; err != nil {
		return nil, fmt.Errorf("failed to load pre-auth snapshot: %w", err)
	}
	return &snap, nil
}

// PreAuthEmailsByTokens resolves buyer emails for a page of transactions in
// one query. Tokens without a snapshot, or whose snapshot carries no email,
// are absent from the result.
func (s *Service) PreAuthEmailsByTokens(ctx context.Context, tokens []string) (map[string]string, error) {
	emails := make(map[string]string, len(tokens))
	if len(tokens) == 0 {
		return emails, nil
	}
	var snaps []*models.PreAuthSnapshot
	if err := s.db.WithContext(ctx).Where("token IN ?", tokens).Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to load pre-auth snapshots: %w", err)
	}
	for _, snap := range snaps {
		if snap.Email != nil {
			emails[snap.Token] = *snap.Email
		}
	}
	return emails, nil
}

func (s *Service) TransactionByID(ctx context.Context, id string) (*models.ExpressTransaction, error) {
	var txn models.ExpressTransaction
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &txn, nil
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ScanTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanTransactionsResponse struct {
	Items []*models.ExpressTransaction `json:"items"`
	Total int64                        `json:"total"`
}

// ScanTransactions implements paginated/filtered listing for the dashboard.
func (s *Service) ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	tx := s.db.WithContext(ctx).Model(&models.ExpressTransaction{})
	return s.scanPage(tx, req)
}

// ScanUnmatchedTransactions lists gateway calls that never produced an
// order: rows whose correlation id is not the reference of any settled
// payment event. Cancelled and declined sessions land here. Session opens
// are excluded since SetExpressCheckout never settles on its own.
func (s *Service) ScanUnmatchedTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	settled := s.db.Model(&models.PaymentEvent{}).
		Select("reference").
		Where("type = ?", models.PaymentEventSettled)
	tx := s.db.WithContext(ctx).Model(&models.ExpressTransaction{}).
		Where("method <> ?", models.NVPMethodSetExpressCheckout).
		Where("correlation_id NOT IN (?)", settled)
	return s.scanPage(tx, req)
}

func (s *Service) scanPage(tx *gorm.DB, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var rows []*models.ExpressTransaction

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}

	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})

	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &ScanTransactionsResponse{Items: rows, Total: total}, nil
}
