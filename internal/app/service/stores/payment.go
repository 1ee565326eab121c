package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clearbrook/checkout/internal/app/service/checkout"
	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/tool"
)

// PaymentStore maintains the payment ledger rows attached to orders.
type PaymentStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewPaymentStore(db *gorm.DB, log *zap.SugaredLogger) checkout.PaymentStore {
	return &PaymentStore{db: db, log: log}
}

// EnsureSource returns the order's payment source, creating it on first use
// with allocated = debited = amount. Capture retries reuse the existing row.
func (s *PaymentStore) EnsureSource(ctx context.Context, orderNumber, currency string, amount decimal.Decimal) (*models.PaymentSource, error) {
	var source models.PaymentSource
	err := s.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&source).Error
	if err == nil {
		return &source, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load payment source: %w", err)
	}

	source = models.PaymentSource{
		ID:              tool.GenerateUUIDV7(),
		OrderNumber:     orderNumber,
		SourceType:      "PayPal",
		Currency:        currency,
		AmountAllocated: amount,
		AmountDebited:   amount,
	}
	if err := s.db.WithContext(ctx).Create(&source).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment source: %w", err)
	}
	return &source, nil
}

func (s *PaymentStore) AddEvent(ctx context.Context, orderNumber string, typ models.PaymentEventType, amount decimal.Decimal, reference string) error {
	event := &models.PaymentEvent{
		ID:          tool.GenerateUUIDV7(),
		OrderNumber: orderNumber,
		Type:        typ,
		Amount:      amount,
		Reference:   reference,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to add payment event: %w", err)
	}
	return nil
}

func (s *PaymentStore) SavePaymentDetails(ctx context.Context, orderNumber string, details any) error {
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal payment details: %w", err)
	}
	err = s.db.WithContext(ctx).Model(&models.Order{}).
		Where("number = ?", orderNumber).
		Update("payment_details", datatypes.JSON(data)).Error
	if err != nil {
		return fmt.Errorf("failed to save payment details: %w", err)
	}
	return nil
}
