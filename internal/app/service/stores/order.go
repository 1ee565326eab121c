package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clearbrook/checkout/internal/app/service/checkout"
	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/logctx"
	"github.com/clearbrook/checkout/pkg/tool"
)

// OrderStore is the gorm-backed order-placement collaborator.
type OrderStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewOrderStore(db *gorm.DB, log *zap.SugaredLogger) checkout.OrderStore {
	return &OrderStore{db: db, log: log}
}

func (s *OrderStore) ByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("number = ?", number).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, checkout.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func (s *OrderStore) ByBasketID(ctx context.Context, basketID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("basket_id = ?", basketID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, checkout.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order by basket: %w", err)
	}
	return &order, nil
}

// Place creates the order from a frozen basket and marks the basket
// Submitted, atomically.
func (s *OrderStore) Place(ctx context.Context, req *checkout.PlaceOrderRequest) (*models.Order, error) {
	order := &models.Order{
		Number:             newOrderNumber(),
		BasketID:           req.Basket.ID,
		CustomerID:         req.Basket.OwnerID,
		Status:             models.OrderStatusPending,
		Currency:           req.Currency,
		Total:              req.Total,
		ShippingMethodName: req.ShippingMethodName,
		ShippingCharge:     req.ShippingCharge,
	}
	if req.GuestEmail != "" {
		email := req.GuestEmail
		order.GuestEmail = &email
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Basket{}).
			Where("id = ? AND status = ?", req.Basket.ID, models.BasketStatusFrozen).
			Update("status", models.BasketStatusSubmitted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("basket %s is not frozen", req.Basket.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("order created", "order_number", order.Number, "basket_id", req.Basket.ID)
	return order, nil
}

func (s *OrderStore) SetStatus(ctx context.Context, number string, status models.OrderStatus) error {
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("number = ?", number).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
	}
	return nil
}

// newOrderNumber derives a buyer-facing order number from a v7 UUID so
// numbers stay time-sortable without a sequence.
func newOrderNumber() string {
	id := tool.GenerateUUIDV7()
	return strings.ToUpper(strings.ReplaceAll(id, "-", ""))[:20]
}
