package stores

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clearbrook/checkout/internal/app/service/checkout"
	"github.com/clearbrook/checkout/internal/models"
	"github.com/clearbrook/checkout/pkg/logctx"
)

// BasketStore is the gorm-backed basket collaborator.
type BasketStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewBasketStore(db *gorm.DB, log *zap.SugaredLogger) checkout.BasketStore {
	return &BasketStore{db: db, log: log}
}

func (s *BasketStore) ByID(ctx context.Context, id string) (*models.Basket, error) {
	return s.get(ctx, "id = ?", id)
}

func (s *BasketStore) FrozenByID(ctx context.Context, id string) (*models.Basket, error) {
	return s.get(ctx, "id = ? AND status = ?", id, models.BasketStatusFrozen)
}

func (s *BasketStore) get(ctx context.Context, query string, args ...any) (*models.Basket, error) {
	var basket models.Basket
	err := s.db.WithContext(ctx).Preload("Lines").Where(query, args...).First(&basket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, checkout.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load basket: %w", err)
	}
	return &basket, nil
}

// Freeze reserves an open basket for the off-site redirect window. The
// status guard in the WHERE clause keeps a stale in-memory basket from
// clobbering a concurrent transition.
func (s *BasketStore) Freeze(ctx context.Context, basket *models.Basket) error {
	res := s.db.WithContext(ctx).Model(&models.Basket{}).
		Where("id = ? AND status = ?", basket.ID, models.BasketStatusOpen).
		Update("status", models.BasketStatusFrozen)
	if res.Error != nil {
		return fmt.Errorf("failed to freeze basket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to freeze basket %s: not open", basket.ID)
	}
	basket.Status = models.BasketStatusFrozen
	return nil
}

// Thaw returns a frozen basket to Open. Thawing an already-open basket is a
// no-op, which makes repeated cancel callbacks harmless.
func (s *BasketStore) Thaw(ctx context.Context, basket *models.Basket) error {
	if basket.Status == models.BasketStatusOpen {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Basket{}).
		Where("id = ? AND status = ?", basket.ID, models.BasketStatusFrozen).
		Update("status", models.BasketStatusOpen)
	if res.Error != nil {
		return fmt.Errorf("failed to thaw basket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		logctx.FromCtx(ctx, s.log).Infow("thaw skipped, basket not frozen", "basket_id", basket.ID, "status", basket.Status)
		return nil
	}
	basket.Status = models.BasketStatusOpen
	return nil
}
