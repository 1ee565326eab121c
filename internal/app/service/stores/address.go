package stores

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clearbrook/checkout/internal/app/service/checkout"
	"github.com/clearbrook/checkout/internal/models"
)

type AddressStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewAddressStore(db *gorm.DB, log *zap.SugaredLogger) checkout.AddressStore {
	return &AddressStore{db: db, log: log}
}

func (s *AddressStore) ByID(ctx context.Context, id string) (*models.Address, error) {
	var addr models.Address
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, checkout.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	return &addr, nil
}
