package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yantech/notify-dispatcher/internal/domain"
	"gorm.io/gorm"
)

var _ DeliveryLog = (*GormDeliveryLogRepo)(nil)

type GormDeliveryLogRepo struct {
	db    *gorm.DB
	newID func() string
}

func NewGormDeliveryLogRepo(db *gorm.DB) *GormDeliveryLogRepo {
	return &GormDeliveryLogRepo{db: db, newID: uuid.NewString}
}

func (r *GormDeliveryLogRepo) Append(ctx context.Context, record domain.DeliveryRecord) error {
	model := deliveryLogModelFromDomain(r.newID(), record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append delivery log: %w", err)
	}
	return nil
}
