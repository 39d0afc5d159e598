package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yantech/notify-dispatcher/internal/domain"
	"gorm.io/gorm"
)

var _ ConfigResolver = (*GormApplicationRepo)(nil)

type GormApplicationRepo struct {
	db *gorm.DB
}

func NewGormApplicationRepo(db *gorm.DB) *GormApplicationRepo {
	return &GormApplicationRepo{db: db}
}

func (r *GormApplicationRepo) Resolve(ctx context.Context, applicationID string) (*domain.ApplicationConfig, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application %q: %w", applicationID, err)
	}

	return applicationModelToDomain(&model), nil
}
