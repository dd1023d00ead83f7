package gormstore

import (
	"context"

	"gorm.io/gorm"

	"task_wallet/internal/domain"
)

type pinRepo struct {
	db *gorm.DB
}

func (r *pinRepo) Get(ctx context.Context, userID uint) (*domain.PinRecord, error) {
	var p domain.PinRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *pinRepo) Save(ctx context.Context, p *domain.PinRecord) error {
	if p.ID == 0 {
		return r.db.WithContext(ctx).Create(p).Error
	}
	return r.db.WithContext(ctx).Save(p).Error
}
