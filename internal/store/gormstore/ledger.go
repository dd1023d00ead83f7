package gormstore

import (
	"context"

	"gorm.io/gorm"

	"task_wallet/internal/domain"
)

type ledgerRepo struct {
	db *gorm.DB
}

func (r *ledgerRepo) Append(ctx context.Context, e *domain.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ledgerRepo) List(ctx context.Context, userID uint, offset, limit int) ([]domain.LedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.LedgerEntry{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []domain.LedgerEntry
	if err := q.Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
