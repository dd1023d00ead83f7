package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"task_wallet/internal/domain"
	"task_wallet/internal/store"
)

type withdrawalRepo struct {
	db *gorm.DB
}

func (r *withdrawalRepo) Create(ctx context.Context, w *domain.WithdrawalIntent) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *withdrawalRepo) Get(ctx context.Context, id uint) (*domain.WithdrawalIntent, error) {
	var w domain.WithdrawalIntent
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *withdrawalRepo) Latest(ctx context.Context, userID uint) (*domain.WithdrawalIntent, error) {
	var w domain.WithdrawalIntent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		First(&w).Error
	if err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *withdrawalRepo) Transition(ctx context.Context, w *domain.WithdrawalIntent, from domain.WithdrawalStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.WithdrawalIntent{}).
		Where("id = ? AND status = ?", w.ID, from).
		Updates(map[string]any{
			"status":        w.Status,
			"route":         w.Route,
			"reject_reason": w.RejectReason,
			"verified_at":   w.VerifiedAt,
			"completed_at":  w.CompletedAt,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrConditionFailed
	}
	return nil
}

func (r *withdrawalRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.WithdrawalIntent{}, id).Error
}

func (r *withdrawalRepo) ListStale(ctx context.Context, before time.Time) ([]domain.WithdrawalIntent, error) {
	var list []domain.WithdrawalIntent
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []domain.WithdrawalStatus{domain.StatusPending, domain.StatusTaxPaid}, before).
		Order("created_at asc").
		Find(&list).Error
	return list, err
}
