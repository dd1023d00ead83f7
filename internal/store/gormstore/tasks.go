package gormstore

import (
	"context"

	"gorm.io/gorm"

	"task_wallet/internal/domain"
)

type taskRepo struct {
	db *gorm.DB
}

func (r *taskRepo) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := r.db.WithContext(ctx).Order("id asc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) Get(ctx context.Context, id uint) (*domain.Task, error) {
	var t domain.Task
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *taskRepo) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *taskRepo) Update(ctx context.Context, t *domain.Task) error {
	var existing domain.Task
	if err := r.db.WithContext(ctx).First(&existing, t.ID).Error; err != nil {
		return translate(err)
	}
	// Select forces zero values through so a field can be cleared.
	return r.db.WithContext(ctx).Model(&existing).
		Select("name", "slug", "description", "price", "url").
		Updates(t).Error
}

func (r *taskRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}
