package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"task_wallet/internal/domain"
)

type eventRepo struct {
	db *gorm.DB
}

func (r *eventRepo) Append(ctx context.Context, e *domain.Event) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("gormstore: unknown event kind %q", e.Kind)
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *eventRepo) Get(ctx context.Context, id uint) (*domain.Event, error) {
	var e domain.Event
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// Delete soft deletes so a consumed attempt stays auditable.
func (r *eventRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Event{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *eventRepo) ListFromUser(ctx context.Context, userID uint, kinds ...domain.EventKind) ([]domain.Event, error) {
	q := r.db.WithContext(ctx).Where("from_user_id = ?", userID)
	return r.list(q, kinds)
}

func (r *eventRepo) ListToUser(ctx context.Context, userID uint, kinds ...domain.EventKind) ([]domain.Event, error) {
	q := r.db.WithContext(ctx).Where("to_user_id = ?", userID)
	return r.list(q, kinds)
}

func (r *eventRepo) ListByKind(ctx context.Context, kind domain.EventKind) ([]domain.Event, error) {
	return r.list(r.db.WithContext(ctx), []domain.EventKind{kind})
}

func (r *eventRepo) list(q *gorm.DB, kinds []domain.EventKind) ([]domain.Event, error) {
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	var events []domain.Event
	if err := q.Order("created_at desc, id desc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepo) ExistsFromUser(ctx context.Context, userID uint, kind domain.EventKind, taskID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Event{}).
		Where("from_user_id = ? AND kind = ? AND task_id = ?", userID, kind, taskID).
		Count(&n).Error
	return n > 0, err
}
