package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"task_wallet/internal/domain"
	"task_wallet/internal/store"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Get(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(u.Email)
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrConditionFailed
	}
	return err
}

func (r *userRepo) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	if err := r.db.WithContext(ctx).Order("id asc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepo) ListAdmins(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Where("role = ?", domain.RoleAdmin).Order("id asc").Find(&users).Error
	return users, err
}

func (r *userRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *userRepo) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("last_login", at).Error
}

// AddBalance applies delta with the non-negative guard in the WHERE clause,
// so concurrent credits and debits can not lose updates or overdraw.
func (r *userRepo) AddBalance(ctx context.Context, id uint, delta decimal.Decimal) (decimal.Decimal, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&domain.User{}).
		Where("id = ? AND wallet_balance + ? >= 0", id, delta).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", delta))
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, store.ErrConditionFailed
	}
	var u domain.User
	if err := db.Select("wallet_balance").First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, store.ErrNotFound
		}
		return decimal.Zero, err
	}
	return u.WalletBalance, nil
}
