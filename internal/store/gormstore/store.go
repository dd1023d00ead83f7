// Package gormstore implements the store contracts on top of GORM.
package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"task_wallet/internal/store"
)

// Store is a store.Store backed by a *gorm.DB, which may be a transaction.
type Store struct {
	db *gorm.DB
}

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Events() store.EventRepository           { return &eventRepo{db: s.db} }
func (s *Store) Tasks() store.TaskRepository             { return &taskRepo{db: s.db} }
func (s *Store) Users() store.UserRepository             { return &userRepo{db: s.db} }
func (s *Store) Withdrawals() store.WithdrawalRepository { return &withdrawalRepo{db: s.db} }
func (s *Store) Pins() store.PinRepository               { return &pinRepo{db: s.db} }
func (s *Store) Ledger() store.LedgerRepository          { return &ledgerRepo{db: s.db} }

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// translate maps gorm sentinels onto store ones.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}
