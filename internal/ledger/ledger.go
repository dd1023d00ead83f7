// Package ledger owns every mutation of a user's wallet balance.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/store"
)

// Rules are the withdrawal eligibility gates.
type Rules struct {
	MinBalance    decimal.Decimal // balance required before any withdrawal
	MinAccountAge time.Duration   // time since registration
}

// DefaultRules returns the $200 / 7 day gates.
func DefaultRules() Rules {
	return Rules{
		MinBalance:    decimal.NewFromInt(200),
		MinAccountAge: 7 * 24 * time.Hour,
	}
}

// Service credits and debits balances.
type Service struct {
	store store.Store
	rules Rules
}

// New returns a ledger over st.
func New(st store.Store, rules Rules) *Service {
	return &Service{store: st, rules: rules}
}

// Rules exposes the configured gates.
func (s *Service) Rules() Rules { return s.rules }

// CheckWithdrawable applies the gates in order: minimum balance, account
// age, then funds for the requested amount.
func (s *Service) CheckWithdrawable(u *domain.User, amount decimal.Decimal, now time.Time) error {
	if u.WalletBalance.LessThan(s.rules.MinBalance) {
		return apperr.ErrBelowMinimum.WithDetail("minimum", s.rules.MinBalance.StringFixed(2))
	}
	if now.Sub(u.CreatedAt) < s.rules.MinAccountAge {
		return apperr.ErrTooNew.WithDetail("min_age_days", int(s.rules.MinAccountAge.Hours()/24))
	}
	if amount.GreaterThan(u.WalletBalance) {
		return apperr.ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to the user's balance and records a ledger entry. tx
// is the caller's transaction.
func (s *Service) Credit(ctx context.Context, tx store.Store, userID uint, amount decimal.Decimal, ref string) (decimal.Decimal, error) {
	return s.apply(ctx, tx, userID, amount, domain.EntryCredit, ref)
}

// Debit removes amount from the user's balance. The guard and the
// subtraction are one conditional update, so concurrent debits can never
// drive the balance below zero.
func (s *Service) Debit(ctx context.Context, tx store.Store, userID uint, amount decimal.Decimal, ref string) (decimal.Decimal, error) {
	return s.apply(ctx, tx, userID, amount, domain.EntryDebit, ref)
}

func (s *Service) apply(ctx context.Context, tx store.Store, userID uint, amount decimal.Decimal, kind, ref string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperr.InvalidInput("amount", "Amount must be positive")
	}
	delta := amount
	if kind == domain.EntryDebit {
		delta = amount.Neg()
	}
	balance, err := tx.Users().AddBalance(ctx, userID, delta)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return decimal.Zero, apperr.ErrUserNotFound
	case errors.Is(err, store.ErrConditionFailed):
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"amount":  amount.StringFixed(2),
			"type":    kind,
		}).Warn("Ledger debit refused, insufficient funds")
		return decimal.Zero, apperr.ErrInsufficientFunds
	case err != nil:
		return decimal.Zero, apperr.Internal("ledger "+kind, err)
	}
	entry := &domain.LedgerEntry{
		UserID:       userID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Reference:    ref,
	}
	if err := tx.Ledger().Append(ctx, entry); err != nil {
		return decimal.Zero, apperr.Internal("ledger entry", err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"amount":        amount.StringFixed(2),
		"type":          kind,
		"reference":     ref,
		"balance_after": balance.StringFixed(2),
	}).Info("Ledger transaction")
	return balance, nil
}

// Balance returns the current balance of a user.
func (s *Service) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	u, err := s.store.Users().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, apperr.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, apperr.Internal("load user", err)
	}
	return u.WalletBalance, nil
}

// Entries pages through a user's ledger, newest first.
func (s *Service) Entries(ctx context.Context, userID uint, page, size int) ([]domain.LedgerEntry, int64, error) {
	entries, total, err := s.store.Ledger().List(ctx, userID, (page-1)*size, size)
	if err != nil {
		return nil, 0, apperr.Internal("list ledger", err)
	}
	return entries, total, nil
}
