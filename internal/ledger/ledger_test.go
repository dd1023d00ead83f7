package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/store"
	"task_wallet/internal/store/memstore"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func user(balance int64, age time.Duration) *domain.User {
	return &domain.User{ID: 1, WalletBalance: decimal.NewFromInt(balance), CreatedAt: now.Add(-age)}
}

func TestCheckWithdrawable(t *testing.T) {
	svc := New(memstore.New(), DefaultRules())
	week := 7 * 24 * time.Hour

	tests := []struct {
		name   string
		user   *domain.User
		amount int64
		want   error
	}{
		{"eligible", user(500, 10*24*time.Hour), 300, nil},
		{"whole balance", user(200, week), 200, nil},
		{"below minimum", user(150, 30*24*time.Hour), 100, apperr.ErrBelowMinimum},
		{"too new", user(500, 2*24*time.Hour), 100, apperr.ErrTooNew},
		{"more than balance", user(250, week), 300, apperr.ErrInsufficientFunds},
		// Minimum is checked before age.
		{"below minimum and too new", user(50, time.Hour), 10, apperr.ErrBelowMinimum},
		// Age is checked before funds.
		{"too new and overdrawn", user(300, time.Hour), 900, apperr.ErrTooNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckWithdrawable(tt.user, decimal.NewFromInt(tt.amount), now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBelowMinimumCarriesThreshold(t *testing.T) {
	svc := New(memstore.New(), DefaultRules())
	err := svc.CheckWithdrawable(user(10, 30*24*time.Hour), decimal.NewFromInt(5), now)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "200.00", appErr.Details["minimum"])
}

func seed(t *testing.T, st *memstore.Store, balance int64) uint {
	t.Helper()
	u := &domain.User{Email: "w@example.com", WalletBalance: decimal.NewFromInt(balance)}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u.ID
}

func TestCreditAndDebitRecordEntries(t *testing.T) {
	st := memstore.New()
	svc := New(st, DefaultRules())
	ctx := context.Background()
	id := seed(t, st, 0)

	bal, err := svc.Credit(ctx, st, id, decimal.RequireFromString("50.25"), "attempt:7")
	require.NoError(t, err)
	assert.Equal(t, "50.25", bal.StringFixed(2))

	bal, err = svc.Debit(ctx, st, id, decimal.NewFromInt(20), "withdrawal:3")
	require.NoError(t, err)
	assert.Equal(t, "30.25", bal.StringFixed(2))

	got, err := svc.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Equal(bal))

	entries, total, err := svc.Entries(ctx, id, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, entries, 2)
	refs := []string{entries[0].Reference, entries[1].Reference}
	assert.ElementsMatch(t, []string{"attempt:7", "withdrawal:3"}, refs)
	for _, e := range entries {
		if e.Type == domain.EntryDebit {
			assert.Equal(t, "30.25", e.BalanceAfter.StringFixed(2))
			assert.True(t, e.Amount.IsPositive())
		}
	}
}

func TestDebitNeverOverdraws(t *testing.T) {
	st := memstore.New()
	svc := New(st, DefaultRules())
	id := seed(t, st, 10)

	_, err := svc.Debit(context.Background(), st, id, decimal.NewFromInt(11), "withdrawal:1")
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	bal, err := svc.Balance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "10.00", bal.StringFixed(2))
}

func TestConcurrentDebitsStayNonNegative(t *testing.T) {
	st := memstore.New()
	svc := New(st, DefaultRules())
	ctx := context.Background()
	id := seed(t, st, 100)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.Transaction(ctx, func(tx store.Store) error {
				_, err := svc.Debit(ctx, tx, id, decimal.NewFromInt(30), "withdrawal:x")
				return err
			})
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, won)
	bal, err := svc.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "10.00", bal.StringFixed(2))
}

func TestMixedCreditsAndDebitsStayNonNegative(t *testing.T) {
	st := memstore.New()
	svc := New(st, DefaultRules())
	ctx := context.Background()
	id := seed(t, st, 100)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		credit := i%3 == 0
		go func() {
			defer wg.Done()
			err := st.Transaction(ctx, func(tx store.Store) error {
				if credit {
					_, err := svc.Credit(ctx, tx, id, decimal.NewFromInt(20), "attempt:x")
					return err
				}
				_, err := svc.Debit(ctx, tx, id, decimal.NewFromInt(30), "withdrawal:x")
				return err
			})
			if credit {
				assert.NoError(t, err)
				return
			}
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	// 100 + 10 credits of 20 leaves room for at most 10 debits of 30.
	assert.GreaterOrEqual(t, won, 3)
	assert.LessOrEqual(t, won, 10)
	bal, err := svc.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(int64(300-30*won))), bal.String())

	entries, total, err := svc.Entries(ctx, id, 1, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 10+won, total)
	for _, e := range entries {
		assert.False(t, e.BalanceAfter.IsNegative(), e.Reference)
	}
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	st := memstore.New()
	svc := New(st, DefaultRules())
	id := seed(t, st, 10)

	_, err := svc.Credit(context.Background(), st, id, decimal.Zero, "x")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
	_, err = svc.Debit(context.Background(), st, id, decimal.NewFromInt(-5), "x")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestUnknownUser(t *testing.T) {
	st := memstore.New()
	svc := New(st, DefaultRules())

	_, err := svc.Credit(context.Background(), st, 42, decimal.NewFromInt(1), "x")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	_, err = svc.Balance(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}
