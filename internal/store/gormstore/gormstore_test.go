package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task_wallet/internal/db"
	"task_wallet/internal/domain"
	"task_wallet/internal/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "wallet.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return New(conn)
}

func seedUser(t *testing.T, s *Store, email string, balance int64) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, FirstName: "Wes", LastName: "Worker", WalletBalance: decimal.NewFromInt(balance)}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestAddBalanceGuardsAgainstOverdraw(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "w@example.com", 100)

	bal, err := s.Users().AddBalance(ctx, u.ID, decimal.NewFromInt(-30))
	require.NoError(t, err)
	assert.Equal(t, "70.00", bal.StringFixed(2))

	_, err = s.Users().AddBalance(ctx, u.ID, decimal.NewFromInt(-71))
	assert.ErrorIs(t, err, store.ErrConditionFailed)

	bal, err = s.Users().AddBalance(ctx, u.ID, decimal.RequireFromString("-70"))
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	_, err = s.Users().AddBalance(ctx, 999, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDuplicateEmailFailsCondition(t *testing.T) {
	s := newStore(t)
	seedUser(t, s, "w@example.com", 0)

	err := s.Users().Create(context.Background(), &domain.User{Email: "W@example.com"})
	assert.ErrorIs(t, err, store.ErrConditionFailed)
}

func TestTransitionComparesStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "w@example.com", 500)

	w := &domain.WithdrawalIntent{UserID: u.ID, Amount: decimal.NewFromInt(300), Crypto: "BTC", Address: "bc1q", Status: domain.StatusPending}
	require.NoError(t, s.Withdrawals().Create(ctx, w))

	first := *w
	first.Status, first.Route = domain.StatusTaxPaid, domain.RouteService
	second := *w
	second.Status = domain.StatusRejected

	require.NoError(t, s.Withdrawals().Transition(ctx, &first, domain.StatusPending))
	assert.ErrorIs(t, s.Withdrawals().Transition(ctx, &second, domain.StatusPending), store.ErrConditionFailed)

	got, err := s.Withdrawals().Latest(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTaxPaid, got.Status)
	assert.Equal(t, domain.RouteService, got.Route)

	require.NoError(t, s.Withdrawals().Delete(ctx, w.ID))
	_, err = s.Withdrawals().Latest(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListStale(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "w@example.com", 500)
	old := time.Now().Add(-96 * time.Hour)

	stale := &domain.WithdrawalIntent{UserID: u.ID, Amount: decimal.NewFromInt(10), Status: domain.StatusPending, CreatedAt: old}
	done := &domain.WithdrawalIntent{UserID: u.ID, Amount: decimal.NewFromInt(10), Status: domain.StatusRedirected, CreatedAt: old}
	fresh := &domain.WithdrawalIntent{UserID: u.ID, Amount: decimal.NewFromInt(10), Status: domain.StatusPending}
	for _, w := range []*domain.WithdrawalIntent{stale, done, fresh} {
		require.NoError(t, s.Withdrawals().Create(ctx, w))
	}

	list, err := s.Withdrawals().ListStale(ctx, time.Now().Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, stale.ID, list[0].ID)
}

func TestEventSoftDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "w@example.com", 0)

	ev := &domain.Event{FromUserID: domain.UintPtr(u.ID), ToUserID: u.ID, Kind: domain.KindAttempted, TaskID: domain.UintPtr(7)}
	require.NoError(t, s.Events().Append(ctx, ev))

	exists, err := s.Events().ExistsFromUser(ctx, u.ID, domain.KindAttempted, 7)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Events().Delete(ctx, ev.ID))
	assert.ErrorIs(t, s.Events().Delete(ctx, ev.ID), store.ErrNotFound)
	_, err = s.Events().Get(ctx, ev.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.Events().ListByKind(ctx, domain.KindAttempted)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Error(t, s.Events().Append(ctx, &domain.Event{ToUserID: u.ID, Kind: "bogus"}))
}

func TestTransactionRollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "w@example.com", 100)
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.Users().AddBalance(ctx, u.ID, decimal.NewFromInt(-60)); err != nil {
			return err
		}
		if err := tx.Ledger().Append(ctx, &domain.LedgerEntry{UserID: u.ID, Type: domain.EntryDebit, Amount: decimal.NewFromInt(60)}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.WalletBalance.StringFixed(2))
	_, total, err := s.Ledger().List(ctx, u.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
