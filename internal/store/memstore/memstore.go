// Package memstore is a mutex guarded in-memory store.Store. It mirrors the
// gorm implementation closely enough to test services and handlers without a
// database: soft deletes, auto ids, created_at stamping and conditional
// balance updates.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"task_wallet/internal/domain"
	"task_wallet/internal/store"
)

// Store holds every table in memory.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	now  func() time.Time

	data tables
}

type tables struct {
	nextID      uint
	events      []domain.Event
	tasks       map[uint]domain.Task
	users       map[uint]domain.User
	withdrawals map[uint]domain.WithdrawalIntent
	pins        map[uint]domain.PinRecord
	ledger      []domain.LedgerEntry
}

// New returns an empty store using the wall clock.
func New() *Store {
	return &Store{
		now: time.Now,
		data: tables{
			tasks:       map[uint]domain.Task{},
			users:       map[uint]domain.User{},
			withdrawals: map[uint]domain.WithdrawalIntent{},
			pins:        map[uint]domain.PinRecord{},
		},
	}
}

// SetClock replaces the clock used to stamp CreatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

var _ store.Store = (*Store)(nil)

func (s *Store) Events() store.EventRepository           { return &eventRepo{s} }
func (s *Store) Tasks() store.TaskRepository             { return &taskRepo{s} }
func (s *Store) Users() store.UserRepository             { return &userRepo{s} }
func (s *Store) Withdrawals() store.WithdrawalRepository { return &withdrawalRepo{s} }
func (s *Store) Pins() store.PinRepository               { return &pinRepo{s} }
func (s *Store) Ledger() store.LedgerRepository          { return &ledgerRepo{s} }

// Transaction serialises transactions and restores a snapshot when fn fails.
// Writes made outside any transaction while one is running are lost on
// rollback, which is fine for tests.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.data.clone()
	s.mu.Unlock()

	if err := fn(&txStore{s}); err != nil {
		s.mu.Lock()
		s.data = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStore is the view handed to a transaction body; nested transactions join
// the outer one.
type txStore struct {
	*Store
}

func (t *txStore) Transaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (d tables) clone() tables {
	cp := tables{
		nextID:      d.nextID,
		events:      slices.Clone(d.events),
		tasks:       make(map[uint]domain.Task, len(d.tasks)),
		users:       make(map[uint]domain.User, len(d.users)),
		withdrawals: make(map[uint]domain.WithdrawalIntent, len(d.withdrawals)),
		pins:        make(map[uint]domain.PinRecord, len(d.pins)),
		ledger:      slices.Clone(d.ledger),
	}
	for k, v := range d.tasks {
		cp.tasks[k] = v
	}
	for k, v := range d.users {
		cp.users[k] = v
	}
	for k, v := range d.withdrawals {
		cp.withdrawals[k] = v
	}
	for k, v := range d.pins {
		v.WithdrawURLs = slices.Clone(v.WithdrawURLs)
		cp.pins[k] = v
	}
	return cp
}

// id hands out a store wide monotonically increasing id. Caller holds mu.
func (s *Store) id() uint {
	s.data.nextID++
	return s.data.nextID
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func deleted(at gorm.DeletedAt) bool { return at.Valid }

func softDelete(now time.Time) gorm.DeletedAt {
	return gorm.DeletedAt{Time: now, Valid: true}
}

// newestFirst orders by created_at desc, id desc like the SQL queries.
func newestFirst[T any](items []T, created func(T) time.Time, id func(T) uint) {
	slices.SortFunc(items, func(a, b T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		switch {
		case id(a) > id(b):
			return -1
		case id(a) < id(b):
			return 1
		}
		return 0
	})
}

// ---------------------------------------------------------------------------
// events

type eventRepo struct{ s *Store }

func (r *eventRepo) Append(_ context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	e.CreatedAt = r.s.stamp(e.CreatedAt)
	r.s.data.events = append(r.s.data.events, *e)
	return nil
}

func (r *eventRepo) Get(_ context.Context, id uint) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.events {
		if e.ID == id && !deleted(e.DeletedAt) {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *eventRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, e := range r.s.data.events {
		if e.ID == id && !deleted(e.DeletedAt) {
			r.s.data.events[i].DeletedAt = softDelete(r.s.now())
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *eventRepo) filter(match func(domain.Event) bool, kinds []domain.EventKind) []domain.Event {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Event
	for _, e := range r.s.data.events {
		if deleted(e.DeletedAt) || !match(e) {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, e.Kind) {
			continue
		}
		out = append(out, e)
	}
	newestFirst(out, func(e domain.Event) time.Time { return e.CreatedAt }, func(e domain.Event) uint { return e.ID })
	return out
}

func (r *eventRepo) ListFromUser(_ context.Context, userID uint, kinds ...domain.EventKind) ([]domain.Event, error) {
	return r.filter(func(e domain.Event) bool { return e.FromUserID != nil && *e.FromUserID == userID }, kinds), nil
}

func (r *eventRepo) ListToUser(_ context.Context, userID uint, kinds ...domain.EventKind) ([]domain.Event, error) {
	return r.filter(func(e domain.Event) bool { return e.ToUserID == userID }, kinds), nil
}

func (r *eventRepo) ListByKind(_ context.Context, kind domain.EventKind) ([]domain.Event, error) {
	return r.filter(func(domain.Event) bool { return true }, []domain.EventKind{kind}), nil
}

func (r *eventRepo) ExistsFromUser(_ context.Context, userID uint, kind domain.EventKind, taskID uint) (bool, error) {
	found := r.filter(func(e domain.Event) bool {
		return e.FromUserID != nil && *e.FromUserID == userID && e.TaskID != nil && *e.TaskID == taskID
	}, []domain.EventKind{kind})
	return len(found) > 0, nil
}

// ---------------------------------------------------------------------------
// tasks

type taskRepo struct{ s *Store }

func (r *taskRepo) List(_ context.Context) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Task
	for _, t := range r.s.data.tasks {
		if !deleted(t.DeletedAt) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Task) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r *taskRepo) Get(_ context.Context, id uint) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tasks[id]
	if !ok || deleted(t.DeletedAt) {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (r *taskRepo) Create(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = r.s.stamp(t.CreatedAt)
	t.UpdatedAt = t.CreatedAt
	r.s.data.tasks[t.ID] = *t
	return nil
}

func (r *taskRepo) Update(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.tasks[t.ID]
	if !ok || deleted(cur.DeletedAt) {
		return store.ErrNotFound
	}
	cur.Name, cur.Slug, cur.Description, cur.Price, cur.URL = t.Name, t.Slug, t.Description, t.Price, t.URL
	cur.UpdatedAt = r.s.now()
	r.s.data.tasks[t.ID] = cur
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tasks[id]
	if !ok || deleted(t.DeletedAt) {
		return store.ErrNotFound
	}
	t.DeletedAt = softDelete(r.s.now())
	r.s.data.tasks[id] = t
	return nil
}

// ---------------------------------------------------------------------------
// users

type userRepo struct{ s *Store }

func (r *userRepo) Get(_ context.Context, id uint) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok || deleted(u.DeletedAt) {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.s.data.users {
		if u.Email == email && !deleted(u.DeletedAt) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range r.s.data.users {
		if existing.Email == u.Email {
			return store.ErrConditionFailed
		}
	}
	u.ID = r.s.id()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt = r.s.stamp(u.CreatedAt)
	u.UpdatedAt = u.CreatedAt
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *userRepo) live() []domain.User {
	var out []domain.User
	for _, u := range r.s.data.users {
		if !deleted(u.DeletedAt) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b domain.User) int { return int(a.ID) - int(b.ID) })
	return out
}

func (r *userRepo) List(_ context.Context, offset, limit int) ([]domain.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.live()
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (r *userRepo) ListAdmins(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, u := range r.live() {
		if u.IsAdmin() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *userRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok || deleted(u.DeletedAt) {
		return store.ErrNotFound
	}
	u.DeletedAt = softDelete(r.s.now())
	r.s.data.users[id] = u
	return nil
}

func (r *userRepo) TouchLogin(_ context.Context, id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	r.s.data.users[id] = u
	return nil
}

func (r *userRepo) AddBalance(_ context.Context, id uint, delta decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok || deleted(u.DeletedAt) {
		return decimal.Zero, store.ErrNotFound
	}
	next := u.WalletBalance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, store.ErrConditionFailed
	}
	u.WalletBalance = next
	r.s.data.users[id] = u
	return next, nil
}

// ---------------------------------------------------------------------------
// withdrawals

type withdrawalRepo struct{ s *Store }

func (r *withdrawalRepo) Create(_ context.Context, w *domain.WithdrawalIntent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.ID = r.s.id()
	if w.Status == "" {
		w.Status = domain.StatusPending
	}
	w.CreatedAt = r.s.stamp(w.CreatedAt)
	w.UpdatedAt = w.CreatedAt
	r.s.data.withdrawals[w.ID] = *w
	return nil
}

func (r *withdrawalRepo) Get(_ context.Context, id uint) (*domain.WithdrawalIntent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.withdrawals[id]
	if !ok || deleted(w.DeletedAt) {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (r *withdrawalRepo) Latest(_ context.Context, userID uint) (*domain.WithdrawalIntent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var mine []domain.WithdrawalIntent
	for _, w := range r.s.data.withdrawals {
		if w.UserID == userID && !deleted(w.DeletedAt) {
			mine = append(mine, w)
		}
	}
	if len(mine) == 0 {
		return nil, store.ErrNotFound
	}
	newestFirst(mine, func(w domain.WithdrawalIntent) time.Time { return w.CreatedAt }, func(w domain.WithdrawalIntent) uint { return w.ID })
	return &mine[0], nil
}

func (r *withdrawalRepo) Transition(_ context.Context, w *domain.WithdrawalIntent, from domain.WithdrawalStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.withdrawals[w.ID]
	if !ok || deleted(cur.DeletedAt) || cur.Status != from {
		return store.ErrConditionFailed
	}
	cur.Status = w.Status
	cur.Route = w.Route
	cur.RejectReason = w.RejectReason
	cur.VerifiedAt = w.VerifiedAt
	cur.CompletedAt = w.CompletedAt
	cur.UpdatedAt = r.s.now()
	r.s.data.withdrawals[w.ID] = cur
	return nil
}

func (r *withdrawalRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.withdrawals[id]
	if !ok || deleted(w.DeletedAt) {
		return nil
	}
	w.DeletedAt = softDelete(r.s.now())
	r.s.data.withdrawals[id] = w
	return nil
}

func (r *withdrawalRepo) ListStale(_ context.Context, before time.Time) ([]domain.WithdrawalIntent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.WithdrawalIntent
	for _, w := range r.s.data.withdrawals {
		if !deleted(w.DeletedAt) && w.Status.Active() && w.CreatedAt.Before(before) {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b domain.WithdrawalIntent) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// pins

type pinRepo struct{ s *Store }

func (r *pinRepo) Get(_ context.Context, userID uint) (*domain.PinRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.pins[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.WithdrawURLs = slices.Clone(p.WithdrawURLs)
	return &p, nil
}

func (r *pinRepo) Save(_ context.Context, p *domain.PinRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.s.id()
		p.CreatedAt = r.s.now()
	}
	p.UpdatedAt = r.s.now()
	cp := *p
	cp.WithdrawURLs = slices.Clone(p.WithdrawURLs)
	r.s.data.pins[p.UserID] = cp
	return nil
}

// ---------------------------------------------------------------------------
// ledger

type ledgerRepo struct{ s *Store }

func (r *ledgerRepo) Append(_ context.Context, e *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	e.CreatedAt = r.s.stamp(e.CreatedAt)
	r.s.data.ledger = append(r.s.data.ledger, *e)
	return nil
}

func (r *ledgerRepo) List(_ context.Context, userID uint, offset, limit int) ([]domain.LedgerEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var mine []domain.LedgerEntry
	for _, e := range r.s.data.ledger {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	newestFirst(mine, func(e domain.LedgerEntry) time.Time { return e.CreatedAt }, func(e domain.LedgerEntry) uint { return e.ID })
	total := int64(len(mine))
	if offset >= len(mine) {
		return nil, total, nil
	}
	return mine[offset:min(offset+limit, len(mine))], total, nil
}
