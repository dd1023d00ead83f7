// Package store defines the persistence contracts of the core. gormstore is
// the database implementation, memstore the in-memory one used by tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"task_wallet/internal/domain"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConditionFailed is returned when a conditional update matched no row.
var ErrConditionFailed = errors.New("store: condition failed")

// Store groups the repositories and runs them in a transaction.
type Store interface {
	Events() EventRepository
	Tasks() TaskRepository
	Users() UserRepository
	Withdrawals() WithdrawalRepository
	Pins() PinRepository
	Ledger() LedgerRepository

	// Transaction runs fn against a Store bound to one transaction. Returning
	// an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// EventRepository is the append-only event log. Delete is a soft delete used
// when an attempt is consumed by review.
type EventRepository interface {
	Append(ctx context.Context, e *domain.Event) error
	Get(ctx context.Context, id uint) (*domain.Event, error)
	Delete(ctx context.Context, id uint) error
	// ListFromUser returns events sent by userID, restricted to kinds when given.
	ListFromUser(ctx context.Context, userID uint, kinds ...domain.EventKind) ([]domain.Event, error)
	// ListToUser returns events addressed to userID, restricted to kinds when given.
	ListToUser(ctx context.Context, userID uint, kinds ...domain.EventKind) ([]domain.Event, error)
	ListByKind(ctx context.Context, kind domain.EventKind) ([]domain.Event, error)
	ExistsFromUser(ctx context.Context, userID uint, kind domain.EventKind, taskID uint) (bool, error)
}

type TaskRepository interface {
	List(ctx context.Context) ([]domain.Task, error)
	Get(ctx context.Context, id uint) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id uint) error
}

type UserRepository interface {
	Get(ctx context.Context, id uint) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	List(ctx context.Context, offset, limit int) ([]domain.User, int64, error)
	ListAdmins(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, id uint) error
	TouchLogin(ctx context.Context, id uint, at time.Time) error

	// AddBalance adds delta to the wallet balance only if the result stays
	// non-negative, in a single conditional update. It returns the new
	// balance, ErrNotFound for a missing user and ErrConditionFailed when the
	// balance would go negative.
	AddBalance(ctx context.Context, id uint, delta decimal.Decimal) (decimal.Decimal, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.WithdrawalIntent) error
	Get(ctx context.Context, id uint) (*domain.WithdrawalIntent, error)
	// Latest returns the most recently created, not deleted intent of a user.
	Latest(ctx context.Context, userID uint) (*domain.WithdrawalIntent, error)
	// Transition moves an intent from one status to another. It matches on
	// the expected current status and returns ErrConditionFailed when another
	// request got there first.
	Transition(ctx context.Context, w *domain.WithdrawalIntent, from domain.WithdrawalStatus) error
	Delete(ctx context.Context, id uint) error
	ListStale(ctx context.Context, before time.Time) ([]domain.WithdrawalIntent, error)
}

type PinRepository interface {
	Get(ctx context.Context, userID uint) (*domain.PinRecord, error)
	Save(ctx context.Context, p *domain.PinRecord) error
}

type LedgerRepository interface {
	Append(ctx context.Context, e *domain.LedgerEntry) error
	List(ctx context.Context, userID uint, offset, limit int) ([]domain.LedgerEntry, int64, error)
}
