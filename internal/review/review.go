// Package review turns attempted events into credited or rejected work.
package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/ledger"
	"task_wallet/internal/notify"
	"task_wallet/internal/store"
)

// PendingAttempt is one unreviewed attempt.
type PendingAttempt struct {
	AttemptID   uint            `json:"id"`
	UserEmail   string          `json:"user_email"`
	TaskName    string          `json:"task_name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Outcome describes a finished review.
type Outcome struct {
	AttemptID  uint             `json:"attempt_id"`
	UserID     uint             `json:"user_id"`
	TaskName   string           `json:"task_name"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
}

// Service reviews attempts.
type Service struct {
	store  store.Store
	ledger *ledger.Service
	fanout *notify.Fanout
}

// New wires a review service.
func New(st store.Store, l *ledger.Service, fanout *notify.Fanout) *Service {
	return &Service{store: st, ledger: l, fanout: fanout}
}

// ListPending returns every attempt still in the queue. Attempts whose task
// or user has been deleted are left out.
func (s *Service) ListPending(ctx context.Context) ([]PendingAttempt, error) {
	attempts, err := s.store.Events().ListByKind(ctx, domain.KindAttempted)
	if err != nil {
		return nil, apperr.Internal("list attempts", err)
	}
	out := make([]PendingAttempt, 0, len(attempts))
	for _, ev := range attempts {
		if ev.TaskID == nil || ev.FromUserID == nil {
			continue
		}
		task, err := s.store.Tasks().Get(ctx, *ev.TaskID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		} else if err != nil {
			return nil, apperr.Internal("load task", err)
		}
		user, err := s.store.Users().Get(ctx, *ev.FromUserID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		} else if err != nil {
			return nil, apperr.Internal("load user", err)
		}
		out = append(out, PendingAttempt{
			AttemptID:   ev.ID,
			UserEmail:   user.Email,
			TaskName:    task.Name,
			Description: task.Description,
			Price:       task.Price,
			SubmittedAt: ev.CreatedAt,
		})
	}
	return out, nil
}

// subject bundles what both review paths resolve from an attempt.
type subject struct {
	attempt *domain.Event
	task    *domain.Task
	user    *domain.User
}

// consume loads the attempt and removes it from the queue inside tx. A
// second reviewer racing on the same attempt finds it gone.
func consume(ctx context.Context, tx store.Store, attemptID uint) (*subject, error) {
	ev, err := tx.Events().Get(ctx, attemptID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrAttemptNotFound
	} else if err != nil {
		return nil, apperr.Internal("load attempt", err)
	}
	if ev.Kind != domain.KindAttempted || ev.TaskID == nil || ev.FromUserID == nil {
		return nil, apperr.ErrAttemptNotFound
	}
	task, err := tx.Tasks().Get(ctx, *ev.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrTaskNotFound
	} else if err != nil {
		return nil, apperr.Internal("load task", err)
	}
	user, err := tx.Users().Get(ctx, *ev.FromUserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	} else if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if err := tx.Events().Delete(ctx, attemptID); errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrAttemptNotFound
	} else if err != nil {
		return nil, apperr.Internal("consume attempt", err)
	}
	return &subject{attempt: ev, task: task, user: user}, nil
}

// Accept credits the task price to the worker, consumes the attempt and
// drops a taskAccepted notice in the worker's inbox, all in one transaction.
func (s *Service) Accept(ctx context.Context, attemptID uint) (*Outcome, error) {
	var (
		sub     *subject
		balance decimal.Decimal
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if sub, err = consume(ctx, tx, attemptID); err != nil {
			return err
		}
		ref := "attempt:" + strconv.FormatUint(uint64(attemptID), 10)
		if balance, err = s.ledger.Credit(ctx, tx, sub.user.ID, sub.task.Price, ref); err != nil {
			return err
		}
		return appendOutcome(ctx, tx, &domain.Event{
			ToUserID: sub.user.ID,
			Kind:     domain.KindTaskAccepted,
			TaskID:   domain.UintPtr(sub.task.ID),
			TaskName: sub.task.Name,
			Amount:   domain.Money(sub.task.Price),
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"user_id":    sub.user.ID,
		"task_id":    sub.task.ID,
		"amount":     sub.task.Price.StringFixed(2),
	}).Info("Task accepted")
	s.fanout.User(ctx, sub.user, "Your Task was Accepted",
		fmt.Sprintf("Your task %q was accepted. $%s has been added to your wallet.", sub.task.Name, sub.task.Price.StringFixed(2)))

	return &Outcome{AttemptID: attemptID, UserID: sub.user.ID, TaskName: sub.task.Name, NewBalance: &balance}, nil
}

// Reject consumes the attempt without touching the balance. The worker may
// attempt the task again afterwards.
func (s *Service) Reject(ctx context.Context, attemptID uint) (*Outcome, error) {
	var sub *subject
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if sub, err = consume(ctx, tx, attemptID); err != nil {
			return err
		}
		return appendOutcome(ctx, tx, &domain.Event{
			ToUserID: sub.user.ID,
			Kind:     domain.KindTaskRejected,
			TaskID:   domain.UintPtr(sub.task.ID),
			TaskName: sub.task.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"user_id":    sub.user.ID,
		"task_id":    sub.task.ID,
	}).Info("Task rejected")
	s.fanout.User(ctx, sub.user, "Your Task was Rejected",
		fmt.Sprintf("Your task %q was rejected by the admin.", sub.task.Name))

	return &Outcome{AttemptID: attemptID, UserID: sub.user.ID, TaskName: sub.task.Name}, nil
}

func appendOutcome(ctx context.Context, tx store.Store, ev *domain.Event) error {
	if err := tx.Events().Append(ctx, ev); err != nil {
		return apperr.Internal("append "+string(ev.Kind), err)
	}
	return nil
}
