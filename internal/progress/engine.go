package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"task_wallet/internal/apperr"
	"task_wallet/internal/catalog"
	"task_wallet/internal/domain"
	"task_wallet/internal/notify"
	"task_wallet/internal/store"
)

// TaskView is a catalog entry with the caller's status.
type TaskView struct {
	domain.Task
	Status Status `json:"status"`
}

// HistoryEntry is one started or attempted action.
type HistoryEntry struct {
	ID       uint            `json:"id"`
	TaskID   uint            `json:"task_id"`
	TaskName string          `json:"task_name"`
	Price    decimal.Decimal `json:"price"`
	Status   Status          `json:"status"`
	Date     time.Time       `json:"date"`
}

// Engine answers status queries and records transitions.
type Engine struct {
	store   store.Store
	catalog *catalog.Service
	fanout  *notify.Fanout
}

// NewEngine wires an engine.
func NewEngine(st store.Store, cat *catalog.Service, fanout *notify.Fanout) *Engine {
	return &Engine{store: st, catalog: cat, fanout: fanout}
}

func (e *Engine) progressOf(ctx context.Context, userID uint) (map[uint]Progress, error) {
	own, err := e.store.Events().ListFromUser(ctx, userID, domain.KindStarted, domain.KindAttempted)
	if err != nil {
		return nil, apperr.Internal("list progress events", err)
	}
	accepted, err := e.store.Events().ListToUser(ctx, userID, domain.KindTaskAccepted)
	if err != nil {
		return nil, apperr.Internal("list acceptances", err)
	}
	return Fold(userID, append(own, accepted...)), nil
}

// StatusFor returns the user's status on one task.
func (e *Engine) StatusFor(ctx context.Context, userID, taskID uint) (Status, error) {
	all, err := e.progressOf(ctx, userID)
	if err != nil {
		return "", err
	}
	return all[taskID].Status(), nil
}

// StartedAt returns when the user last started the task, or nil.
func (e *Engine) StartedAt(ctx context.Context, userID, taskID uint) (*time.Time, error) {
	all, err := e.progressOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return all[taskID].StartedAt, nil
}

// Board lists every task with the user's status.
func (e *Engine) Board(ctx context.Context, userID uint) ([]TaskView, error) {
	tasks, err := e.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	all, err := e.progressOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{Task: t, Status: all[t.ID].Status()})
	}
	return views, nil
}

// History lists the user's started and attempted actions newest first.
// Actions on tasks that no longer exist are skipped.
func (e *Engine) History(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	events, err := e.store.Events().ListFromUser(ctx, userID, domain.KindStarted, domain.KindAttempted)
	if err != nil {
		return nil, apperr.Internal("list history", err)
	}
	tasks, err := e.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	history := make([]HistoryEntry, 0, len(events))
	for _, ev := range events {
		if ev.TaskID == nil {
			continue
		}
		t, ok := byID[*ev.TaskID]
		if !ok {
			continue
		}
		status := InProgress
		if ev.Kind == domain.KindAttempted {
			status = Completed
		}
		history = append(history, HistoryEntry{
			ID:       ev.ID,
			TaskID:   t.ID,
			TaskName: t.Name,
			Price:    t.Price,
			Status:   status,
			Date:     ev.CreatedAt,
		})
	}
	return history, nil
}

// Start records that the user began a task. The duplicate check is a read
// before the write, so two concurrent calls may both succeed; Fold treats
// the duplicate as a single start.
func (e *Engine) Start(ctx context.Context, userID, taskID uint) error {
	user, task, err := e.load(ctx, userID, taskID)
	if err != nil {
		return err
	}
	exists, err := e.store.Events().ExistsFromUser(ctx, userID, domain.KindStarted, taskID)
	if err != nil {
		return apperr.Internal("check started", err)
	}
	if exists {
		return apperr.ErrAlreadyStarted
	}
	if err := e.record(ctx, user, task, domain.KindStarted); err != nil {
		return err
	}
	e.announce(ctx, user, task, domain.KindTaskStartedNotice, "Task Started by User", "Task Started")
	return nil
}

// Attempt records that the user finished a task and queues it for review.
func (e *Engine) Attempt(ctx context.Context, userID, taskID uint) error {
	user, task, err := e.load(ctx, userID, taskID)
	if err != nil {
		return err
	}
	all, err := e.progressOf(ctx, userID)
	if err != nil {
		return err
	}
	p := all[taskID]
	if p.StartedAt == nil {
		return apperr.ErrNotStarted
	}
	if p.AttemptedAt != nil || p.AcceptedAt != nil {
		return apperr.ErrAlreadyAttempted
	}
	if err := e.record(ctx, user, task, domain.KindAttempted); err != nil {
		return err
	}
	e.announce(ctx, user, task, domain.KindTaskAttemptedNotice, "Task Attempted by User", "Task Attempted")
	return nil
}

func (e *Engine) load(ctx context.Context, userID, taskID uint) (*domain.User, *domain.Task, error) {
	task, err := e.catalog.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	user, err := e.store.Users().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, nil, apperr.Internal("load user", err)
	}
	return user, task, nil
}

func (e *Engine) record(ctx context.Context, user *domain.User, task *domain.Task, kind domain.EventKind) error {
	ev := &domain.Event{
		FromUserID: domain.UintPtr(user.ID),
		ToUserID:   user.ID,
		Kind:       kind,
		TaskID:     domain.UintPtr(task.ID),
		TaskName:   task.Name,
	}
	if err := e.store.Events().Append(ctx, ev); err != nil {
		return apperr.Internal("append "+string(kind), err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"task_id": task.ID,
		"kind":    kind,
	}).Info("Task progress recorded")
	return nil
}

func (e *Engine) announce(ctx context.Context, user *domain.User, task *domain.Task, kind domain.EventKind, subject, heading string) {
	notice := &domain.Event{
		FromUserID: domain.UintPtr(user.ID),
		Kind:       kind,
		TaskID:     domain.UintPtr(task.ID),
		TaskName:   task.Name,
		Amount:     domain.Money(task.Price),
		Body:       user.Email,
	}
	body := fmt.Sprintf("%s:\nUser: %s\nTask: %s\nPrice: $%s", heading, user.Email, task.Name, task.Price.StringFixed(2))
	e.fanout.Admins(ctx, notice, subject, body)
}
