// Package catalog is the read-mostly set of task definitions.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/notify"
	"task_wallet/internal/store"
	"task_wallet/internal/utils"
)

const (
	cacheKey = "tasks:all"
	cacheTTL = 60 * time.Second
)

// Input is the admin supplied part of a task.
type Input struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	URL         string          `json:"url" binding:"required,url,max=1024"`
}

func (in Input) validate() error {
	in.Name, in.Description, in.URL = strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), strings.TrimSpace(in.URL)
	if err := utils.ValidateStruct(in); err != nil {
		return err
	}
	switch {
	case !in.Price.IsPositive():
		return apperr.InvalidInput("price", "Price must be positive")
	case !in.Price.Equal(in.Price.Round(2)):
		return apperr.InvalidInput("price", "Price supports at most 2 decimal places")
	}
	return nil
}

func (in Input) apply(t *domain.Task) {
	t.Name = strings.TrimSpace(in.Name)
	t.Slug = slug.Make(t.Name)
	t.Description = strings.TrimSpace(in.Description)
	t.Price = in.Price
	t.URL = strings.TrimSpace(in.URL)
}

// Service reads and administers tasks.
type Service struct {
	store  store.Store
	cache  *utils.Cache
	fanout *notify.Fanout
}

// New returns a catalog; cache may be nil.
func New(st store.Store, cache *utils.Cache, fanout *notify.Fanout) *Service {
	return &Service{store: st, cache: cache, fanout: fanout}
}

// List returns every live task, served from cache when possible.
func (s *Service) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if found, err := s.cache.Get(ctx, cacheKey, &tasks); err == nil && found {
		return tasks, nil
	}
	tasks, err := s.store.Tasks().List(ctx)
	if err != nil {
		return nil, apperr.Internal("list tasks", err)
	}
	if err := s.cache.Set(ctx, cacheKey, tasks, cacheTTL); err != nil {
		logrus.WithError(err).Warn("Failed to cache task list")
	}
	return tasks, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id uint) (*domain.Task, error) {
	t, err := s.store.Tasks().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrTaskNotFound
	}
	if err != nil {
		return nil, apperr.Internal("get task", err)
	}
	return t, nil
}

// Create adds a task and tells the admins about it.
func (s *Service) Create(ctx context.Context, in Input) (*domain.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var t domain.Task
	in.apply(&t)
	if err := s.store.Tasks().Create(ctx, &t); err != nil {
		return nil, apperr.Internal("create task", err)
	}
	s.invalidate(ctx)
	logrus.WithFields(logrus.Fields{"task_id": t.ID, "name": t.Name, "price": t.Price.StringFixed(2)}).Info("Task created")
	s.fanout.Admins(ctx, nil, "New Task Created",
		fmt.Sprintf("A new task %q ($%s) was created.", t.Name, t.Price.StringFixed(2)))
	return &t, nil
}

// Update replaces the editable fields of a task.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*domain.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := domain.Task{ID: id}
	in.apply(&t)
	err := s.store.Tasks().Update(ctx, &t)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrTaskNotFound
	}
	if err != nil {
		return nil, apperr.Internal("update task", err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete soft deletes a task. Pending attempts referencing it drop out of
// the review queue.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.store.Tasks().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrTaskNotFound
	}
	if err != nil {
		return apperr.Internal("delete task", err)
	}
	s.invalidate(ctx)
	logrus.WithField("task_id", id).Info("Task deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate task cache")
	}
}
