package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-cli/internal/model"
	"github.com/BuzzLyutic/task-cli/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

type Stats struct {
	ByStatus   map[model.Status]int `json:"by_status"`
	TotalTasks int                  `json:"total_tasks"`
}

type TaskService struct {
	repo   repo.TaskStore
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*TaskService)

// WithClock replaces the wall clock used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *TaskService) { s.logger = logger }
}

func NewTaskService(repo repo.TaskStore, opts ...Option) *TaskService {
	s := &TaskService{
		repo:   repo,
		logger: zap.NewNop(),
		now:    defaultClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timestamps are persisted in UTC with microsecond precision.
func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *TaskService) Add(ctx context.Context, description string) (model.Task, error) {
	if err := validateDescription(description); err != nil {
		return model.Task{}, err
	}

	var created model.Task
	err := s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		now := s.now()
		created = model.Task{
			ID:          nextID(tasks),
			Description: description,
			Status:      model.StatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return append(tasks, created), nil
	})
	if err != nil {
		return model.Task{}, err
	}

	s.logger.Debug("task added", zap.Int64("task_id", created.ID))
	return created, nil
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return model.Task{}, err
	}
	i, ok := find(tasks, id)
	if !ok {
		return model.Task{}, notFound(id)
	}
	return tasks[i], nil
}

// List returns matching tasks in stored order.
func (s *TaskService) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskService) Update(ctx context.Context, id int64, description string) (model.Task, error) {
	if err := validateDescription(description); err != nil {
		return model.Task{}, err
	}

	var updated model.Task
	err := s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i, ok := find(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		tasks[i].Description = description
		tasks[i].UpdatedAt = s.touch(tasks[i])
		updated = tasks[i]
		return tasks, nil
	})
	if err != nil {
		return model.Task{}, err
	}

	s.logger.Debug("task updated", zap.Int64("task_id", id))
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	err := s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i, ok := find(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("task deleted", zap.Int64("task_id", id))
	return nil
}

// Mark moves a task to in-progress or done. Other targets are rejected;
// there is no way back to todo.
func (s *TaskService) Mark(ctx context.Context, id int64, status model.Status) (model.Task, error) {
	if status != model.StatusInProgress && status != model.StatusDone {
		return model.Task{}, fmt.Errorf("%w: cannot mark task as %q", ErrValidation, status)
	}

	var marked model.Task
	err := s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i, ok := find(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		tasks[i].Status = status
		tasks[i].UpdatedAt = s.touch(tasks[i])
		marked = tasks[i]
		return tasks, nil
	})
	if err != nil {
		return model.Task{}, err
	}

	s.logger.Debug("task marked", zap.Int64("task_id", id), zap.String("status", string(status)))
	return marked, nil
}

func (s *TaskService) GetStats(ctx context.Context) (Stats, error) {
	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{ByStatus: make(map[model.Status]int, len(model.Statuses))}
	for _, st := range model.Statuses {
		stats.ByStatus[st] = 0
	}
	for _, t := range tasks {
		stats.ByStatus[t.Status]++
	}
	stats.TotalTasks = len(tasks)
	return stats, nil
}

// mutate runs one load-apply-save cycle. If apply fails nothing is written.
func (s *TaskService) mutate(ctx context.Context, apply func([]model.Task) ([]model.Task, error)) error {
	if l, ok := s.repo.(repo.Locker); ok {
		if err := l.Lock(ctx); err != nil {
			return err
		}
		defer func() {
			if err := l.Unlock(); err != nil {
				s.logger.Warn("failed to release lock", zap.Error(err))
			}
		}()
	}

	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	tasks, err = apply(tasks)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, tasks)
}

// touch never lets updatedAt move backwards, even if the clock does.
func (s *TaskService) touch(t model.Task) time.Time {
	now := s.now()
	if now.Before(t.UpdatedAt) {
		return t.UpdatedAt
	}
	return now
}

func find(tasks []model.Task, id int64) (int, bool) {
	for i, t := range tasks {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

// nextID is max+1, so a deleted id is not handed out again while a
// higher id survives.
func nextID(tasks []model.Task) int64 {
	var highest int64
	for _, t := range tasks {
		if t.ID > highest {
			highest = t.ID
		}
	}
	return highest + 1
}

func notFound(id int64) error {
	return fmt.Errorf("task %d: %w", id, repo.ErrorNotFound)
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: description must not be empty", ErrValidation)
	}
	return nil
}
