package repo

import (
	"context"

	"github.com/BuzzLyutic/task-cli/internal/model"
)

// TaskStore loads and saves the whole task collection at once.
type TaskStore interface {
	Load(ctx context.Context) ([]model.Task, error)
	Save(ctx context.Context, tasks []model.Task) error
}

// Locker is implemented by stores that can hold an exclusive lock
// across a load-mutate-save cycle.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}
