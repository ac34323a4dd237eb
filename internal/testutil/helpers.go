// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-cli/internal/model"
	"github.com/BuzzLyutic/task-cli/internal/repo"
)

// Epoch is the first instant handed out by NewClock.
var Epoch = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// NewStore creates a file store backed by name inside a fresh temp dir.
func NewStore(t *testing.T, name string) *repo.FileStore {
	t.Helper()

	store, err := repo.NewFileStore(filepath.Join(t.TempDir(), name), repo.Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

// SeedTasks writes count todo tasks with ids 1..count straight to the store.
func SeedTasks(t *testing.T, store repo.TaskStore, count int) []model.Task {
	t.Helper()

	tasks := make([]model.Task, 0, count)
	for i := 0; i < count; i++ {
		at := Epoch.Add(time.Duration(i) * time.Minute)
		tasks = append(tasks, model.Task{
			ID:          int64(i + 1),
			Description: fmt.Sprintf("Task %d", i+1),
			Status:      model.StatusTodo,
			CreatedAt:   at,
			UpdatedAt:   at,
		})
	}

	if err := store.Save(context.Background(), tasks); err != nil {
		t.Fatalf("Failed to seed tasks: %v", err)
	}
	return tasks
}

// ReadFile returns the raw content of path, failing the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return b
}

// NewClock returns a clock starting at Epoch that advances by step on
// every call.
func NewClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := Epoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}
