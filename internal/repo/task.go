package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-cli/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrStorage    = errors.New("storage error")
)

const lockRetryDelay = 50 * time.Millisecond

type Options struct {
	// Format overrides the extension-based codec choice.
	Format string
	// Lock guards each load-mutate-save cycle with an advisory file lock.
	Lock bool
}

// FileStore keeps the whole collection in a single file and rewrites it
// on every save.
type FileStore struct {
	path   string
	codec  Codec
	flock  *flock.Flock
	logger *zap.Logger
}

func NewFileStore(path string, opts Options, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrStorage)
	}
	codec, err := CodecFor(opts.Format, path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &FileStore{
		path:   path,
		codec:  codec,
		logger: logger.With(zap.String("file", path), zap.String("format", codec.Format())),
	}
	if opts.Lock {
		s.flock = flock.New(path + ".lock")
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

// Load returns the stored collection. A missing file is created with an
// empty collection first.
func (s *FileStore) Load(ctx context.Context) ([]model.Task, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("task file missing, creating empty collection")
		tasks := []model.Task{}
		if err := s.Save(ctx, tasks); err != nil {
			return nil, err
		}
		return tasks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, s.path, err)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return []model.Task{}, nil
	}

	tasks, err := s.codec.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrStorage, s.path, err)
	}
	if err := validateCollection(tasks); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStorage, s.path, err)
	}

	s.logger.Debug("tasks loaded", zap.Int("count", len(tasks)))
	return tasks, nil
}

// Save replaces the file with a full snapshot. The data is written to a
// temp file in the same directory and renamed over the target.
func (s *FileStore) Save(ctx context.Context, tasks []model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := s.codec.Encode(tasks)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStorage, err)
	}

	if err := writeAtomic(s.path, b); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, s.path, err)
	}

	s.logger.Debug("tasks saved", zap.Int("count", len(tasks)), zap.Int("bytes", len(b)))
	return nil
}

// Lock is a no-op unless the store was opened with Options.Lock.
func (s *FileStore) Lock(ctx context.Context) error {
	if s.flock == nil {
		return nil
	}
	if err := ensureDir(s.path); err != nil {
		return fmt.Errorf("%w: lock %s: %w", ErrStorage, s.path, err)
	}
	locked, err := s.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("%w: lock %s: %w", ErrStorage, s.path, err)
	}
	if !locked {
		return fmt.Errorf("%w: lock %s: not acquired", ErrStorage, s.path)
	}
	s.logger.Debug("lock acquired")
	return nil
}

func (s *FileStore) Unlock() error {
	if s.flock == nil {
		return nil
	}
	return s.flock.Unlock()
}

func writeAtomic(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func validateCollection(tasks []model.Task) error {
	seen := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		if t.ID <= 0 {
			return fmt.Errorf("invalid task id %d", t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate task id %d", t.ID)
		}
		seen[t.ID] = struct{}{}
		if _, err := model.ParseStatus(string(t.Status)); err != nil {
			return fmt.Errorf("task %d: %w", t.ID, err)
		}
		if t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() {
			return fmt.Errorf("task %d: missing createdAt or updatedAt", t.ID)
		}
	}
	return nil
}
