package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-cli/internal/model"
)

func newTestStore(t *testing.T, name string, opts Options) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), name), opts, zap.NewNop())
	require.NoError(t, err)
	return store
}

func sampleTasks() []model.Task {
	created := time.Date(2026, 10, 19, 9, 30, 0, 123456000, time.UTC)
	return []model.Task{
		{ID: 1, Description: "Buy groceries", Status: model.StatusTodo, CreatedAt: created, UpdatedAt: created},
		{ID: 3, Description: "Write report, \"draft\"", Status: model.StatusInProgress, CreatedAt: created, UpdatedAt: created.Add(time.Hour)},
		{ID: 7, Description: "Ship it", Status: model.StatusDone, CreatedAt: created.Add(time.Minute), UpdatedAt: created.Add(2 * time.Hour)},
	}
}

func assertSameTasks(t *testing.T, want, got []model.Task) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Description, got[i].Description)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt), "createdAt of task %d", want[i].ID)
		assert.True(t, want[i].UpdatedAt.Equal(got[i].UpdatedAt), "updatedAt of task %d", want[i].ID)
	}
}

func TestFileStore_LoadMissingFileCreatesEmpty(t *testing.T) {
	store := newTestStore(t, "tasks.json", Options{})

	tasks, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)

	b, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(b))
}

func TestFileStore_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tasks.json")
	store, err := NewFileStore(path, Options{}, nil)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestFileStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		file string
		opts Options
	}{
		{name: "json by extension", file: "tasks.json"},
		{name: "yaml by extension", file: "tasks.yaml"},
		{name: "yml by extension", file: "tasks.yml"},
		{name: "toml by extension", file: "tasks.toml"},
		{name: "explicit format wins", file: "tasks.db", opts: Options{Format: "toml"}},
		{name: "unknown extension defaults to json", file: "tasks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t, tt.file, tt.opts)
			want := sampleTasks()

			require.NoError(t, store.Save(ctx, want))
			first, err := os.ReadFile(store.Path())
			require.NoError(t, err)

			loaded, err := store.Load(ctx)
			require.NoError(t, err)
			assertSameTasks(t, want, loaded)

			require.NoError(t, store.Save(ctx, loaded))
			second, err := os.ReadFile(store.Path())
			require.NoError(t, err)
			assert.Equal(t, string(first), string(second), "serialization should be stable")
		})
	}
}

func TestFileStore_EmptyCollectionRoundTrip(t *testing.T) {
	for _, file := range []string{"tasks.json", "tasks.yaml", "tasks.toml"} {
		t.Run(file, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t, file, Options{})

			require.NoError(t, store.Save(ctx, nil))
			tasks, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestFileStore_JSONLayout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "tasks.json", Options{})

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Save(ctx, []model.Task{
		{ID: 1, Description: "Buy groceries", Status: model.StatusTodo, CreatedAt: created, UpdatedAt: created},
	}))

	b, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	want := `[
    {
        "id": 1,
        "description": "Buy groceries",
        "status": "todo",
        "createdAt": "2026-01-02T03:04:05Z",
        "updatedAt": "2026-01-02T03:04:05Z"
    }
]
`
	assert.Equal(t, want, string(b))
}

func TestFileStore_LoadErrors(t *testing.T) {
	const stamp = "2026-10-19T09:30:00Z"
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "malformed json", file: "tasks.json", content: `[{"id": 1,`},
		{name: "wrong shape", file: "tasks.json", content: `{"id": 1}`},
		{name: "malformed yaml", file: "tasks.yaml", content: "- id: [1\n"},
		{name: "malformed toml", file: "tasks.toml", content: "tasks = [\n"},
		{name: "duplicate ids", file: "tasks.json", content: `[{"id": 1, "status": "todo", "createdAt": "` + stamp + `", "updatedAt": "` + stamp + `"}, {"id": 1, "status": "done", "createdAt": "` + stamp + `", "updatedAt": "` + stamp + `"}]`},
		{name: "non-positive id", file: "tasks.json", content: `[{"id": 0, "status": "todo", "createdAt": "` + stamp + `", "updatedAt": "` + stamp + `"}]`},
		{name: "unknown status", file: "tasks.json", content: `[{"id": 1, "status": "blocked", "createdAt": "` + stamp + `", "updatedAt": "` + stamp + `"}]`},
		{name: "missing timestamps", file: "tasks.json", content: `[{"id": 1, "description": "x", "status": "todo"}]`},
		{name: "missing updatedAt in yaml", file: "tasks.yaml", content: "- id: 1\n  status: todo\n  createdAt: " + stamp + "\n"},
		{name: "malformed timestamp", file: "tasks.json", content: `[{"id": 1, "status": "todo", "createdAt": "yesterday", "updatedAt": "` + stamp + `"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, tt.file, Options{})
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0o644))

			_, err := store.Load(context.Background())
			assert.ErrorIs(t, err, ErrStorage)
		})
	}
}

func TestFileStore_LoadISOTimestamps(t *testing.T) {
	naive, err := time.ParseInLocation("2006-01-02T15:04:05.999999", "2024-10-05T12:34:56.123456", time.Local)
	require.NoError(t, err)
	zoned := time.Date(2024, 10, 5, 12, 34, 56, 0, time.UTC)

	tests := []struct {
		name    string
		file    string
		content string
		want    time.Time
	}{
		{
			name:    "naive isoformat",
			file:    "tasks.json",
			content: `[{"id": 1, "description": "x", "status": "todo", "createdAt": "2024-10-05T12:34:56.123456", "updatedAt": "2024-10-05T12:34:56.123456"}]`,
			want:    naive,
		},
		{
			name:    "naive isoformat without fraction",
			file:    "tasks.json",
			content: `[{"id": 1, "description": "x", "status": "todo", "createdAt": "2024-10-05T12:34:56", "updatedAt": "2024-10-05T12:34:56"}]`,
			want:    naive.Truncate(time.Second),
		},
		{
			name:    "offset",
			file:    "tasks.json",
			content: `[{"id": 1, "description": "x", "status": "todo", "createdAt": "2024-10-05T14:34:56+02:00", "updatedAt": "2024-10-05T14:34:56+02:00"}]`,
			want:    zoned,
		},
		{
			name:    "naive isoformat in yaml",
			file:    "tasks.yaml",
			content: "- id: 1\n  description: x\n  status: todo\n  createdAt: 2024-10-05T12:34:56.123456\n  updatedAt: \"2024-10-05T12:34:56.123456\"\n",
			want:    naive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t, tt.file, Options{})
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0o644))

			tasks, err := store.Load(ctx)
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.True(t, tt.want.Equal(tasks[0].CreatedAt), "createdAt = %s", tasks[0].CreatedAt)
			assert.True(t, tt.want.Equal(tasks[0].UpdatedAt), "updatedAt = %s", tasks[0].UpdatedAt)

			// Rewrites use RFC 3339 in UTC.
			require.NoError(t, store.Save(ctx, tasks))
			reloaded, err := store.Load(ctx)
			require.NoError(t, err)
			assertSameTasks(t, tasks, reloaded)
			assert.Equal(t, time.UTC, reloaded[0].CreatedAt.Location())
		})
	}
}

func TestFileStore_BlankFileIsEmpty(t *testing.T) {
	store := newTestStore(t, "tasks.json", Options{})
	require.NoError(t, os.WriteFile(store.Path(), []byte("  \n"), 0o644))

	tasks, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestFileStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store, err := NewFileStore(filepath.Join(blocker, "tasks.json"), Options{}, zap.NewNop())
	require.NoError(t, err)

	err = store.Save(context.Background(), sampleTasks())
	assert.ErrorIs(t, err, ErrStorage)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrStorage)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t, "tasks.json", Options{})
	require.NoError(t, store.Save(context.Background(), sampleTasks()))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tasks.json", entries[0].Name())
}

func TestFileStore_Lock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	first, err := NewFileStore(path, Options{Lock: true}, zap.NewNop())
	require.NoError(t, err)
	second, err := NewFileStore(path, Options{Lock: true}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, first.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, second.Lock(ctx), ErrStorage, "lock should be held by the first store")

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock(context.Background()))
	require.NoError(t, second.Unlock())
}

func TestFileStore_LockDisabledIsNoop(t *testing.T) {
	store := newTestStore(t, "tasks.json", Options{})

	require.NoError(t, store.Lock(context.Background()))
	require.NoError(t, store.Unlock())
	assert.NoFileExists(t, store.Path()+".lock")
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		format  string
		path    string
		want    string
		wantErr bool
	}{
		{path: "tasks.json", want: FormatJSON},
		{path: "TASKS.YAML", want: FormatYAML},
		{path: "tasks.yml", want: FormatYAML},
		{path: "tasks.toml", want: FormatTOML},
		{path: "tasks", want: FormatJSON},
		{format: "YAML", path: "tasks.json", want: FormatYAML},
		{format: "yml", path: "tasks.json", want: FormatYAML},
		{format: "xml", path: "tasks.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"|"+tt.path, func(t *testing.T) {
			codec, err := CodecFor(tt.format, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, codec.Format())
		})
	}
}
