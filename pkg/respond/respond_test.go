package respond

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-cli/internal/model"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     interface{}
		wantBody interface{}
	}{
		{
			name:     "object",
			data:     map[string]string{"message": "success"},
			wantBody: map[string]interface{}{"message": "success"},
		},
		{
			name:     "numbers",
			data:     map[string]int{"id": 123},
			wantBody: map[string]interface{}{"id": float64(123)}, // JSON unmarshals numbers as float64
		},
		{
			name:     "empty list",
			data:     []model.Task{},
			wantBody: []interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, JSON(&buf, tt.data))

			var got interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	Error(&buf, "something went wrong")
	assert.Equal(t, "Error: something went wrong\n", buf.String())
}

func TestTasks(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 0, 500000000, time.UTC)

	tests := []struct {
		name  string
		tasks []model.Task
		want  string
	}{
		{
			name:  "empty",
			tasks: nil,
			want:  "No tasks found.\n",
		},
		{
			name: "one per line",
			tasks: []model.Task{
				{ID: 1, Description: "Buy groceries", Status: model.StatusTodo, CreatedAt: at, UpdatedAt: at},
				{ID: 4, Description: "Ship", Status: model.StatusDone, CreatedAt: at, UpdatedAt: at.Add(time.Hour)},
			},
			want: "ID: 1, Description: Buy groceries, Status: todo, Created At: 2026-10-19T09:30:00.5Z, Updated At: 2026-10-19T09:30:00.5Z\n" +
				"ID: 4, Description: Ship, Status: done, Created At: 2026-10-19T09:30:00.5Z, Updated At: 2026-10-19T10:30:00.5Z\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Tasks(&buf, tt.tasks)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutput(t *testing.T) {
	text := func(w io.Writer) { Message(w, "plain") }

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "default is text", format: "", want: "plain\n"},
		{name: "text", format: OutputText, want: "plain\n"},
		{name: "json", format: OutputJSON, want: "{\n  \"id\": 1\n}\n"},
		{name: "unknown", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Output(&buf, tt.format, map[string]int{"id": 1}, text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
