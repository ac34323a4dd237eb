package respond

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/BuzzLyutic/task-cli/internal/model"
)

const (
	OutputText = "text"
	OutputJSON = "json"
)

func JSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func Message(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func Error(w io.Writer, message string) {
	Message(w, "Error: %s", message)
}

func Task(w io.Writer, t model.Task) {
	Message(w, "ID: %d, Description: %s, Status: %s, Created At: %s, Updated At: %s",
		t.ID, t.Description, t.Status, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
}

// Tasks prints one line per task, or a notice when there are none.
func Tasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		Message(w, "No tasks found.")
		return
	}
	for _, t := range tasks {
		Task(w, t)
	}
}

// Output writes v as JSON or falls back to the text renderer.
func Output(w io.Writer, format string, v interface{}, text func(io.Writer)) error {
	switch format {
	case OutputJSON:
		return JSON(w, v)
	case OutputText, "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
