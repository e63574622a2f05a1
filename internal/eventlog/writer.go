package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPath is the event log file name used when none is configured.
const DefaultPath = "ecologits-traces.jsonl"

// Writer appends JSON lines to the event log. Each Append opens the file in
// append mode and issues a single write of one complete line, so concurrent
// appenders never interleave partial lines. The file is never truncated or
// rewritten.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates a writer for path.
func NewWriter(path string) *Writer {
	if path == "" {
		path = DefaultPath
	}
	return &Writer{path: path}
}

// Path returns the event log path.
func (w *Writer) Path() string {
	return w.path
}

// Append serializes v as one JSON line and appends it to the log.
func (w *Writer) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create event log directory: %w", err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}

	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write event: %w", err)
	}
	return f.Close()
}
