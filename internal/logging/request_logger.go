package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"eco_gateway/internal/utils"
)

// RequestIDHeader carries the gateway request ID on responses.
const RequestIDHeader = "X-Request-ID"

// redactedHeaders are never written to the access log.
var redactedHeaders = map[string]bool{
	"Authorization": true,
	"X-Api-Key":     true,
	"Cookie":        true,
}

// RequestLog defines the JSON structure for an access log entry.
type RequestLog struct {
	Timestamp     time.Time           `json:"timestamp"`
	RequestID     string              `json:"request_id,omitempty"`
	Method        string              `json:"method"`
	Path          string              `json:"path"`
	Query         string              `json:"query,omitempty"`
	Status        int                 `json:"status"`
	DurationMs    float64             `json:"duration_ms"`
	Headers       map[string][]string `json:"headers,omitempty"`
	RemoteAddr    string              `json:"remote_addr"`
	Body          string              `json:"body,omitempty"`
	BodyTruncated bool                `json:"body_truncated,omitempty"`
}

// RequestLoggerConfig configures the access log.
type RequestLoggerConfig struct {
	// FileTemplate is a path with one %s, replaced by the rotation timestamp,
	// e.g. "/var/log/eco-gateway/requests-%s.jsonl".
	FileTemplate  string
	MaxSize       int64 // bytes before rotation
	MaxFiles      int   // rotated files kept
	BufferSize    int   // queued entries before new ones are dropped
	FlushInterval time.Duration
	MaxBodyBytes  int // request body bytes captured per entry
}

// DefaultRequestLoggerConfig returns defaults for fileTemplate.
func DefaultRequestLoggerConfig(fileTemplate string) RequestLoggerConfig {
	return RequestLoggerConfig{
		FileTemplate:  fileTemplate,
		MaxSize:       10 * 1024 * 1024,
		MaxFiles:      5,
		BufferSize:    1000,
		FlushInterval: time.Second,
		MaxBodyBytes:  4096,
	}
}

// RequestLogger implements asynchronous, buffered access logging with
// rotation and periodic flush.
type RequestLogger struct {
	cfg    RequestLoggerConfig
	logger *utils.Logger

	mu          sync.Mutex
	currentFile string
	file        *os.File
	writer      *bufio.Writer
	currentSize int64

	logCh   chan RequestLog
	doneCh  chan struct{}
	wg      sync.WaitGroup
	closed  bool
	dropped atomic.Int64
}

// NewRequestLogger opens the first log file and starts the writer goroutine.
func NewRequestLogger(cfg RequestLoggerConfig) (*RequestLogger, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	l := &RequestLogger{
		cfg:    cfg,
		logger: utils.NewLogger("request-logger"),
		logCh:  make(chan RequestLog, cfg.BufferSize),
		doneCh: make(chan struct{}),
	}

	if err := l.openFile(); err != nil {
		return nil, err
	}

	l.wg.Add(1)
	go l.run()

	return l, nil
}

// newFileName applies the current time to the file template.
func (l *RequestLogger) newFileName() string {
	return fmt.Sprintf(l.cfg.FileTemplate, time.Now().UTC().Format("20060102T150405.000000000"))
}

// openFile opens (or creates) the active log file. Callers hold mu or own
// the logger exclusively.
func (l *RequestLogger) openFile() error {
	l.currentFile = l.newFileName()
	if err := os.MkdirAll(filepath.Dir(l.currentFile), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(l.currentFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open request log: %w", err)
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat request log: %w", err)
	}
	l.currentSize = fi.Size()
	l.file = file
	l.writer = bufio.NewWriter(file)
	return nil
}

// rotateIfNeeded closes the current file and opens a new one when adding n
// bytes would exceed MaxSize. It reports whether a rotation happened.
func (l *RequestLogger) rotateIfNeeded(n int) (bool, error) {
	if l.cfg.MaxSize <= 0 || l.currentSize == 0 || l.currentSize+int64(n) < l.cfg.MaxSize {
		return false, nil
	}

	if err := l.writer.Flush(); err != nil {
		return false, err
	}
	if err := l.file.Close(); err != nil {
		return false, err
	}
	return true, l.openFile()
}

// cleanupOldFiles removes the oldest rotated files beyond MaxFiles.
func (l *RequestLogger) cleanupOldFiles() error {
	if l.cfg.MaxFiles <= 0 {
		return nil
	}
	matches, err := filepath.Glob(fmt.Sprintf(l.cfg.FileTemplate, "*"))
	if err != nil {
		return err
	}

	// Timestamps in the names sort chronologically.
	sort.Strings(matches)

	for i := 0; i < len(matches)-l.cfg.MaxFiles; i++ {
		if matches[i] == l.currentFile {
			continue
		}
		_ = os.Remove(matches[i])
	}
	return nil
}

// run writes queued entries and flushes the buffer periodically.
func (l *RequestLogger) run() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.logCh:
			l.writeEntry(entry)
		case <-ticker.C:
			l.mu.Lock()
			_ = l.writer.Flush()
			l.mu.Unlock()
		case <-l.doneCh:
			for {
				select {
				case entry := <-l.logCh:
					l.writeEntry(entry)
				default:
					l.mu.Lock()
					_ = l.writer.Flush()
					_ = l.file.Close()
					l.mu.Unlock()
					return
				}
			}
		}
	}
}

// writeEntry serializes one entry, rotating first if needed.
func (l *RequestLogger) writeEntry(entry RequestLog) {
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error("Failed to encode request log", "error", err)
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	rotated, err := l.rotateIfNeeded(len(data))
	if err != nil {
		l.logger.Error("Failed to rotate request log", "file", l.currentFile, "error", err)
		return
	}
	if rotated {
		if err := l.cleanupOldFiles(); err != nil {
			l.logger.Warn("Failed to clean up rotated request logs", "error", err)
		}
	}

	n, _ := l.writer.Write(data)
	l.currentSize += int64(n)
}

// Log queues an entry. If the queue is full the entry is dropped.
func (l *RequestLogger) Log(entry RequestLog) {
	select {
	case l.logCh <- entry:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many entries were discarded on a full queue.
func (l *RequestLogger) Dropped() int64 {
	return l.dropped.Load()
}

// CurrentFile returns the path of the active log file.
func (l *RequestLogger) CurrentFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentFile
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Middleware logs every request that passes through next. The request body
// is captured up to MaxBodyBytes and handed to next unchanged.
func (l *RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var body []byte
		truncated := false
		if r.Body != nil && l.cfg.MaxBodyBytes > 0 {
			captured, err := io.ReadAll(io.LimitReader(r.Body, int64(l.cfg.MaxBodyBytes)+1))
			if err == nil {
				r.Body = struct {
					io.Reader
					io.Closer
				}{io.MultiReader(bytes.NewReader(captured), r.Body), r.Body}
				if len(captured) > l.cfg.MaxBodyBytes {
					captured = captured[:l.cfg.MaxBodyBytes]
					truncated = true
				}
				body = captured
			}
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		l.Log(RequestLog{
			Timestamp:     start.UTC(),
			RequestID:     rec.Header().Get(RequestIDHeader),
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Status:        rec.status,
			DurationMs:    float64(time.Since(start).Microseconds()) / 1000,
			Headers:       filterHeaders(r.Header),
			RemoteAddr:    r.RemoteAddr,
			Body:          string(body),
			BodyTruncated: truncated,
		})
	})
}

func filterHeaders(h http.Header) map[string][]string {
	headers := make(map[string][]string, len(h))
	for k, v := range h {
		if redactedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		headers[k] = v
	}
	return headers
}

// Shutdown drains queued entries, flushes the buffer and closes the file.
func (l *RequestLogger) Shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	close(l.doneCh)
	l.wg.Wait()
}
