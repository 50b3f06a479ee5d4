package log

import (
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
)

// HTTP log buffer is separate from the main log stream
var httpLogBuffer *LogBuffer
var httpLogBufferOnce sync.Once

// HTTPLogEntry represents an HTTP request/response log entry
type HTTPLogEntry struct {
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id,omitempty"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration"`
	Size       int64         `json:"size"`
	RemoteAddr string        `json:"remote_addr"`
	UserAgent  string        `json:"user_agent"`
}

// LogBuffer keeps the most recent entries in a fixed-size ring.
type LogBuffer struct {
	mu      sync.Mutex
	entries []HTTPLogEntry
	next    int
	full    bool
}

// NewLogBuffer creates a ring holding up to size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size < 1 {
		size = 1
	}
	return &LogBuffer{entries: make([]HTTPLogEntry, size)}
}

// AddEntry appends e, overwriting the oldest entry when full.
func (b *LogBuffer) AddEntry(e HTTPLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Entries returns the buffered entries, oldest first.
func (b *LogBuffer) Entries() []HTTPLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		out := make([]HTTPLogEntry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}
	out := make([]HTTPLogEntry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

// GetHTTPLogBuffer returns the HTTP log buffer instance, creating it if necessary
func GetHTTPLogBuffer() *LogBuffer {
	httpLogBufferOnce.Do(func() {
		httpLogBuffer = NewLogBuffer(1000) // Keep last 1000 HTTP log entries
	})
	return httpLogBuffer
}

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// HTTPMiddleware records every request to the HTTP log buffer and emits a
// structured access log line.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		entry := HTTPLogEntry{
			Timestamp:  time.Now(),
			RequestID:  w.Header().Get(RequestIDHeader),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     m.Code,
			Duration:   m.Duration,
			Size:       m.Written,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		}
		GetHTTPLogBuffer().AddEntry(entry)

		fields := []interface{}{
			"request_id", entry.RequestID,
			"method", entry.Method,
			"path", entry.Path,
			"status", entry.Status,
			"duration_ms", entry.Duration.Milliseconds(),
			"size", entry.Size,
			"remote_addr", entry.RemoteAddr,
		}
		if entry.Status >= http.StatusInternalServerError {
			Errorw("http request", fields...)
		} else {
			Debugw("http request", fields...)
		}
	})
}
