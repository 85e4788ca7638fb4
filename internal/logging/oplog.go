package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultRingSize = 500

// OperationEntry is one pipeline operation kept in the recent-operations
// ring.
type OperationEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	URL          string    `json:"url"`
	ExtractionID string    `json:"extraction_id"`
	Stage        string    `json:"stage"`
	Status       string    `json:"status"`
	Detail       string    `json:"detail,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
}

// ErrorEntry is one pipeline error kept in the recent-errors ring.
type ErrorEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	URL          string    `json:"url"`
	ExtractionID string    `json:"extraction_id"`
	Kind         string    `json:"kind"`
	Message      string    `json:"message"`
	Trace        string    `json:"trace,omitempty"`
}

// OperationLog writes pipeline operations and errors to zap and keeps a
// bounded in-memory ring of recent entries for the stats endpoint.
type OperationLog struct {
	logger *zap.Logger

	mu         sync.Mutex
	operations []OperationEntry
	errors     []ErrorEntry
	capacity   int
}

// NewOperationLog constructs an OperationLog. capacity <= 0 uses the
// default ring size.
func NewOperationLog(logger *zap.Logger, capacity int) *OperationLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &OperationLog{logger: logger, capacity: capacity}
}

// LogOperation records one pipeline operation. It never fails the caller.
func (l *OperationLog) LogOperation(url, extractionID, stage, status, detail string, duration time.Duration) {
	entry := OperationEntry{
		Timestamp:    time.Now().UTC(),
		URL:          url,
		ExtractionID: extractionID,
		Stage:        stage,
		Status:       status,
		Detail:       detail,
		DurationMs:   duration.Milliseconds(),
	}
	l.logger.Info("operation",
		zap.String("url", url),
		zap.String("extraction_id", extractionID),
		zap.String("stage", stage),
		zap.String("status", status),
		zap.String("detail", detail),
		zap.Int64("duration_ms", entry.DurationMs),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.operations = appendBounded(l.operations, entry, l.capacity)
}

// LogError records one pipeline error. It never fails the caller.
func (l *OperationLog) LogError(url, extractionID, kind, message, trace string) {
	entry := ErrorEntry{
		Timestamp:    time.Now().UTC(),
		URL:          url,
		ExtractionID: extractionID,
		Kind:         kind,
		Message:      message,
		Trace:        trace,
	}
	l.logger.Error("pipeline error",
		zap.String("url", url),
		zap.String("extraction_id", extractionID),
		zap.String("kind", kind),
		zap.String("message", message),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = appendBounded(l.errors, entry, l.capacity)
}

// RecentOperations returns up to n operations, newest first.
func (l *OperationLog) RecentOperations(n int) []OperationEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lastReversed(l.operations, n)
}

// RecentErrors returns up to n errors, newest first.
func (l *OperationLog) RecentErrors(n int) []ErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lastReversed(l.errors, n)
}

func appendBounded[T any](ring []T, entry T, capacity int) []T {
	ring = append(ring, entry)
	if len(ring) > capacity {
		ring = ring[len(ring)-capacity:]
	}
	return ring
}

func lastReversed[T any](ring []T, n int) []T {
	if n <= 0 || n > len(ring) {
		n = len(ring)
	}
	out := make([]T, 0, n)
	for i := len(ring) - 1; i >= len(ring)-n; i-- {
		out = append(out, ring[i])
	}
	return out
}
