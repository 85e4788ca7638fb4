// Package state implements the shared extraction control plane: the
// per-extraction progress/pause/stop registry and the global counters.
package state

import (
	"sync"
	"time"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

type entry struct {
	url       string
	startedAt time.Time
	progress  int
	stage     string
	paused    bool
	stopped   bool
}

// Registry is a concurrency-safe implementation of
// extraction.StateRegistry backed by a mutex-guarded map.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	clock   extraction.Clock
}

// NewRegistry constructs an empty Registry.
func NewRegistry(clock extraction.Clock) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		clock:   clock,
	}
}

// Create registers a new extraction at progress 0, stage "Initializing".
// Creating an existing id resets it.
func (r *Registry) Create(extractionID, url string) {
	if extractionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[extractionID] = &entry{
		url:       url,
		startedAt: r.clock.Now(),
		stage:     "Initializing",
	}
}

// UpdateProgress records progress and stage. Unknown ids are ignored.
// Progress never moves backwards within a run.
func (r *Registry) UpdateProgress(extractionID string, progress int, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[extractionID]
	if !ok {
		return
	}
	if progress > e.progress {
		e.progress = progress
	}
	e.stage = stage
}

// Pause flags the extraction as paused. Idempotent; unknown ids are ignored.
func (r *Registry) Pause(extractionID string) {
	r.setFlag(extractionID, func(e *entry) { e.paused = true })
}

// Resume clears the paused flag. Idempotent; unknown ids are ignored.
func (r *Registry) Resume(extractionID string) {
	r.setFlag(extractionID, func(e *entry) { e.paused = false })
}

// Stop flags the extraction as stopped. Stop is terminal for the id.
func (r *Registry) Stop(extractionID string) {
	r.setFlag(extractionID, func(e *entry) { e.stopped = true })
}

func (r *Registry) setFlag(extractionID string, apply func(*entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[extractionID]; ok {
		apply(e)
	}
}

// IsPaused reports the paused flag; false for unknown ids.
func (r *Registry) IsPaused(extractionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[extractionID]
	return ok && e.paused
}

// IsStopped reports the stopped flag; false for unknown ids.
func (r *Registry) IsStopped(extractionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[extractionID]
	return ok && e.stopped
}

// Get returns a snapshot of the extraction's state.
func (r *Registry) Get(extractionID string) (extraction.StateSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[extractionID]
	if !ok {
		return extraction.StateSnapshot{}, false
	}
	return extraction.StateSnapshot{
		ExtractionID: extractionID,
		URL:          e.url,
		StartedAt:    e.startedAt,
		Progress:     e.progress,
		Stage:        e.stage,
		Paused:       e.paused,
		Stopped:      e.stopped,
	}, true
}

// Remove deletes the entry. Consumers call this once done polling.
func (r *Registry) Remove(extractionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, extractionID)
}
