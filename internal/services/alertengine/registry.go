package alertengine

import (
	"sync"
	"time"

	"visionpulse-notifier-go/internal/models"
)

// Entry is one displayed alert. While InProgress is true the entry is a
// construction lock: the UI element does not exist yet, but the id is taken,
// so a concurrent delivery of the same id must route to update, not create.
type Entry struct {
	Handle     *models.RenderedAlert
	Config     models.AlertConfig
	Type       models.AlertType
	ShowTime   time.Time
	InProgress bool
}

// Registry is the set of currently visible alerts, keyed by alert id.
// Invariant: at most one entry per id.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Lock inserts the construction lock for an id. Returns false if the id is
// already present (displayed or mid-construction).
func (r *Registry) Lock(id string, alertType models.AlertType, cfg models.AlertConfig) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return false
	}
	r.entries[id] = &Entry{
		Type:       alertType,
		Config:     cfg,
		InProgress: true,
	}
	return true
}

// Complete replaces the lock entry with the final displayed entry
func (r *Registry) Complete(id string, handle *models.RenderedAlert, showTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return
	}
	entry.Handle = handle
	entry.ShowTime = showTime
	entry.InProgress = false
}

// Get returns a copy of the entry for an id. Callers never see the stored
// entry; mutations go through Complete and BindExercise so every write
// happens under the registry lock.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	out := *entry
	if entry.Handle != nil {
		handle := *entry.Handle
		out.Handle = &handle
	}
	return out, true
}

// BindExercise records the exercise descriptor on a displayed entry. Returns
// false when the entry is gone or still mid-construction.
func (r *Registry) BindExercise(id string, exercise *models.ExerciseInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || entry.Handle == nil {
		return false
	}
	entry.Handle.Exercise = exercise
	return true
}

// Remove deletes the entry for an id
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// IDs returns the ids of all current entries
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of entries, locks included
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
