package alertengine

import (
	"sync"
	"time"

	"visionpulse-notifier-go/internal/models"
)

// typeState is the rolling display history for one alert type
type typeState struct {
	showHistory     []time.Time // append-only, pruned logically at query time
	lastShown       time.Time
	repetitionCount int
}

// StateTracker enforces cooldown, hourly repetition caps and engine-triggered
// suppression per alert type. Suppression is distinct from cooldown: it is an
// explicit block set by the engine, not derived from display history.
type StateTracker struct {
	mu         sync.Mutex
	states     map[models.AlertType]*typeState
	suppressed map[models.AlertType]time.Time // type -> expiry
	clock      func() time.Time
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		states:     make(map[models.AlertType]*typeState),
		suppressed: make(map[models.AlertType]time.Time),
		clock:      time.Now,
	}
}

func (t *StateTracker) state(alertType models.AlertType) *typeState {
	s, ok := t.states[alertType]
	if !ok {
		s = &typeState{}
		t.states[alertType] = s
	}
	return s
}

// RecordShow appends a display to the type's history
func (t *StateTracker) RecordShow(alertType models.AlertType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	s := t.state(alertType)
	s.lastShown = now
	s.showHistory = append(s.showHistory, now)
	s.repetitionCount++
}

// LastShown returns the last display time, zero if never shown
func (t *StateTracker) LastShown(alertType models.AlertType) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(alertType).lastShown
}

// CountWithin counts displays of the type inside the trailing window
func (t *StateTracker) CountWithin(alertType models.AlertType, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	count := 0
	for _, ts := range t.state(alertType).showHistory {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// Repetition returns the running repetition counter for the type
func (t *StateTracker) Repetition(alertType models.AlertType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(alertType).repetitionCount
}

// SetRepetition overwrites the repetition counter (backend-reported value)
func (t *StateTracker) SetRepetition(alertType models.AlertType, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(alertType).repetitionCount = count
}

// Suppress blocks the type until the given expiry
func (t *StateTracker) Suppress(alertType models.AlertType, window time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suppressed[alertType] = t.clock().Add(window)
}

// IsSuppressed reports whether the type is inside a suppression window
func (t *StateTracker) IsSuppressed(alertType models.AlertType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.suppressed[alertType]
	if !ok {
		return false
	}
	if t.clock().Before(expiry) {
		return true
	}
	delete(t.suppressed, alertType)
	return false
}

// ResetType clears the history for one type, so a fresh detection is not
// cooldown-blocked.
func (t *StateTracker) ResetType(alertType models.AlertType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, alertType)
}

// ResetAll clears every type's history and all suppressions
func (t *StateTracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[models.AlertType]*typeState)
	t.suppressed = make(map[models.AlertType]time.Time)
}
