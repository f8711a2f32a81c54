package models

import (
	"sync"
	"time"
)

// MessagePublisher interface for broadcasting UI and status messages
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}

// SessionState is the accessor for the coordination flags shared between the
// alert engine, the event feed and the frame relay. The engine never touches
// these flags except through this interface.
type SessionState interface {
	MonitoringActive() bool
	SetMonitoringActive(active bool)
	Paused() bool
	SetPaused(paused bool)
	OnBreak() bool
	SetOnBreak(onBreak bool)
	SessionID() string
	SetSessionID(id string)
	ResetHysteresis()
	HysteresisFlags() HysteresisFlags
	SetHysteresisFlags(flags HysteresisFlags)
}

// HysteresisFlags are the frame-metrics poller counters tracked per critical
// type: when an absence-style condition started, when it alerted, and when a
// candidate resolve began. Resume must wipe them so no stale timers survive a
// pause/resume cycle.
type HysteresisFlags struct {
	AbsenceStart        time.Time
	AbsenceAlerted      time.Time
	AbsenceResolveStart time.Time
	MultiStart          time.Time
	MultiAlerted        time.Time
	MultiResolveStart   time.Time
	OccludeStart        time.Time
	OccludeAlerted      time.Time
	OccludeResolveStart time.Time
}

// IsZero reports whether every flag is unset
func (h HysteresisFlags) IsZero() bool {
	return h == HysteresisFlags{}
}

// SessionFlags is the in-memory SessionState implementation
type SessionFlags struct {
	mu         sync.RWMutex
	active     bool
	paused     bool
	onBreak    bool
	sessionID  string
	hysteresis HysteresisFlags
}

// NewSessionFlags creates an empty flag set (monitoring inactive)
func NewSessionFlags() *SessionFlags {
	return &SessionFlags{}
}

func (s *SessionFlags) MonitoringActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *SessionFlags) SetMonitoringActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *SessionFlags) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *SessionFlags) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

func (s *SessionFlags) OnBreak() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onBreak
}

func (s *SessionFlags) SetOnBreak(onBreak bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBreak = onBreak
}

func (s *SessionFlags) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *SessionFlags) SetSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

func (s *SessionFlags) ResetHysteresis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hysteresis = HysteresisFlags{}
}

func (s *SessionFlags) HysteresisFlags() HysteresisFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hysteresis
}

func (s *SessionFlags) SetHysteresisFlags(flags HysteresisFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hysteresis = flags
}

// SessionStatus is the snapshot broadcast to UI surfaces after a session
// control command settles
type SessionStatus struct {
	SessionID   string    `json:"session_id,omitempty"`
	Active      bool      `json:"active"`
	Paused      bool      `json:"is_paused"`
	OnBreak     bool      `json:"on_break"`
	BlinkCount  int       `json:"blink_count,omitempty"`
	AvgEAR      float64   `json:"avg_ear,omitempty"`
	TotalBlinks int       `json:"total_blinks,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FrameMetrics is the per-frame response from the upload endpoint
type FrameMetrics struct {
	AvgEAR      float64 `json:"avg_ear"`
	TotalBlinks int     `json:"total_blinks"`
}
