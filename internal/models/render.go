package models

import (
	"context"
	"time"
)

// RenderCommand describes one alert element for the UI surfaces
type RenderCommand struct {
	AlertID   string        `json:"alert_id"`
	Type      AlertType     `json:"type"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Level     AlertLevel    `json:"level"`
	Style     AlertStyle    `json:"style"`
	Actions   []CustomAction `json:"actions,omitempty"`
	Exercise  *ExerciseInfo `json:"exercise,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// RenderedAlert is the handle to a rendered alert element. It is owned
// exclusively by the alert registry until removal.
type RenderedAlert struct {
	AlertID   string
	ElementID string
	Attached  bool
	Exercise  *ExerciseInfo
}

// AlertRenderer drives alert UI lifecycle. Action-control wiring is a
// two-phase operation: construct the element, attach it, then bind actions —
// binding requires the element to already be attached.
type AlertRenderer interface {
	Render(cmd RenderCommand) (*RenderedAlert, error)
	Attach(handle *RenderedAlert) error
	BindActions(handle *RenderedAlert, actions []CustomAction, exercise *ExerciseInfo) error
	Flash(handle *RenderedAlert) error
	Dismiss(handle *RenderedAlert, animated bool) error
}

// AudioPlayer serializes voice clip playback for the engine
type AudioPlayer interface {
	Play(ctx context.Context, clipURL string) (time.Duration, error)
	Stop()
	SetVolume(v float64)
	SetEnabled(enabled bool)
	Enabled() bool
	ScheduleRepeat(d time.Duration, fn func())
	ClearAllRepeats()
}
