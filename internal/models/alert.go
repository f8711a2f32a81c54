package models

import (
	"time"
)

// AlertType represents the alert categories emitted by the detection backend
type AlertType string

const (
	AlertTypeDriverAbsent   AlertType = "driver_absent"
	AlertTypeMultiplePeople AlertType = "multiple_people"
	AlertTypeCameraOccluded AlertType = "camera_occluded"
	AlertTypeMicrosleep     AlertType = "microsleep"
	AlertTypeFatigue        AlertType = "fatigue"
	AlertTypeDistraction    AlertType = "distraction"
	AlertTypeBreakReminder  AlertType = "break_reminder"
)

// String returns the string representation of AlertType
func (t AlertType) String() string {
	return string(t)
}

// AlertLevel represents the severity reported with an alert event
type AlertLevel string

const (
	AlertLevelLow      AlertLevel = "low"
	AlertLevelMedium   AlertLevel = "medium"
	AlertLevelHigh     AlertLevel = "high"
	AlertLevelCritical AlertLevel = "critical"
)

// AudioRepeatPolicy controls how often a displayed alert may replay its voice clip
type AudioRepeatPolicy string

const (
	// AudioRepeatEvery replays the clip on every display call.
	AudioRepeatEvery AudioRepeatPolicy = "every"
	// AudioRepeatOncePerAlert plays at most once per alert id until the alert closes.
	AudioRepeatOncePerAlert AudioRepeatPolicy = "once_per_alert"
	// AudioRepeatNever never replays after the first play, repetition updates included.
	AudioRepeatNever AudioRepeatPolicy = "never"
)

// CustomAction identifies the non-default controls an alert type carries
type CustomAction string

const (
	ActionSnoozeBreak CustomAction = "snooze_break"
	ActionTakeBreak   CustomAction = "take_break"
)

// TypeDescriptor resolves an alert type to its behavioral traits once, so the
// engine does not scatter type-string comparisons through the pipeline.
type TypeDescriptor struct {
	Type              AlertType
	RequiresDelayGate bool
	AutoPause         bool
	AudioRepeat       AudioRepeatPolicy
	CustomActions     []CustomAction
}

var typeDescriptors = map[AlertType]TypeDescriptor{
	AlertTypeDriverAbsent: {
		Type:              AlertTypeDriverAbsent,
		RequiresDelayGate: true,
		AutoPause:         true,
		AudioRepeat:       AudioRepeatOncePerAlert,
	},
	AlertTypeMultiplePeople: {
		Type:              AlertTypeMultiplePeople,
		RequiresDelayGate: true,
		AutoPause:         true,
		AudioRepeat:       AudioRepeatOncePerAlert,
	},
	AlertTypeCameraOccluded: {
		Type:              AlertTypeCameraOccluded,
		RequiresDelayGate: true,
		// Occlusion audio is rate-limited at the source, so repetition
		// updates never replay it.
		AudioRepeat: AudioRepeatNever,
	},
	AlertTypeBreakReminder: {
		Type:          AlertTypeBreakReminder,
		AudioRepeat:   AudioRepeatEvery,
		CustomActions: []CustomAction{ActionSnoozeBreak, ActionTakeBreak},
	},
}

// DescriptorFor returns the descriptor for an alert type, falling back to a
// plain descriptor for unknown types.
func DescriptorFor(t AlertType) TypeDescriptor {
	if d, ok := typeDescriptors[t]; ok {
		return d
	}
	return TypeDescriptor{Type: t, AudioRepeat: AudioRepeatEvery}
}

// IsCritical reports whether the type participates in delay gating and pause escalation
func (t AlertType) IsCritical() bool {
	switch t {
	case AlertTypeDriverAbsent, AlertTypeMultiplePeople, AlertTypeCameraOccluded:
		return true
	default:
		return false
	}
}

// ExerciseInfo describes the corrective exercise attached to an alert event
type ExerciseInfo struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

// AlertMetadata is the free-form payload the backend attaches to alert events
type AlertMetadata struct {
	Level           AlertLevel `json:"level,omitempty"`
	DetectionTime   float64    `json:"detection_time,omitempty"`
	DetectionDelay  *float64   `json:"detection_delay,omitempty"`
	VoiceClip       string     `json:"voice_clip,omitempty"`
	RepetitionCount int        `json:"repetition_count,omitempty"`
}

// Alert is a single alert event consumed from the push feed
type Alert struct {
	ID        string        `json:"id"`
	Type      AlertType     `json:"type"`
	Level     AlertLevel    `json:"level,omitempty"`
	Message   string        `json:"message,omitempty"`
	Metadata  AlertMetadata `json:"metadata,omitempty"`
	Exercise  *ExerciseInfo `json:"exercise,omitempty"`
	VoiceClip string        `json:"voice_clip,omitempty"`
	// Backend playback hints (see get_next_alert in the session service)
	PlayAudio   *bool   `json:"play_audio,omitempty"`
	RepeatCount    int     `json:"repeat_count,omitempty"`
	NextDueIn      float64 `json:"next_due_in_seconds,omitempty"`
	LastRepeatedAt string  `json:"last_repeated_at,omitempty"`
	TriggeredAt    string  `json:"triggered_at,omitempty"`
}

// EffectiveLevel prefers the metadata level over the top-level field
func (a *Alert) EffectiveLevel() AlertLevel {
	if a.Metadata.Level != "" {
		return a.Metadata.Level
	}
	if a.Level != "" {
		return a.Level
	}
	return AlertLevelMedium
}

// EffectiveVoiceClip prefers the metadata clip, then the event clip
func (a *Alert) EffectiveVoiceClip(configDefault string) string {
	if a.Metadata.VoiceClip != "" {
		return a.Metadata.VoiceClip
	}
	if a.VoiceClip != "" {
		return a.VoiceClip
	}
	return configDefault
}

// EffectiveRepetition merges the two places the backend reports repetitions
func (a *Alert) EffectiveRepetition() int {
	if a.Metadata.RepetitionCount > a.RepeatCount {
		return a.Metadata.RepetitionCount
	}
	return a.RepeatCount
}

// AlertConfig is the cached per-type display configuration
type AlertConfig struct {
	Title            string        `json:"title"`
	Message          string        `json:"message"`
	CooldownSeconds  int           `json:"cooldownSeconds"`
	MaxRepetitions   int           `json:"maxRepetitions"`
	AutoDismiss      bool          `json:"autoDismiss"`
	AutoDismissDelay time.Duration `json:"-"`
	VoiceClip        string        `json:"defaultVoiceClip"`
}

// DefaultAlertConfig is the safe fallback used when the config fetch fails
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		CooldownSeconds:  5,
		MaxRepetitions:   3,
		AutoDismiss:      false,
		AutoDismissDelay: 5 * time.Second,
	}
}

// AlertStyle is the static per-type presentation applied to rendered alerts
type AlertStyle struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var alertStyles = map[AlertType]AlertStyle{
	AlertTypeDriverAbsent:   {Icon: "user-slash", Color: "#dc3545"},
	AlertTypeMultiplePeople: {Icon: "users", Color: "#dc3545"},
	AlertTypeCameraOccluded: {Icon: "video-slash", Color: "#dc3545"},
	AlertTypeMicrosleep:     {Icon: "bed", Color: "#fd7e14"},
	AlertTypeFatigue:        {Icon: "eye", Color: "#fd7e14"},
	AlertTypeDistraction:    {Icon: "arrows-alt", Color: "#ffc107"},
	AlertTypeBreakReminder:  {Icon: "mug-hot", Color: "#0d6efd"},
}

var defaultStyle = AlertStyle{Icon: "bell", Color: "#6c757d"}

// StyleFor returns the deterministic style for a type/level pair. Unknown
// types get the default style; high and critical levels override color only.
func StyleFor(t AlertType, level AlertLevel) AlertStyle {
	style, ok := alertStyles[t]
	if !ok {
		style = defaultStyle
	}
	switch level {
	case AlertLevelHigh:
		style.Color = "#fd7e14"
	case AlertLevelCritical:
		style.Color = "#dc3545"
	}
	return style
}
