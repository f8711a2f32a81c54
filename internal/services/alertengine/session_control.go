package alertengine

import (
	"context"
	"fmt"
	"time"

	"visionpulse-notifier-go/internal/backend"
	"visionpulse-notifier-go/internal/models"
)

var pauseReasons = map[models.AlertType]string{
	models.AlertTypeDriverAbsent:   "user_absent",
	models.AlertTypeMultiplePeople: "multiple_people",
}

// AutoPause escalates an unresolved critical alert into a session pause.
// The backend call runs first so local state only flips once the server
// accepted the pause.
func (e *Engine) AutoPause(trigger models.AlertType) {
	reason, ok := pauseReasons[trigger]
	if !ok {
		reason = trigger.String()
	}

	resp, err := e.backend.PauseSession(context.Background(), backend.PauseRequest{
		Reason:    reason,
		AutoPause: true,
	})
	if err != nil {
		e.logger.Error().Err(err).
			Str("trigger", trigger.String()).
			Msg("Auto-pause request failed")
		return
	}

	e.clearDelayWait()
	e.closeAllAlerts(false)
	e.player.Stop()
	e.player.ClearAllRepeats()
	e.clearAllPlayed()

	// Stale feed deliveries of the trigger type can trail the pause; a short
	// suppression window keeps them from re-displaying on resume.
	e.states.Suppress(trigger, e.cfg.SuppressionWindow)

	e.session.SetPaused(true)

	e.logger.Info().
		Str("trigger", trigger.String()).
		Str("reason", reason).
		Msg("⏸️ Session auto-paused")

	e.broadcastStatus(resp.Message)
}

// PauseForExercise pauses monitoring while the user runs a corrective
// exercise. Displayed alerts stay up so the exercise card remains visible.
func (e *Engine) PauseForExercise() error {
	resp, err := e.backend.PauseSession(context.Background(), backend.PauseRequest{
		Reason: "exercise",
	})
	if err != nil {
		return fmt.Errorf("exercise pause: %w", err)
	}

	e.player.Stop()
	e.session.SetPaused(true)
	e.logger.Info().Msg("Session paused for exercise")
	e.broadcastStatus(resp.Message)
	return nil
}

// Pause handles a manual pause request from the UI
func (e *Engine) Pause(reason string) error {
	resp, err := e.backend.PauseSession(context.Background(), backend.PauseRequest{Reason: reason})
	if err != nil {
		return fmt.Errorf("pause session: %w", err)
	}

	e.clearDelayWait()
	e.player.Stop()
	e.player.ClearAllRepeats()
	e.session.SetPaused(true)
	e.logger.Info().Str("reason", reason).Msg("⏸️ Session paused")
	e.broadcastStatus(resp.Message)
	return nil
}

// Resume returns the session to active monitoring with a clean slate: every
// displayed alert, parked delivery, audio repeat and hysteresis timer from
// before the pause is discarded.
func (e *Engine) Resume() error {
	resp, err := e.backend.ResumeSession(context.Background())
	if err != nil {
		return fmt.Errorf("resume session: %w", err)
	}

	e.clearDelayWait()
	e.player.Stop()
	e.player.ClearAllRepeats()
	e.closeAllAlerts(false)
	e.states.ResetAll()
	e.clearAllPlayed()

	e.session.SetPaused(false)
	e.session.SetOnBreak(false)
	e.session.ResetHysteresis()

	e.logger.Info().Msg("▶️ Session resumed")
	e.broadcastStatus(resp.Message)
	return nil
}

// BulkClear dismisses everything at once and permanently stops the alert
// feed for the rest of the process lifetime. Used when the user ends
// notification handling entirely.
func (e *Engine) BulkClear() error {
	if e.feed != nil {
		e.feed.Close()
	}

	if err := e.backend.CleanupAlerts(context.Background()); err != nil {
		e.logger.Warn().Err(err).Msg("Server-side alert cleanup failed")
	}

	e.clearDelayWait()
	e.player.Stop()
	e.player.ClearAllRepeats()
	e.closeAllAlerts(true)
	e.states.ResetAll()
	e.configs.Clear()
	e.clearAllPlayed()

	e.logger.Info().Msg("🧹 All alerts cleared, feed closed")
	return nil
}

// SnoozeBreak postpones the current break reminder and dismisses its alert.
// When the backend reports the next reminder time, a local replay of the
// reminder clip is armed for that moment; Resume, pause and bulk clear cancel
// it through ClearAllRepeats.
func (e *Engine) SnoozeBreak(alertID string) error {
	entry, displayed := e.registry.Get(alertID)

	resp, err := e.backend.SnoozeBreak(context.Background(), e.cfg.SnoozeMinutes)
	if err != nil {
		return fmt.Errorf("snooze break: %w", err)
	}

	e.Dismiss(alertID, true)

	if displayed && resp.NextReminderInSecond > 0 && entry.Config.VoiceClip != "" {
		clip := entry.Config.VoiceClip
		e.player.ScheduleRepeat(time.Duration(resp.NextReminderInSecond)*time.Second, func() {
			if !e.session.MonitoringActive() || e.session.Paused() || e.session.OnBreak() {
				return
			}
			if _, err := e.player.Play(context.Background(), clip); err != nil {
				e.logger.Warn().Err(err).Msg("Snooze reminder playback failed")
			}
		})
	}

	e.logger.Info().
		Str("alert_id", alertID).
		Int("minutes", e.cfg.SnoozeMinutes).
		Msg("Break snoozed")
	e.broadcastStatus(resp.Message)
	return nil
}

// TakeBreak acknowledges the break reminder and flags the session on-break
func (e *Engine) TakeBreak(alertID string) error {
	if err := e.backend.MarkBreakTaken(context.Background()); err != nil {
		return fmt.Errorf("mark break taken: %w", err)
	}

	e.Dismiss(alertID, true)
	e.session.SetOnBreak(true)
	e.logger.Info().Str("alert_id", alertID).Msg("☕ Break started")
	e.broadcastStatus("")
	return nil
}

// closeAllAlerts tears down every displayed alert. Animated closes still run
// through the per-alert dismiss path; force closes skip the transition.
func (e *Engine) closeAllAlerts(animated bool) {
	for _, id := range e.registry.IDs() {
		e.Dismiss(id, animated)
	}
}

func (e *Engine) broadcastStatus(message string) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.BroadcastStatus(models.SessionStatus{
		SessionID: e.session.SessionID(),
		Active:    e.session.MonitoringActive(),
		Paused:    e.session.Paused(),
		OnBreak:   e.session.OnBreak(),
		Message:   message,
		Timestamp: e.clock(),
	})
}
