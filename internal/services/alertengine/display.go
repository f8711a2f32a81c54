package alertengine

import (
	"context"
	"time"

	"visionpulse-notifier-go/internal/models"
)

// display builds the UI element for an admitted alert, plays its voice clip
// and arms the follow-up timers. Caller has already passed admission control.
func (e *Engine) display(alert models.Alert, cfg models.AlertConfig, desc models.TypeDescriptor) {
	// Construction lock: a concurrent delivery of the same id must find the
	// id taken before any slow work starts.
	if !e.registry.Lock(alert.ID, alert.Type, cfg) {
		if entry, ok := e.registry.Get(alert.ID); ok {
			e.updateDisplayed(alert, entry)
		}
		return
	}

	title := cfg.Title
	if title == "" {
		title = alert.Type.String()
	}
	message := alert.Message
	if message == "" {
		message = cfg.Message
	}
	level := alert.EffectiveLevel()

	cmd := models.RenderCommand{
		AlertID:   alert.ID,
		Type:      alert.Type,
		Title:     title,
		Message:   message,
		Level:     level,
		Style:     models.StyleFor(alert.Type, level),
		Actions:   desc.CustomActions,
		Exercise:  alert.Exercise,
		Timestamp: e.clock(),
	}

	handle, err := e.renderer.Render(cmd)
	if err != nil {
		e.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("Alert render failed")
		e.registry.Remove(alert.ID)
		return
	}
	if err := e.renderer.Attach(handle); err != nil {
		e.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("Alert attach failed")
		e.registry.Remove(alert.ID)
		return
	}
	if len(desc.CustomActions) > 0 || alert.Exercise != nil {
		if err := e.renderer.BindActions(handle, desc.CustomActions, alert.Exercise); err != nil {
			e.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("Action binding failed")
		}
	}

	showTime := e.clock()
	e.registry.Complete(alert.ID, handle, showTime)
	e.states.RecordShow(alert.Type)
	e.states.SetRepetition(alert.Type, alert.EffectiveRepetition())

	e.logger.Info().
		Str("alert_id", alert.ID).
		Str("alert_type", alert.Type.String()).
		Str("level", string(level)).
		Msg("🔔 Alert displayed")

	audioDur := e.playAlertAudio(alert, cfg, desc)

	if desc.AutoPause {
		go e.escalateAutoPause(alert, audioDur)
	}

	if alert.Exercise == nil && cfg.AutoDismiss {
		go e.autoDismiss(alert.ID, cfg.AutoDismissDelay)
	}
}

// playAlertAudio plays the voice clip for a displayed alert, honoring the
// backend play hint and the per-type repeat policy. Returns the clip
// duration, zero when nothing played.
func (e *Engine) playAlertAudio(alert models.Alert, cfg models.AlertConfig, desc models.TypeDescriptor) time.Duration {
	if alert.PlayAudio != nil && !*alert.PlayAudio {
		return 0
	}

	switch desc.AudioRepeat {
	case models.AudioRepeatOncePerAlert, models.AudioRepeatNever:
		if !e.markPlayed(alert.ID) {
			return 0
		}
	}

	clip := alert.EffectiveVoiceClip(cfg.VoiceClip)
	dur, err := e.player.Play(context.Background(), clip)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("alert_id", alert.ID).
			Str("clip", clip).
			Msg("Voice clip playback failed")
		return 0
	}

	// Play spans a clip fetch; the session can end while it runs. A dead
	// session must not receive the played notification.
	if !e.session.MonitoringActive() {
		return dur
	}

	if err := e.backend.NotifyAlertPlayed(context.Background(), alert.ID); err != nil {
		e.logger.Debug().Err(err).Str("alert_id", alert.ID).Msg("Played notification failed")
	}
	return dur
}

// escalateAutoPause waits out the voice clip plus a small buffer, then
// auto-pauses the session if the alert still stands. A zero duration means
// nothing is playing and escalation proceeds immediately.
func (e *Engine) escalateAutoPause(alert models.Alert, audioDur time.Duration) {
	if audioDur > 0 {
		e.wait(audioDur + e.cfg.AudioPauseBuffer)
	}

	if !e.session.MonitoringActive() || e.session.Paused() {
		return
	}
	if _, ok := e.registry.Get(alert.ID); !ok {
		return
	}

	e.AutoPause(alert.Type)
}

// autoDismiss closes a non-exercise alert after the configured idle delay
func (e *Engine) autoDismiss(alertID string, delay time.Duration) {
	e.wait(delay)
	if _, ok := e.registry.Get(alertID); !ok {
		return
	}
	e.Dismiss(alertID, true)
}

// updateDisplayed refreshes an already visible alert in place. Repetition
// increases flash the element and may replay audio per the type policy.
func (e *Engine) updateDisplayed(alert models.Alert, entry Entry) {
	if entry.InProgress {
		// Element still under construction; the repetition will carry over on
		// the next delivery.
		e.logger.Debug().Str("alert_id", alert.ID).Msg("Update skipped, element mid-construction")
		return
	}

	desc := models.DescriptorFor(alert.Type)
	rep := alert.EffectiveRepetition()
	tracked := e.states.Repetition(alert.Type)

	if rep > tracked {
		e.states.RecordShow(alert.Type)
		e.states.SetRepetition(alert.Type, rep)

		if err := e.renderer.Flash(entry.Handle); err != nil {
			e.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("Alert flash failed")
		}

		if desc.AudioRepeat != models.AudioRepeatNever {
			clip := alert.EffectiveVoiceClip(entry.Config.VoiceClip)
			if _, err := e.player.Play(context.Background(), clip); err != nil {
				e.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("Repeat playback failed")
			}
		}

		e.logger.Info().
			Str("alert_id", alert.ID).
			Str("alert_type", alert.Type.String()).
			Int("repetition", rep).
			Msg("Alert repetition update")
	}

	// Exercise details can arrive on a later delivery than the first render
	if alert.Exercise != nil && entry.Handle != nil && entry.Handle.Exercise == nil {
		if err := e.renderer.BindActions(entry.Handle, desc.CustomActions, alert.Exercise); err != nil {
			e.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("Late action binding failed")
		} else {
			e.registry.BindExercise(alert.ID, alert.Exercise)
		}
	}
}

// Dismiss closes one displayed alert. With animation the element plays its
// close transition before removal; without, it is torn down immediately.
func (e *Engine) Dismiss(alertID string, animated bool) {
	entry, ok := e.registry.Get(alertID)
	if !ok {
		return
	}

	if entry.Handle != nil {
		if err := e.renderer.Dismiss(entry.Handle, animated); err != nil {
			e.logger.Warn().Err(err).Str("alert_id", alertID).Msg("Alert dismiss failed")
		}
		if animated {
			e.wait(e.cfg.CloseAnimationDelay)
		}
	}

	e.registry.Remove(alertID)
	e.clearPlayed(alertID)

	// Occlusion tracking restarts from scratch once its alert closes
	if entry.Type == models.AlertTypeCameraOccluded {
		e.states.ResetType(models.AlertTypeCameraOccluded)
	}

	if err := e.backend.AcknowledgeAlert(context.Background(), alertID); err != nil {
		e.logger.Debug().Err(err).Str("alert_id", alertID).Msg("Acknowledge failed")
	}

	e.logger.Info().Str("alert_id", alertID).Msg("Alert dismissed")
}
