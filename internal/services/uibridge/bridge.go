package uibridge

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/models"
)

// Bridge renders alert UI by broadcasting lifecycle commands to all attached
// UI surfaces over the message bus. Surfaces mirror the command stream into
// their own widget tree; the bridge owns element ids and attachment state.
type Bridge struct {
	cfg       *config.Config
	publisher models.MessagePublisher
	logger    zerolog.Logger
}

// command is the wire shape for UI lifecycle broadcasts
type command struct {
	Op        string                 `json:"op"`
	ElementID string                 `json:"element_id"`
	AlertID   string                 `json:"alert_id"`
	Render    *models.RenderCommand  `json:"render,omitempty"`
	Actions   []models.CustomAction  `json:"actions,omitempty"`
	Exercise  *models.ExerciseInfo   `json:"exercise,omitempty"`
	Animated  bool                   `json:"animated,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewBridge creates a UI bridge over the given publisher
func NewBridge(cfg *config.Config, publisher models.MessagePublisher) (*Bridge, error) {
	if publisher == nil {
		return nil, fmt.Errorf("message publisher is required")
	}
	return &Bridge{
		cfg:       cfg,
		publisher: publisher,
		logger:    logging.NewServiceLogger(cfg, "uibridge"),
	}, nil
}

func (b *Bridge) publish(cmd command) error {
	cmd.Timestamp = time.Now()
	return b.publisher.Publish(b.cfg.UIAlertSubject, cmd)
}

// Render constructs the alert element on all surfaces. The returned handle is
// not yet attached; actions cannot be bound until Attach succeeds.
func (b *Bridge) Render(cmd models.RenderCommand) (*models.RenderedAlert, error) {
	handle := &models.RenderedAlert{
		AlertID:   cmd.AlertID,
		ElementID: "alert-" + cmd.AlertID,
	}

	if err := b.publish(command{
		Op:        "render",
		ElementID: handle.ElementID,
		AlertID:   cmd.AlertID,
		Render:    &cmd,
	}); err != nil {
		return nil, fmt.Errorf("render broadcast: %w", err)
	}

	b.logger.Debug().
		Str("alert_id", cmd.AlertID).
		Str("alert_type", cmd.Type.String()).
		Str("level", string(cmd.Level)).
		Msg("Alert element rendered")

	return handle, nil
}

// Attach inserts the element into the live surface tree
func (b *Bridge) Attach(handle *models.RenderedAlert) error {
	if err := b.publish(command{
		Op:        "attach",
		ElementID: handle.ElementID,
		AlertID:   handle.AlertID,
	}); err != nil {
		return fmt.Errorf("attach broadcast: %w", err)
	}
	handle.Attached = true
	return nil
}

// BindActions wires action controls onto an attached element. Binding before
// attachment is an ordering violation, not a soft failure.
func (b *Bridge) BindActions(handle *models.RenderedAlert, actions []models.CustomAction, exercise *models.ExerciseInfo) error {
	if !handle.Attached {
		return fmt.Errorf("element %s not attached, actions cannot be bound", handle.ElementID)
	}

	if err := b.publish(command{
		Op:        "bind_actions",
		ElementID: handle.ElementID,
		AlertID:   handle.AlertID,
		Actions:   actions,
		Exercise:  exercise,
	}); err != nil {
		return fmt.Errorf("bind broadcast: %w", err)
	}
	handle.Exercise = exercise
	return nil
}

// Flash replays the attention animation on an existing element
func (b *Bridge) Flash(handle *models.RenderedAlert) error {
	return b.publish(command{
		Op:        "flash",
		ElementID: handle.ElementID,
		AlertID:   handle.AlertID,
	})
}

// BroadcastStatus pushes a session status snapshot to all surfaces
func (b *Bridge) BroadcastStatus(status models.SessionStatus) {
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	if err := b.publisher.Publish(b.cfg.UISessionSubject, status); err != nil {
		b.logger.Warn().Err(err).Msg("Session status broadcast failed")
	}
}

// Dismiss removes the element, with or without the close animation
func (b *Bridge) Dismiss(handle *models.RenderedAlert, animated bool) error {
	err := b.publish(command{
		Op:        "dismiss",
		ElementID: handle.ElementID,
		AlertID:   handle.AlertID,
		Animated:  animated,
	})
	if err != nil {
		return fmt.Errorf("dismiss broadcast: %w", err)
	}
	handle.Attached = false
	return nil
}
