package alertengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visionpulse-notifier-go/internal/backend"
	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/models"
)

// placeholderID is the unresolved-marker value the upstream feed emits
// before the backend assigns a real identifier. Such records must never be
// treated as distinct alerts.
const placeholderID = "undefined"

// SessionBackend is the slice of the session service the engine drives
type SessionBackend interface {
	ConfigFetcher
	PauseSession(ctx context.Context, req backend.PauseRequest) (backend.SessionResponse, error)
	ResumeSession(ctx context.Context) (backend.SessionResponse, error)
	SnoozeBreak(ctx context.Context, minutes int) (backend.SnoozeResponse, error)
	MarkBreakTaken(ctx context.Context) error
	NotifyAlertPlayed(ctx context.Context, alertID string) error
	AcknowledgeAlert(ctx context.Context, alertID string) error
	CleanupAlerts(ctx context.Context) error
}

// StatusBroadcaster pushes session status snapshots to the UI surfaces
type StatusBroadcaster interface {
	BroadcastStatus(status models.SessionStatus)
}

// FeedCloser is the teardown hook into the event feed
type FeedCloser interface {
	Close()
}

// delayWaitEntry parks a critical alert whose detection delay is unmet
type delayWaitEntry struct {
	Type           models.AlertType
	FirstSeenAt    time.Time
	Alert          models.Alert
	DetectionTime  float64
	DetectionDelay float64
}

// Engine consumes alert events, applies the display-gating state machine and
// drives UI, audio and session-control side effects.
type Engine struct {
	cfg         *config.Config
	backend     SessionBackend
	renderer    models.AlertRenderer
	player      models.AudioPlayer
	session     models.SessionState
	broadcaster StatusBroadcaster
	feed        FeedCloser

	registry *Registry
	states   *StateTracker
	configs  *ConfigCache
	logger   zerolog.Logger

	mu         sync.Mutex
	delayWait  map[string]delayWaitEntry
	playedOnce map[string]struct{}

	clock func() time.Time
	wait  func(d time.Duration)
}

// NewEngine wires the engine; broadcaster and feed may be set later via
// SetBroadcaster / SetFeed because they reference the engine themselves.
func NewEngine(cfg *config.Config, sb SessionBackend, renderer models.AlertRenderer, player models.AudioPlayer, session models.SessionState) *Engine {
	logger := logging.NewServiceLogger(cfg, "alertengine")
	return &Engine{
		cfg:        cfg,
		backend:    sb,
		renderer:   renderer,
		player:     player,
		session:    session,
		registry:   NewRegistry(),
		states:     NewStateTracker(),
		configs:    NewConfigCache(cfg, sb, logger),
		logger:     logger,
		delayWait:  make(map[string]delayWaitEntry),
		playedOnce: make(map[string]struct{}),
		clock:      time.Now,
		wait:       time.Sleep,
	}
}

// SetBroadcaster injects the status fanout
func (e *Engine) SetBroadcaster(b StatusBroadcaster) { e.broadcaster = b }

// SetFeed injects the feed teardown hook
func (e *Engine) SetFeed(f FeedCloser) { e.feed = f }

// Registry exposes the displayed-alert set (read paths for API handlers)
func (e *Engine) Registry() *Registry { return e.registry }

// HandleEvent processes one incoming alert event through the full
// display-gating pipeline.
func (e *Engine) HandleEvent(alert models.Alert) {
	if !e.session.MonitoringActive() || e.session.Paused() {
		e.logger.Debug().
			Str("alert_id", alert.ID).
			Bool("paused", e.session.Paused()).
			Msg("Dropping alert, session inactive or paused")
		return
	}

	if alert.ID == "" || alert.ID == placeholderID {
		e.logger.Warn().Str("alert_type", alert.Type.String()).Msg("Rejecting alert without a real id")
		return
	}

	// Existing displayed entry routes to update, not re-display
	if entry, ok := e.registry.Get(alert.ID); ok {
		e.updateDisplayed(alert, entry)
		return
	}

	desc := models.DescriptorFor(alert.Type)

	// Suppression short-circuits before the delay gate is evaluated
	if e.states.IsSuppressed(alert.Type) {
		e.logger.Debug().
			Str("alert_id", alert.ID).
			Str("alert_type", alert.Type.String()).
			Msg("Alert suppressed")
		return
	}

	if desc.RequiresDelayGate && !e.delayGatePassed(alert) {
		return
	}

	cfg := e.configs.Resolve(context.Background(), alert.Type)

	if !e.canShow(alert.Type, cfg) {
		return
	}

	// An identical id may have been admitted by a concurrent delivery while
	// this one awaited the config fetch
	if entry, ok := e.registry.Get(alert.ID); ok {
		e.updateDisplayed(alert, entry)
		return
	}

	e.display(alert, cfg, desc)
}

// delayGatePassed applies the detection-delay gate to critical types. A
// delay of exactly zero means the upstream already handled timing.
func (e *Engine) delayGatePassed(alert models.Alert) bool {
	delay := e.cfg.DefaultDetectionDelay
	if alert.Metadata.DetectionDelay != nil {
		delay = *alert.Metadata.DetectionDelay
	}

	if delay <= 0 {
		e.removeDelayWait(alert.ID)
		return true
	}

	if alert.Metadata.DetectionTime < delay {
		e.mu.Lock()
		entry, exists := e.delayWait[alert.ID]
		if !exists {
			entry = delayWaitEntry{Type: alert.Type, FirstSeenAt: e.clock()}
		}
		entry.Alert = alert
		entry.DetectionTime = alert.Metadata.DetectionTime
		entry.DetectionDelay = delay
		e.delayWait[alert.ID] = entry
		e.mu.Unlock()

		e.logger.Debug().
			Str("alert_id", alert.ID).
			Str("alert_type", alert.Type.String()).
			Float64("detection_time", alert.Metadata.DetectionTime).
			Float64("detection_delay", delay).
			Msg("Alert held in delay-wait")
		return false
	}

	// Leaving delay-wait removes the entry before continuing
	e.removeDelayWait(alert.ID)
	return true
}

func (e *Engine) removeDelayWait(alertID string) {
	e.mu.Lock()
	delete(e.delayWait, alertID)
	e.mu.Unlock()
}

// DelayWaitCount reports the number of parked alerts
func (e *Engine) DelayWaitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.delayWait)
}

// canShow applies admission control: cooldown first, then the hourly
// repetition cap.
func (e *Engine) canShow(alertType models.AlertType, cfg models.AlertConfig) bool {
	now := e.clock()

	if last := e.states.LastShown(alertType); !last.IsZero() {
		cooldown := time.Duration(cfg.CooldownSeconds) * time.Second
		if now.Sub(last) < cooldown {
			e.logger.Debug().
				Str("alert_type", alertType.String()).
				Dur("since_last", now.Sub(last)).
				Dur("cooldown", cooldown).
				Msg("Alert blocked by cooldown")
			return false
		}
	}

	if shown := e.states.CountWithin(alertType, time.Hour); shown >= cfg.MaxRepetitions {
		e.logger.Debug().
			Str("alert_type", alertType.String()).
			Int("shown_last_hour", shown).
			Int("max_repetitions", cfg.MaxRepetitions).
			Msg("Alert blocked by hourly repetition cap")
		return false
	}

	return true
}

// markPlayed records the once-per-alert audio marker. Returns false when the
// id already played.
func (e *Engine) markPlayed(alertID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, done := e.playedOnce[alertID]; done {
		return false
	}
	e.playedOnce[alertID] = struct{}{}
	return true
}

func (e *Engine) clearPlayed(alertID string) {
	e.mu.Lock()
	delete(e.playedOnce, alertID)
	e.mu.Unlock()
}

func (e *Engine) clearAllPlayed() {
	e.mu.Lock()
	e.playedOnce = make(map[string]struct{})
	e.mu.Unlock()
}

func (e *Engine) clearDelayWait() {
	e.mu.Lock()
	e.delayWait = make(map[string]delayWaitEntry)
	e.mu.Unlock()
}
