package framerelay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visionpulse-notifier-go/internal/backend"
	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/models"
)

// SessionClient is the slice of the backend client the relay drives
type SessionClient interface {
	StartSession(ctx context.Context) (backend.SessionResponse, error)
	StopSession(ctx context.Context, sessionID string) (backend.SessionResponse, error)
	UploadFrame(ctx context.Context, sessionID string, imageB64 string) (models.FrameMetrics, error)
}

// Relay owns the session lifecycle and ships captured frames to the backend.
// Lifecycle commands are serialized: a start while active or a stop while
// inactive is a rejected no-op, never a second session.
type Relay struct {
	cfg       *config.Config
	client    SessionClient
	session   models.SessionState
	publisher models.MessagePublisher
	logger    zerolog.Logger

	mu      sync.Mutex
	capture *capture
	metrics models.FrameMetrics
}

// NewRelay creates the frame relay
func NewRelay(cfg *config.Config, client SessionClient, session models.SessionState, publisher models.MessagePublisher) *Relay {
	return &Relay{
		cfg:       cfg,
		client:    client,
		session:   session,
		publisher: publisher,
		logger:    logging.NewServiceLogger(cfg, "framerelay"),
	}
}

// Start opens a monitoring session and, when capture is enabled, begins the
// camera upload loop.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.MonitoringActive() {
		return fmt.Errorf("session already active")
	}

	resp, err := r.client.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	r.session.SetSessionID(resp.SessionID)
	r.session.SetMonitoringActive(true)
	r.session.SetPaused(false)
	r.session.SetOnBreak(false)
	r.session.ResetHysteresis()

	if r.cfg.CaptureEnabled {
		cap := newCapture(r.cfg, r)
		if err := cap.start(); err != nil {
			r.logger.Warn().Err(err).Msg("Camera capture unavailable, session continues without frame upload")
		} else {
			r.capture = cap
		}
	}

	r.logger.Info().
		Str("session_id", resp.SessionID).
		Bool("capture", r.capture != nil).
		Msg("🎥 Monitoring session started")

	r.broadcastStatus(resp.Message)
	return nil
}

// Stop ends the monitoring session and the capture loop
func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.session.MonitoringActive() {
		return fmt.Errorf("no active session")
	}

	if r.capture != nil {
		r.capture.stop()
		r.capture = nil
	}

	sessionID := r.session.SessionID()
	resp, err := r.client.StopSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("stop session: %w", err)
	}

	r.session.SetMonitoringActive(false)
	r.session.SetPaused(false)
	r.session.SetOnBreak(false)
	r.session.SetSessionID("")
	r.session.ResetHysteresis()

	r.logger.Info().
		Str("session_id", sessionID).
		Int("total_blinks", r.metrics.TotalBlinks).
		Msg("🛑 Monitoring session stopped")

	r.broadcastStatus(resp.Message)
	return nil
}

// Shutdown stops capture without ending the server-side session, for process
// teardown.
func (r *Relay) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture != nil {
		r.capture.stop()
		r.capture = nil
	}
}

// Metrics returns the latest per-frame metrics reported by the backend
func (r *Relay) Metrics() models.FrameMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// handleFrame ships one captured frame. Frames are dropped while paused or
// on break so the backend never analyzes a frozen session.
func (r *Relay) handleFrame(ctx context.Context, imageB64 string) {
	if !r.session.MonitoringActive() || r.session.Paused() || r.session.OnBreak() {
		return
	}

	metrics, err := r.client.UploadFrame(ctx, r.session.SessionID(), imageB64)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Frame upload failed")
		return
	}

	r.mu.Lock()
	r.metrics = metrics
	r.mu.Unlock()
}

func (r *Relay) broadcastStatus(message string) {
	if r.publisher == nil {
		return
	}
	status := models.SessionStatus{
		SessionID:   r.session.SessionID(),
		Active:      r.session.MonitoringActive(),
		Paused:      r.session.Paused(),
		OnBreak:     r.session.OnBreak(),
		AvgEAR:      r.metrics.AvgEAR,
		TotalBlinks: r.metrics.TotalBlinks,
		Message:     message,
		Timestamp:   time.Now(),
	}
	if err := r.publisher.Publish(r.cfg.UISessionSubject, status); err != nil {
		r.logger.Warn().Err(err).Msg("Session status broadcast failed")
	}
}
