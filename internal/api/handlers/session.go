package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/models"
	"visionpulse-notifier-go/internal/services/alertengine"
	"visionpulse-notifier-go/internal/services/framerelay"
)

type SessionHandler struct {
	engine  *alertengine.Engine
	relay   *framerelay.Relay
	session models.SessionState
}

func NewSessionHandler(engine *alertengine.Engine, relay *framerelay.Relay, session models.SessionState) *SessionHandler {
	return &SessionHandler{engine: engine, relay: relay, session: session}
}

type SessionStatusResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Active    bool   `json:"active"`
	Paused    bool   `json:"is_paused"`
	OnBreak   bool   `json:"on_break"`
}

type PauseBody struct {
	Reason   string `json:"reason"`
	Exercise bool   `json:"exercise"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// @Summary Session status
// @Description Current monitoring session coordination flags
// @Tags session
// @Produce json
// @Success 200 {object} SessionStatusResponse
// @Router /session/status [get]
func (h *SessionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusSnapshot())
}

// @Summary Start monitoring
// @Description Start a monitoring session and, if enabled, camera frame relay
// @Tags session
// @Produce json
// @Success 200 {object} SessionStatusResponse
// @Failure 409 {object} ErrorResponse
// @Router /session/start [post]
func (h *SessionHandler) Start(c *gin.Context) {
	if err := h.relay.Start(c.Request.Context()); err != nil {
		logging.Error(c).Err(err).Msg("Session start failed")
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.statusSnapshot())
}

// @Summary Stop monitoring
// @Description End the monitoring session
// @Tags session
// @Produce json
// @Success 200 {object} SessionStatusResponse
// @Failure 409 {object} ErrorResponse
// @Router /session/stop [post]
func (h *SessionHandler) Stop(c *gin.Context) {
	if err := h.relay.Stop(c.Request.Context()); err != nil {
		logging.Error(c).Err(err).Msg("Session stop failed")
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.statusSnapshot())
}

// @Summary Pause monitoring
// @Description Pause the session; with exercise=true displayed alerts stay up
// @Tags session
// @Accept json
// @Produce json
// @Param request body PauseBody false "Pause options"
// @Success 200 {object} SessionStatusResponse
// @Failure 502 {object} ErrorResponse
// @Router /session/pause [post]
func (h *SessionHandler) Pause(c *gin.Context) {
	var body PauseBody
	_ = c.ShouldBindJSON(&body)

	var err error
	if body.Exercise {
		err = h.engine.PauseForExercise()
	} else {
		err = h.engine.Pause(body.Reason)
	}
	if err != nil {
		logging.Error(c).Err(err).Msg("Session pause failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.statusSnapshot())
}

// @Summary Resume monitoring
// @Description Resume from pause with a clean alert slate
// @Tags session
// @Produce json
// @Success 200 {object} SessionStatusResponse
// @Failure 502 {object} ErrorResponse
// @Router /session/resume [post]
func (h *SessionHandler) Resume(c *gin.Context) {
	if err := h.engine.Resume(); err != nil {
		logging.Error(c).Err(err).Msg("Session resume failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.statusSnapshot())
}

func (h *SessionHandler) statusSnapshot() SessionStatusResponse {
	return SessionStatusResponse{
		SessionID: h.session.SessionID(),
		Active:    h.session.MonitoringActive(),
		Paused:    h.session.Paused(),
		OnBreak:   h.session.OnBreak(),
	}
}
