package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visionpulse-notifier-go/internal/config"
)

type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

type HealthResponse struct {
	Status     string `json:"status" example:"healthy"`
	NotifierID string `json:"notifier_id" example:"notifier-1"`
}

type NotifierInfoResponse struct {
	NotifierID   string   `json:"notifier_id" example:"notifier-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the notifier is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		NotifierID: h.cfg.NotifierID,
	})
}

// @Summary Notifier information
// @Description Get basic notifier information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} NotifierInfoResponse
// @Router / [get]
func (h *HealthHandler) NotifierInfo(c *gin.Context) {
	c.JSON(http.StatusOK, NotifierInfoResponse{
		NotifierID: h.cfg.NotifierID,
		Status:     "running",
		Version:    h.cfg.Version,
		Capabilities: []string{
			"alert_feed",
			"audio_playback",
			"session_control",
			"frame_relay",
		},
	})
}
