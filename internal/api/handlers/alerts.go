package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/services/alertengine"
)

type AlertsHandler struct {
	engine *alertengine.Engine
}

func NewAlertsHandler(engine *alertengine.Engine) *AlertsHandler {
	return &AlertsHandler{engine: engine}
}

type ActiveAlertsResponse struct {
	Count  int      `json:"count"`
	Alerts []string `json:"alerts"`
}

type AckResponse struct {
	Status string `json:"status" example:"ok"`
}

// @Summary Active alerts
// @Description List the ids of currently displayed alerts
// @Tags alerts
// @Produce json
// @Success 200 {object} ActiveAlertsResponse
// @Router /alerts [get]
func (h *AlertsHandler) Active(c *gin.Context) {
	ids := h.engine.Registry().IDs()
	c.JSON(http.StatusOK, ActiveAlertsResponse{Count: len(ids), Alerts: ids})
}

// @Summary Dismiss an alert
// @Description Close one displayed alert with its close animation
// @Tags alerts
// @Produce json
// @Param id path string true "Alert id"
// @Success 200 {object} AckResponse
// @Router /alerts/{id} [delete]
func (h *AlertsHandler) Dismiss(c *gin.Context) {
	h.engine.Dismiss(c.Param("id"), true)
	c.JSON(http.StatusOK, AckResponse{Status: "ok"})
}

// @Summary Clear all alerts
// @Description Dismiss every alert and permanently stop the alert feed
// @Tags alerts
// @Produce json
// @Success 200 {object} AckResponse
// @Failure 502 {object} ErrorResponse
// @Router /alerts/clear [post]
func (h *AlertsHandler) Clear(c *gin.Context) {
	if err := h.engine.BulkClear(); err != nil {
		logging.Error(c).Err(err).Msg("Bulk clear failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, AckResponse{Status: "ok"})
}

// @Summary Snooze break reminder
// @Description Postpone the break reminder and dismiss its alert
// @Tags alerts
// @Produce json
// @Param id path string true "Alert id"
// @Success 200 {object} AckResponse
// @Failure 502 {object} ErrorResponse
// @Router /alerts/{id}/snooze [post]
func (h *AlertsHandler) Snooze(c *gin.Context) {
	if err := h.engine.SnoozeBreak(c.Param("id")); err != nil {
		logging.Error(c).Err(err).Msg("Snooze failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, AckResponse{Status: "ok"})
}

// @Summary Take a break
// @Description Acknowledge the break reminder and flag the session on-break
// @Tags alerts
// @Produce json
// @Param id path string true "Alert id"
// @Success 200 {object} AckResponse
// @Failure 502 {object} ErrorResponse
// @Router /alerts/{id}/take-break [post]
func (h *AlertsHandler) TakeBreak(c *gin.Context) {
	if err := h.engine.TakeBreak(c.Param("id")); err != nil {
		logging.Error(c).Err(err).Msg("Take break failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, AckResponse{Status: "ok"})
}
