package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visionpulse-notifier-go/internal/models"
)

type AudioHandler struct {
	player models.AudioPlayer
}

func NewAudioHandler(player models.AudioPlayer) *AudioHandler {
	return &AudioHandler{player: player}
}

type AudioSettingsBody struct {
	Enabled *bool    `json:"enabled,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
}

type AudioSettingsResponse struct {
	Enabled bool `json:"enabled"`
}

// @Summary Audio settings
// @Description Current audio playback settings
// @Tags audio
// @Produce json
// @Success 200 {object} AudioSettingsResponse
// @Router /audio [get]
func (h *AudioHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, AudioSettingsResponse{Enabled: h.player.Enabled()})
}

// @Summary Update audio settings
// @Description Enable/disable playback and adjust volume
// @Tags audio
// @Accept json
// @Produce json
// @Param request body AudioSettingsBody true "Settings"
// @Success 200 {object} AudioSettingsResponse
// @Failure 400 {object} ErrorResponse
// @Router /audio [post]
func (h *AudioHandler) Update(c *gin.Context) {
	var body AudioSettingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if body.Enabled != nil {
		h.player.SetEnabled(*body.Enabled)
		if !*body.Enabled {
			h.player.Stop()
		}
	}
	if body.Volume != nil {
		h.player.SetVolume(*body.Volume)
	}

	c.JSON(http.StatusOK, AudioSettingsResponse{Enabled: h.player.Enabled()})
}
