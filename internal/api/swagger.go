package api

import (
	"net/http"

	_ "visionpulse-notifier-go/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "VisionPulse Notifier API",
			"version":     s.config.Version,
			"description": "Client-side alert notification engine: alert feed gating, voice playback, and monitoring session coordination",
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":  "/health",
				"info":    "/",
				"session": "/session",
				"alerts":  "/alerts",
				"audio":   "/audio",
			},
			"notifier_id": s.config.NotifierID,
			"port":        s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
