package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"visionpulse-notifier-go/internal/api/handlers"
	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/models"
	"visionpulse-notifier-go/internal/services/alertengine"
	"visionpulse-notifier-go/internal/services/framerelay"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler  *handlers.HealthHandler
	sessionHandler *handlers.SessionHandler
	alertsHandler  *handlers.AlertsHandler
	audioHandler   *handlers.AudioHandler
}

func NewServer(cfg *config.Config, engine *alertengine.Engine, relay *framerelay.Relay, session models.SessionState, player models.AudioPlayer) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:         cfg,
		router:         router,
		healthHandler:  handlers.NewHealthHandler(cfg),
		sessionHandler: handlers.NewSessionHandler(engine, relay, session),
		alertsHandler:  handlers.NewAlertsHandler(engine),
		audioHandler:   handlers.NewAudioHandler(player),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) Start() error {
	fmt.Printf("🚀 Starting VisionPulse Notifier API on port %d\n", s.config.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	fmt.Println("🛑 Stopping VisionPulse Notifier API...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) GetServer() *http.Server {
	return s.server
}
