package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.NotifierInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	session := s.router.Group("/session")
	{
		session.GET("/status", s.sessionHandler.Status)
		session.POST("/start", s.sessionHandler.Start)
		session.POST("/stop", s.sessionHandler.Stop)
		session.POST("/pause", s.sessionHandler.Pause)
		session.POST("/resume", s.sessionHandler.Resume)
	}

	alerts := s.router.Group("/alerts")
	{
		alerts.GET("", s.alertsHandler.Active)
		alerts.POST("/clear", s.alertsHandler.Clear)
		alerts.DELETE("/:id", s.alertsHandler.Dismiss)
		alerts.POST("/:id/snooze", s.alertsHandler.Snooze)
		alerts.POST("/:id/take-break", s.alertsHandler.TakeBreak)
	}

	audio := s.router.Group("/audio")
	{
		audio.GET("", s.audioHandler.Get)
		audio.POST("", s.audioHandler.Update)
	}
}
