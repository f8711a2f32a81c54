package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"visionpulse-notifier-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("notifier_id", cfg.NotifierID).Str("service", service).Logger()
}

func WithAlert(base zerolog.Logger, alertID string, alertType string) zerolog.Logger {
	return base.With().Str("alert_id", alertID).Str("alert_type", alertType).Logger()
}
