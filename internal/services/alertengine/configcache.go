package alertengine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/models"
)

// ConfigFetcher retrieves per-type alert configuration from the backend
type ConfigFetcher interface {
	FetchAlertConfig(ctx context.Context, alertType models.AlertType) (models.AlertConfig, error)
}

// ConfigCache memoizes per-type alert configuration for the life of the
// session. Successful fetches are cached forever; failed fetches fall back
// to the safe default without populating the cache, so a later alert of the
// same type retries.
type ConfigCache struct {
	mu      sync.Mutex
	cfg     *config.Config
	fetcher ConfigFetcher
	cache   map[models.AlertType]models.AlertConfig
	logger  zerolog.Logger
}

// NewConfigCache creates an empty cache over the given fetcher
func NewConfigCache(cfg *config.Config, fetcher ConfigFetcher, logger zerolog.Logger) *ConfigCache {
	return &ConfigCache{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   make(map[models.AlertType]models.AlertConfig),
		logger:  logger,
	}
}

// Resolve returns the cached config for a type, fetching on miss. A fetch
// failure is recovered locally with the default config.
func (c *ConfigCache) Resolve(ctx context.Context, alertType models.AlertType) models.AlertConfig {
	c.mu.Lock()
	if cached, ok := c.cache[alertType]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	fetched, err := c.fetcher.FetchAlertConfig(ctx, alertType)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("alert_type", alertType.String()).
			Msg("Alert config fetch failed, using defaults")
		fallback := models.DefaultAlertConfig()
		fallback.CooldownSeconds = int(c.cfg.DefaultCooldown.Seconds())
		fallback.MaxRepetitions = c.cfg.DefaultMaxRepetitions
		fallback.AutoDismissDelay = c.cfg.AutoDismissDelay
		return fallback
	}

	if fetched.AutoDismissDelay == 0 {
		fetched.AutoDismissDelay = c.cfg.AutoDismissDelay
	}

	c.mu.Lock()
	c.cache[alertType] = fetched
	c.mu.Unlock()
	return fetched
}

// Clear drops all cached configuration
func (c *ConfigCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[models.AlertType]models.AlertConfig)
}
