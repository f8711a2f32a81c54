package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	NotifierID  string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Session service (VisionPulse backend)
	BackendURL     string
	CSRFToken      string
	CSRFCookieName string
	CSRFHeaderName string
	RequestTimeout time.Duration

	// Push feed
	FeedPath           string
	FeedReconnectDelay time.Duration

	// NATS (UI broadcast fanout)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// UI broadcast subjects
	UIAlertSubject   string
	UISessionSubject string

	// Alert admission defaults (backend config wins when present)
	DefaultCooldown       time.Duration
	DefaultMaxRepetitions int
	DefaultDetectionDelay float64
	AutoDismissDelay      time.Duration
	SuppressionWindow     time.Duration
	CloseAnimationDelay   time.Duration
	AudioPauseBuffer      time.Duration

	// Audio
	AudioEnabled    bool
	AudioVolume     float64
	AudioSampleRate int
	AudioFadeTime   time.Duration

	// Break reminders
	SnoozeMinutes int

	// Frame relay
	CameraDeviceID int
	FrameWidth     int
	FrameHeight    int
	FrameQuality   int
	UploadInterval time.Duration
	CaptureEnabled bool

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		NotifierID:  getEnv("NOTIFIER_ID", "notifier-1"),
		Port:        getEnvInt("PORT", 8600),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8081),

		// Session service
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8000"),
		CSRFToken:      getEnv("CSRF_TOKEN", ""),
		CSRFCookieName: getEnv("CSRF_COOKIE_NAME", "csrftoken"),
		CSRFHeaderName: getEnv("CSRF_HEADER_NAME", "X-CSRFToken"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 0), // 0 = no per-request timeout

		// Push feed
		FeedPath:           getEnv("FEED_PATH", "/monitoring/api/alerts/stream/"),
		FeedReconnectDelay: getEnvDuration("FEED_RECONNECT_DELAY", 5*time.Second),

		// NATS (configured for Docker Compose setup)
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		// UI broadcast subjects
		UIAlertSubject:   getEnv("UI_ALERT_SUBJECT", "ui.alerts"),
		UISessionSubject: getEnv("UI_SESSION_SUBJECT", "ui.session.status"),

		// Alert admission defaults
		DefaultCooldown:       getEnvDuration("DEFAULT_COOLDOWN", 5*time.Second),
		DefaultMaxRepetitions: getEnvInt("DEFAULT_MAX_REPETITIONS", 3),
		DefaultDetectionDelay: getEnvFloat("DEFAULT_DETECTION_DELAY", 5.0),
		AutoDismissDelay:      getEnvDuration("AUTO_DISMISS_DELAY", 5*time.Second),
		SuppressionWindow:     getEnvDuration("SUPPRESSION_WINDOW", 4500*time.Millisecond),
		CloseAnimationDelay:   getEnvDuration("CLOSE_ANIMATION_DELAY", 300*time.Millisecond),
		AudioPauseBuffer:      getEnvDuration("AUDIO_PAUSE_BUFFER", 200*time.Millisecond),

		// Audio
		AudioEnabled:    getEnvBool("AUDIO_ENABLED", true),
		AudioVolume:     getEnvFloat("AUDIO_VOLUME", 1.0),
		AudioSampleRate: getEnvInt("AUDIO_SAMPLE_RATE", 44100),
		AudioFadeTime:   getEnvDuration("AUDIO_FADE_TIME", 100*time.Millisecond),

		// Break reminders
		SnoozeMinutes: getEnvInt("SNOOZE_MINUTES", 5),

		// Frame relay
		CameraDeviceID: getEnvInt("CAMERA_DEVICE_ID", 0),
		FrameWidth:     getEnvInt("FRAME_WIDTH", 640),
		FrameHeight:    getEnvInt("FRAME_HEIGHT", 480),
		FrameQuality:   getEnvInt("FRAME_QUALITY", 80),
		UploadInterval: getEnvDuration("UPLOAD_INTERVAL", 500*time.Millisecond),
		CaptureEnabled: getEnvBool("CAPTURE_ENABLED", false),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
