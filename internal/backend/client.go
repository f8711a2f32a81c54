package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/models"
)

// Client talks to the VisionPulse session service. All mutating calls carry
// the CSRF token header; non-2xx responses surface as errors the caller logs
// and treats as soft failures.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a session service client
func NewClient(cfg *config.Config) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Jar:     jar,
		},
		baseURL: strings.TrimRight(cfg.BackendURL, "/"),
		logger:  logging.NewServiceLogger(cfg, "backend"),
	}
}

// csrfToken returns the configured token, falling back to the session cookie
func (c *Client) csrfToken() string {
	if c.cfg.CSRFToken != "" {
		return c.cfg.CSRFToken
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(base) {
		if ck.Name == c.cfg.CSRFCookieName {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.csrfToken(); token != "" {
		req.Header.Set(c.cfg.CSRFHeaderName, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("POST %s: decode response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("GET %s: decode response: %w", path, err)
		}
	}
	return nil
}

// alertConfigResponse mirrors the config endpoint payload
type alertConfigResponse struct {
	Title            string `json:"title"`
	Message          string `json:"message"`
	DefaultVoiceClip string `json:"defaultVoiceClip"`
	CooldownSeconds  *int   `json:"cooldownSeconds"`
	MaxRepetitions   *int   `json:"maxRepetitions"`
	AutoDismiss      *bool  `json:"autoDismiss"`
	AutoDismissDelay *int   `json:"autoDismissDelay"`
}

// FetchAlertConfig retrieves the per-type alert configuration
func (c *Client) FetchAlertConfig(ctx context.Context, alertType models.AlertType) (models.AlertConfig, error) {
	var raw alertConfigResponse
	path := fmt.Sprintf("/monitoring/api/alerts/config/%s/", alertType)
	if err := c.get(ctx, path, &raw); err != nil {
		return models.AlertConfig{}, err
	}

	cfg := models.DefaultAlertConfig()
	cfg.Title = raw.Title
	cfg.Message = raw.Message
	cfg.VoiceClip = raw.DefaultVoiceClip
	if raw.CooldownSeconds != nil {
		cfg.CooldownSeconds = *raw.CooldownSeconds
	}
	if raw.MaxRepetitions != nil {
		cfg.MaxRepetitions = *raw.MaxRepetitions
	}
	if raw.AutoDismiss != nil {
		cfg.AutoDismiss = *raw.AutoDismiss
	}
	if raw.AutoDismissDelay != nil {
		cfg.AutoDismissDelay = msToDuration(*raw.AutoDismissDelay)
	}
	return cfg, nil
}

// PauseRequest is the pause endpoint body
type PauseRequest struct {
	Reason    string `json:"reason,omitempty"`
	AutoPause bool   `json:"auto_pause,omitempty"`
}

// SessionResponse is the common session control response shape
type SessionResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	BlinkCount int    `json:"blink_count,omitempty"`
	IsPaused   bool   `json:"is_paused,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// PauseSession pauses the monitoring session
func (c *Client) PauseSession(ctx context.Context, req PauseRequest) (SessionResponse, error) {
	var resp SessionResponse
	err := c.post(ctx, "/monitoring/api/pause/", req, &resp)
	return resp, err
}

// ResumeSession resumes a paused session
func (c *Client) ResumeSession(ctx context.Context) (SessionResponse, error) {
	var resp SessionResponse
	err := c.post(ctx, "/monitoring/api/resume/", nil, &resp)
	return resp, err
}

// StartSession starts a new monitoring session
func (c *Client) StartSession(ctx context.Context) (SessionResponse, error) {
	var resp SessionResponse
	err := c.post(ctx, "/monitoring/api/start/", nil, &resp)
	return resp, err
}

// StopSession ends the session
func (c *Client) StopSession(ctx context.Context, sessionID string) (SessionResponse, error) {
	var resp SessionResponse
	err := c.post(ctx, "/monitoring/api/stop/", map[string]string{"session_id": sessionID}, &resp)
	return resp, err
}

// SnoozeResponse is returned by the snooze endpoint
type SnoozeResponse struct {
	Status               string `json:"status"`
	Message              string `json:"message,omitempty"`
	NextReminderInSecond int    `json:"next_reminder_in_seconds,omitempty"`
}

// SnoozeBreak postpones the break reminder by the given minutes
func (c *Client) SnoozeBreak(ctx context.Context, minutes int) (SnoozeResponse, error) {
	var resp SnoozeResponse
	err := c.post(ctx, "/monitoring/api/snooze-break/", map[string]int{"minutes": minutes}, &resp)
	return resp, err
}

// MarkBreakTaken records that the user started a break
func (c *Client) MarkBreakTaken(ctx context.Context) error {
	return c.post(ctx, "/monitoring/api/break-taken/", nil, nil)
}

// NotifyAlertPlayed informs the backend an alert was shown/voiced
func (c *Client) NotifyAlertPlayed(ctx context.Context, alertID string) error {
	return c.post(ctx, "/monitoring/api/alerts/notify_played/", map[string]string{"alert_id": alertID}, nil)
}

// AcknowledgeAlert marks an alert as acknowledged/closed
func (c *Client) AcknowledgeAlert(ctx context.Context, alertID string) error {
	return c.post(ctx, "/monitoring/api/alerts/acknowledge/", map[string]string{"alert_id": alertID}, nil)
}

// CleanupAlerts clears all pending alerts at session teardown
func (c *Client) CleanupAlerts(ctx context.Context) error {
	return c.post(ctx, "/monitoring/api/alerts/cleanup/", nil, nil)
}

// UploadFrame forwards a captured frame and returns the live metrics
func (c *Client) UploadFrame(ctx context.Context, sessionID string, imageB64 string) (models.FrameMetrics, error) {
	var metrics models.FrameMetrics
	body := map[string]string{"session_id": sessionID, "image": imageB64}
	err := c.post(ctx, "/monitoring/api/upload_frame/", body, &metrics)
	return metrics, err
}

// FetchClip downloads a voice clip, resolving relative media URLs against the backend
func (c *Client) FetchClip(ctx context.Context, clipURL string) (io.ReadCloser, string, error) {
	full := clipURL
	if strings.HasPrefix(clipURL, "/") {
		full = c.baseURL + clipURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", full, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("GET %s: status %d", full, resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
