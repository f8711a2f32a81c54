package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/models"
)

func testConfig(backendURL string) *config.Config {
	cfg := config.Load()
	cfg.BackendURL = backendURL
	cfg.CSRFToken = "test-token"
	return cfg
}

func TestPostCarriesCSRFHeader(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-CSRFToken")
		json.NewEncoder(w).Encode(map[string]string{"status": "paused"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.PauseSession(context.Background(), PauseRequest{Reason: "manual"})
	require.NoError(t, err)
	assert.Equal(t, "test-token", gotHeader)
}

func TestCSRFTokenFallsBackToCookie(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "cookie-token", Path: "/"})
			json.NewEncoder(w).Encode(map[string]string{"status": "active", "session_id": "s1"})
			return
		}
		assert.Equal(t, "cookie-token", r.Header.Get("X-CSRFToken"))
		json.NewEncoder(w).Encode(map[string]string{"status": "paused"})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.CSRFToken = ""
	client := NewClient(cfg)

	_, err := client.StartSession(context.Background())
	require.NoError(t, err)
	_, err = client.PauseSession(context.Background(), PauseRequest{Reason: "manual"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchAlertConfigMapsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/monitoring/api/alerts/config/fatigue/", r.URL.Path)
		fmt.Fprint(w, `{
			"title": "Fatigue Detected",
			"message": "You look tired",
			"defaultVoiceClip": "/media/clips/fatigue.mp3",
			"cooldownSeconds": 12,
			"maxRepetitions": 2,
			"autoDismiss": true,
			"autoDismissDelay": 8000
		}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	cfg, err := client.FetchAlertConfig(context.Background(), models.AlertTypeFatigue)
	require.NoError(t, err)

	assert.Equal(t, "Fatigue Detected", cfg.Title)
	assert.Equal(t, "You look tired", cfg.Message)
	assert.Equal(t, "/media/clips/fatigue.mp3", cfg.VoiceClip)
	assert.Equal(t, 12, cfg.CooldownSeconds)
	assert.Equal(t, 2, cfg.MaxRepetitions)
	assert.True(t, cfg.AutoDismiss)
	assert.Equal(t, 8*time.Second, cfg.AutoDismissDelay)
}

func TestFetchAlertConfigPartialPayloadKeepsDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title": "Fatigue Detected"}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	cfg, err := client.FetchAlertConfig(context.Background(), models.AlertTypeFatigue)
	require.NoError(t, err)

	defaults := models.DefaultAlertConfig()
	assert.Equal(t, defaults.CooldownSeconds, cfg.CooldownSeconds)
	assert.Equal(t, defaults.MaxRepetitions, cfg.MaxRepetitions)
	assert.Equal(t, defaults.AutoDismiss, cfg.AutoDismiss)
}

func TestNonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no active session", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.ResumeSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestUploadFrameReturnsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/monitoring/api/upload_frame/", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s1", body["session_id"])
		assert.NotEmpty(t, body["image"])
		fmt.Fprint(w, `{"avg_ear": 0.31, "total_blinks": 14}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	metrics, err := client.UploadFrame(context.Background(), "s1", "data:image/jpeg;base64,xxx")
	require.NoError(t, err)
	assert.InDelta(t, 0.31, metrics.AvgEAR, 1e-9)
	assert.Equal(t, 14, metrics.TotalBlinks)
}

func TestFetchClipResolvesRelativeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media/clips/fatigue.mp3", r.URL.Path)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	body, contentType, err := client.FetchClip(context.Background(), "/media/clips/fatigue.mp3")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
	assert.Equal(t, "audio/mpeg", contentType)
}
