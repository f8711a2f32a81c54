package eventfeed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/models"
)

// Handler receives each well-formed alert event exactly once
type Handler func(alert models.Alert)

// Feed is the long-lived server-push (SSE) connection to the alert stream.
// On an unexpected close it reconnects after a fixed delay, unless the feed
// was torn down intentionally — teardown is a permanent sentinel, distinct
// from merely being disconnected, and no reconnect ever fires after it.
type Feed struct {
	cfg     *config.Config
	client  *http.Client
	logger  zerolog.Logger
	handler Handler

	mu        sync.Mutex
	connected bool
	closed    bool // intentional teardown, permanent
	cancel    context.CancelFunc
}

// NewFeed creates a feed; Connect must be called to start consuming
func NewFeed(cfg *config.Config, handler Handler) *Feed {
	return &Feed{
		cfg:     cfg,
		client:  &http.Client{}, // no timeout: the stream is long-lived
		logger:  logging.NewServiceLogger(cfg, "eventfeed"),
		handler: handler,
	}
}

// Connect opens the stream. A call while a connection is already live is a
// no-op; a call after Close fails.
func (f *Feed) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("event feed permanently closed")
	}
	if f.connected {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.connected = true

	go f.run(ctx)
	return nil
}

// Close tears the feed down permanently. Reconnect attempts that find the
// sentinel abort without reconnecting.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.connected = false
	if f.cancel != nil {
		f.cancel()
	}
	f.logger.Info().Msg("Event feed closed intentionally")
}

// Closed reports whether the permanent teardown sentinel is set
func (f *Feed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Feed) run(ctx context.Context) {
	for {
		err := f.stream(ctx)

		if f.Closed() {
			return
		}

		if err != nil {
			f.logger.Warn().
				Err(err).
				Dur("reconnect_in", f.cfg.FeedReconnectDelay).
				Msg("Event feed disconnected unexpectedly, scheduling reconnect")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.FeedReconnectDelay):
		}

		// The sentinel may have been set while we waited
		if f.Closed() {
			f.logger.Debug().Msg("Reconnect aborted, feed was closed intentionally")
			return
		}
	}
}

// stream opens one SSE connection and dispatches events until it drops
func (f *Feed) stream(ctx context.Context) error {
	url := strings.TrimRight(f.cfg.BackendURL, "/") + f.cfg.FeedPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	f.logger.Info().Str("url", url).Msg("Event feed connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if data.Len() > 0 {
				f.dispatch(data.String())
				data.Reset()
			}
		default:
			// comment or field we do not consume (event:, id:, retry:)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("feed read: %w", err)
	}
	return nil
}

// dispatch parses one event payload; malformed events are dropped with a
// warning, never surfaced as alerts.
func (f *Feed) dispatch(payload string) {
	var alert models.Alert
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		f.logger.Warn().Err(err).Str("payload", truncate(payload, 200)).Msg("Dropping unparsable feed event")
		return
	}

	if alert.ID == "" {
		f.logger.Warn().Str("alert_type", alert.Type.String()).Msg("Dropping feed event without id")
		return
	}

	f.handler(alert)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
