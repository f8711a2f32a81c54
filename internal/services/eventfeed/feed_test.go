package eventfeed

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/models"
)

type collector struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (c *collector) handle(a models.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func (c *collector) snapshot() []models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Alert(nil), c.alerts...)
}

func sseServer(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
			flusher.Flush()
		}
	}))
}

func feedConfig(backendURL string) *config.Config {
	cfg := config.Load()
	cfg.BackendURL = backendURL
	cfg.FeedReconnectDelay = 10 * time.Millisecond
	return cfg
}

func TestFeedDispatchesEvents(t *testing.T) {
	srv := sseServer(t, []string{
		`{"id":"a1","type":"fatigue","message":"rest your eyes"}`,
		`{"id":"a2","type":"break_reminder"}`,
	})
	defer srv.Close()

	col := &collector{}
	feed := NewFeed(feedConfig(srv.URL), col.handle)
	require.NoError(t, feed.Connect())
	defer feed.Close()

	require.Eventually(t, func() bool { return col.count() == 2 }, time.Second, 5*time.Millisecond)

	alerts := col.snapshot()
	assert.Equal(t, "a1", alerts[0].ID)
	assert.Equal(t, models.AlertTypeFatigue, alerts[0].Type)
	assert.Equal(t, "rest your eyes", alerts[0].Message)
	assert.Equal(t, models.AlertTypeBreakReminder, alerts[1].Type)
}

func TestFeedDropsMalformedAndIDLessEvents(t *testing.T) {
	srv := sseServer(t, []string{
		`not json at all`,
		`{"type":"fatigue"}`,
		`{"id":"good","type":"fatigue"}`,
	})
	defer srv.Close()

	col := &collector{}
	feed := NewFeed(feedConfig(srv.URL), col.handle)
	require.NoError(t, feed.Connect())
	defer feed.Close()

	require.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "good", col.snapshot()[0].ID)
}

func TestFeedAccumulatesMultiLineData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"id\":\"m1\",\ndata: \"type\":\"fatigue\"}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	col := &collector{}
	feed := NewFeed(feedConfig(srv.URL), col.handle)
	require.NoError(t, feed.Connect())
	defer feed.Close()

	require.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "m1", col.snapshot()[0].ID)
}

func TestFeedReconnectsAfterDrop(t *testing.T) {
	var mu sync.Mutex
	connections := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: {\"id\":\"conn-%d\",\"type\":\"fatigue\"}\n\n", n)
		flusher.Flush()
		// Handler returns, dropping the connection
	}))
	defer srv.Close()

	col := &collector{}
	feed := NewFeed(feedConfig(srv.URL), col.handle)
	require.NoError(t, feed.Connect())
	defer feed.Close()

	require.Eventually(t, func() bool { return col.count() >= 2 }, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, connections, 2)
}

func TestFeedConnectWhileConnectedIsNoOp(t *testing.T) {
	srv := sseServer(t, nil)
	defer srv.Close()

	feed := NewFeed(feedConfig(srv.URL), func(models.Alert) {})
	require.NoError(t, feed.Connect())
	defer feed.Close()

	assert.NoError(t, feed.Connect(), "second connect is a no-op, not an error")
}

func TestFeedCloseIsPermanent(t *testing.T) {
	srv := sseServer(t, nil)
	defer srv.Close()

	feed := NewFeed(feedConfig(srv.URL), func(models.Alert) {})
	require.NoError(t, feed.Connect())

	feed.Close()
	require.True(t, feed.Closed())

	err := feed.Connect()
	assert.Error(t, err, "connect after intentional close must fail")

	// Close is idempotent
	feed.Close()
	assert.True(t, feed.Closed())
}
