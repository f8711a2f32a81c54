package alertengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionpulse-notifier-go/internal/backend"
	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/models"
)

type fakeBackend struct {
	mu           sync.Mutex
	configs      map[models.AlertType]models.AlertConfig
	configErr    error
	pauseErr     error
	pauses       []backend.PauseRequest
	resumes      int
	acked        []string
	played       []string
	snoozes      []int
	snoozeNext   int
	breaksTaken  int
	cleanupCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{configs: make(map[models.AlertType]models.AlertConfig)}
}

func (f *fakeBackend) FetchAlertConfig(_ context.Context, t models.AlertType) (models.AlertConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configErr != nil {
		return models.AlertConfig{}, f.configErr
	}
	if cfg, ok := f.configs[t]; ok {
		return cfg, nil
	}
	cfg := models.DefaultAlertConfig()
	cfg.Title = "Test Alert"
	return cfg, nil
}

func (f *fakeBackend) PauseSession(_ context.Context, req backend.PauseRequest) (backend.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pauseErr != nil {
		return backend.SessionResponse{}, f.pauseErr
	}
	f.pauses = append(f.pauses, req)
	return backend.SessionResponse{Status: "paused"}, nil
}

func (f *fakeBackend) ResumeSession(_ context.Context) (backend.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return backend.SessionResponse{Status: "active"}, nil
}

func (f *fakeBackend) SnoozeBreak(_ context.Context, minutes int) (backend.SnoozeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snoozes = append(f.snoozes, minutes)
	return backend.SnoozeResponse{Status: "snoozed", NextReminderInSecond: f.snoozeNext}, nil
}

func (f *fakeBackend) MarkBreakTaken(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breaksTaken++
	return nil
}

func (f *fakeBackend) NotifyAlertPlayed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, id)
	return nil
}

func (f *fakeBackend) AcknowledgeAlert(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeBackend) CleanupAlerts(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupCalls++
	return nil
}

func (f *fakeBackend) pauseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pauses)
}

type fakeRenderer struct {
	mu        sync.Mutex
	rendered  []models.RenderCommand
	flashes   []string
	dismissed []string
	binds     []string
	renderErr error
}

func (f *fakeRenderer) Render(cmd models.RenderCommand) (*models.RenderedAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	f.rendered = append(f.rendered, cmd)
	return &models.RenderedAlert{AlertID: cmd.AlertID, ElementID: "alert-" + cmd.AlertID}, nil
}

func (f *fakeRenderer) Attach(h *models.RenderedAlert) error {
	h.Attached = true
	return nil
}

func (f *fakeRenderer) BindActions(h *models.RenderedAlert, _ []models.CustomAction, ex *models.ExerciseInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !h.Attached {
		return errors.New("not attached")
	}
	f.binds = append(f.binds, h.AlertID)
	h.Exercise = ex
	return nil
}

func (f *fakeRenderer) Flash(h *models.RenderedAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashes = append(f.flashes, h.AlertID)
	return nil
}

func (f *fakeRenderer) Dismiss(h *models.RenderedAlert, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, h.AlertID)
	h.Attached = false
	return nil
}

func (f *fakeRenderer) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rendered)
}

type fakePlayer struct {
	mu           sync.Mutex
	played       []string
	duration     time.Duration
	stops        int
	clears       int
	enabled      bool
	onPlay       func()
	repeatDelays []time.Duration
	repeatFn     func()
}

func (f *fakePlayer) Play(_ context.Context, clip string) (time.Duration, error) {
	f.mu.Lock()
	f.played = append(f.played, clip)
	dur := f.duration
	hook := f.onPlay
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return dur, nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakePlayer) SetVolume(float64) {}
func (f *fakePlayer) SetEnabled(e bool) { f.enabled = e }
func (f *fakePlayer) Enabled() bool     { return f.enabled }

func (f *fakePlayer) ScheduleRepeat(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repeatDelays = append(f.repeatDelays, d)
	f.repeatFn = fn
}

func (f *fakePlayer) ClearAllRepeats() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.repeatFn = nil
}

func (f *fakePlayer) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

type waitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitRecorder) wait(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waits = append(w.waits, d)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type engineFixture struct {
	engine   *Engine
	backend  *fakeBackend
	renderer *fakeRenderer
	player   *fakePlayer
	session  *models.SessionFlags
	clock    *testClock
	waits    *waitRecorder
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	cfg := config.Load()
	fb := newFakeBackend()
	fr := &fakeRenderer{}
	fp := &fakePlayer{enabled: true, duration: 1200 * time.Millisecond}
	session := models.NewSessionFlags()
	session.SetMonitoringActive(true)

	engine := NewEngine(cfg, fb, fr, fp, session)
	clock := newTestClock()
	waits := &waitRecorder{}
	engine.clock = clock.Now
	engine.wait = waits.wait
	engine.states.clock = clock.Now

	return &engineFixture{
		engine:   engine,
		backend:  fb,
		renderer: fr,
		player:   fp,
		session:  session,
		clock:    clock,
		waits:    waits,
	}
}

func breakAlert(id string) models.Alert {
	return models.Alert{
		ID:      id,
		Type:    models.AlertTypeBreakReminder,
		Message: "Time for a break",
	}
}

func criticalAlert(id string, t models.AlertType, detectionTime float64) models.Alert {
	zero := 0.0
	return models.Alert{
		ID:   id,
		Type: t,
		Metadata: models.AlertMetadata{
			DetectionTime:  detectionTime,
			DetectionDelay: &zero,
		},
		VoiceClip: "/media/clips/" + string(t) + ".mp3",
	}
}

func TestHandleEventRejectsInvalidIDs(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(models.Alert{ID: "", Type: models.AlertTypeFatigue})
	f.engine.HandleEvent(models.Alert{ID: "undefined", Type: models.AlertTypeFatigue})

	assert.Zero(t, f.renderer.renderCount())
	assert.Zero(t, f.engine.Registry().Len())
}

func TestHandleEventDroppedWhenInactiveOrPaused(t *testing.T) {
	f := newEngineFixture(t)

	f.session.SetMonitoringActive(false)
	f.engine.HandleEvent(breakAlert("a1"))
	assert.Zero(t, f.renderer.renderCount())

	f.session.SetMonitoringActive(true)
	f.session.SetPaused(true)
	f.engine.HandleEvent(breakAlert("a2"))
	assert.Zero(t, f.renderer.renderCount())
}

func TestSameIDDisplayedOnce(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(breakAlert("b1"))
	f.engine.HandleEvent(breakAlert("b1"))
	f.engine.HandleEvent(breakAlert("b1"))

	assert.Equal(t, 1, f.renderer.renderCount())
	assert.Equal(t, 1, f.engine.Registry().Len())
}

func TestCooldownBlocksThenAdmits(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(breakAlert("c1"))
	require.Equal(t, 1, f.renderer.renderCount())
	f.engine.Dismiss("c1", false)

	f.clock.Advance(3 * time.Second)
	f.engine.HandleEvent(breakAlert("c2"))
	assert.Equal(t, 1, f.renderer.renderCount(), "3s is inside the 5s cooldown")

	f.clock.Advance(2001 * time.Millisecond)
	f.engine.HandleEvent(breakAlert("c3"))
	assert.Equal(t, 2, f.renderer.renderCount(), "past the cooldown the next id is admitted")
}

func TestHourlyRepetitionCap(t *testing.T) {
	f := newEngineFixture(t)

	for i, id := range []string{"r1", "r2", "r3"} {
		f.engine.HandleEvent(breakAlert(id))
		f.engine.Dismiss(id, false)
		require.Equal(t, i+1, f.renderer.renderCount())
		f.clock.Advance(6 * time.Second)
	}

	f.engine.HandleEvent(breakAlert("r4"))
	assert.Equal(t, 3, f.renderer.renderCount(), "fourth display within the hour is rejected")

	f.clock.Advance(time.Hour)
	f.engine.HandleEvent(breakAlert("r5"))
	assert.Equal(t, 4, f.renderer.renderCount(), "window rolls off after an hour")
}

func TestDelayGateHoldsUntilDelayMet(t *testing.T) {
	f := newEngineFixture(t)

	delay := 5.0
	early := models.Alert{
		ID:   "d1",
		Type: models.AlertTypeDriverAbsent,
		Metadata: models.AlertMetadata{
			DetectionTime:  2.0,
			DetectionDelay: &delay,
		},
	}
	f.engine.HandleEvent(early)
	assert.Zero(t, f.renderer.renderCount())
	assert.Equal(t, 1, f.engine.DelayWaitCount())

	late := early
	late.Metadata.DetectionTime = 5.5
	f.engine.HandleEvent(late)
	assert.Equal(t, 1, f.renderer.renderCount())
	assert.Zero(t, f.engine.DelayWaitCount())
}

func TestDelayGateZeroDelayProceedsImmediately(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(criticalAlert("z1", models.AlertTypeDriverAbsent, 0))
	assert.Equal(t, 1, f.renderer.renderCount())
}

func TestSuppressionShortCircuits(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.states.Suppress(models.AlertTypeDriverAbsent, time.Minute)
	f.engine.HandleEvent(criticalAlert("s1", models.AlertTypeDriverAbsent, 10))

	assert.Zero(t, f.renderer.renderCount())
	assert.Zero(t, f.engine.DelayWaitCount(), "suppressed alerts never enter delay-wait")
}

func TestCriticalAudioPlayedOncePerID(t *testing.T) {
	f := newEngineFixture(t)

	alert := criticalAlert("o1", models.AlertTypeCameraOccluded, 10)
	f.engine.HandleEvent(alert)
	require.Equal(t, 1, f.player.playCount())

	// Repetition update on the same id: occlusion audio never replays
	update := alert
	update.Metadata.RepetitionCount = 2
	f.engine.HandleEvent(update)
	assert.Equal(t, 1, f.player.playCount())
	assert.Equal(t, []string{"o1"}, f.renderer.flashes)
}

func TestBreakReminderAudioReplaysOnRepetition(t *testing.T) {
	f := newEngineFixture(t)

	alert := breakAlert("br1")
	f.engine.HandleEvent(alert)
	require.Equal(t, 1, f.player.playCount())

	update := alert
	update.Metadata.RepetitionCount = 2
	f.engine.HandleEvent(update)
	assert.Equal(t, 2, f.player.playCount())
}

func TestPlayAudioHintSuppressesPlayback(t *testing.T) {
	f := newEngineFixture(t)

	noAudio := false
	alert := breakAlert("h1")
	alert.PlayAudio = &noAudio
	f.engine.HandleEvent(alert)

	assert.Equal(t, 1, f.renderer.renderCount())
	assert.Zero(t, f.player.playCount())
}

func TestPlayedNotificationSkippedWhenSessionEndsMidPlayback(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(breakAlert("np1"))
	f.backend.mu.Lock()
	require.Equal(t, []string{"np1"}, f.backend.played)
	f.backend.mu.Unlock()

	// The session ends while the second clip is still being fetched
	f.player.onPlay = func() { f.session.SetMonitoringActive(false) }
	f.clock.Advance(6 * time.Second)
	f.engine.HandleEvent(breakAlert("np2"))

	assert.Equal(t, 2, f.player.playCount())
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	assert.Equal(t, []string{"np1"}, f.backend.played, "dead session receives no played notification")
}

func TestOccludedDismissalResetsTypeState(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(criticalAlert("oc1", models.AlertTypeCameraOccluded, 10))
	require.Equal(t, 1, f.renderer.renderCount())

	f.engine.Dismiss("oc1", false)

	// A fresh occlusion right after dismissal is not cooldown-blocked
	f.engine.HandleEvent(criticalAlert("oc2", models.AlertTypeCameraOccluded, 10))
	assert.Equal(t, 2, f.renderer.renderCount())
	assert.Equal(t, 2, f.player.playCount(), "new id plays audio again")
}

func TestEscalateWaitsOutAudioThenPauses(t *testing.T) {
	f := newEngineFixture(t)

	alert := criticalAlert("e1", models.AlertTypeDriverAbsent, 10)
	f.engine.HandleEvent(alert)

	require.Eventually(t, func() bool {
		return f.backend.pauseCount() == 1
	}, time.Second, 5*time.Millisecond)

	f.waits.mu.Lock()
	waited := append([]time.Duration(nil), f.waits.waits...)
	f.waits.mu.Unlock()
	require.NotEmpty(t, waited)
	assert.Equal(t, 1400*time.Millisecond, waited[0], "clip duration plus escalation buffer")

	f.backend.mu.Lock()
	req := f.backend.pauses[0]
	f.backend.mu.Unlock()
	assert.True(t, req.AutoPause)
	assert.Equal(t, "user_absent", req.Reason)
	assert.True(t, f.session.Paused())
	assert.Zero(t, f.engine.Registry().Len(), "escalation closes displayed alerts")
}

func TestEscalateSkippedWhenAlertAlreadyDismissed(t *testing.T) {
	f := newEngineFixture(t)

	alert := criticalAlert("e2", models.AlertTypeMultiplePeople, 10)
	f.engine.registry.Lock(alert.ID, alert.Type, models.DefaultAlertConfig())
	f.engine.registry.Complete(alert.ID, &models.RenderedAlert{AlertID: alert.ID}, f.clock.Now())
	f.engine.registry.Remove(alert.ID)

	f.engine.escalateAutoPause(alert, 0)
	assert.Zero(t, f.backend.pauseCount())
	assert.False(t, f.session.Paused())
}

func TestEscalateProceedsImmediatelyWithoutAudio(t *testing.T) {
	f := newEngineFixture(t)
	f.player.duration = 0

	f.engine.HandleEvent(criticalAlert("e3", models.AlertTypeMultiplePeople, 10))

	require.Eventually(t, func() bool {
		return f.backend.pauseCount() == 1
	}, time.Second, 5*time.Millisecond)

	f.backend.mu.Lock()
	req := f.backend.pauses[0]
	f.backend.mu.Unlock()
	assert.Equal(t, "multiple_people", req.Reason)
}

func TestResumeClearsEverything(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(breakAlert("rs1"))
	f.clock.Advance(6 * time.Second)
	f.engine.HandleEvent(criticalAlert("rs2", models.AlertTypeCameraOccluded, 10))
	require.Equal(t, 2, f.engine.Registry().Len())

	f.session.SetPaused(true)
	f.session.SetHysteresisFlags(models.HysteresisFlags{AbsenceStart: f.clock.Now()})

	require.NoError(t, f.engine.Resume())

	assert.Zero(t, f.engine.Registry().Len())
	assert.False(t, f.session.Paused())
	assert.True(t, f.session.HysteresisFlags().IsZero())
	assert.Zero(t, f.engine.states.Repetition(models.AlertTypeBreakReminder))

	// Fresh detections right after resume are not blocked by old history
	f.engine.HandleEvent(breakAlert("rs3"))
	assert.Equal(t, 3, f.renderer.renderCount())
}

func TestBulkClearClosesFeedPermanently(t *testing.T) {
	f := newEngineFixture(t)
	feed := &fakeFeed{}
	f.engine.SetFeed(feed)

	f.engine.HandleEvent(breakAlert("bc1"))
	require.Equal(t, 1, f.engine.Registry().Len())

	require.NoError(t, f.engine.BulkClear())

	assert.True(t, feed.closed)
	assert.Zero(t, f.engine.Registry().Len())
	assert.Equal(t, 1, f.backend.cleanupCalls)
}

type fakeFeed struct{ closed bool }

func (f *fakeFeed) Close() { f.closed = true }

func TestSnoozeBreakDismissesAndForwards(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(breakAlert("sn1"))
	require.NoError(t, f.engine.SnoozeBreak("sn1"))

	assert.Equal(t, []int{5}, f.backend.snoozes)
	assert.Zero(t, f.engine.Registry().Len())
}

func TestSnoozeArmsLocalReminderReplay(t *testing.T) {
	f := newEngineFixture(t)
	cfg := models.DefaultAlertConfig()
	cfg.VoiceClip = "/media/clips/break.mp3"
	f.backend.configs[models.AlertTypeBreakReminder] = cfg
	f.backend.snoozeNext = 300

	f.engine.HandleEvent(breakAlert("sr1"))
	require.Equal(t, 1, f.player.playCount())
	require.NoError(t, f.engine.SnoozeBreak("sr1"))

	f.player.mu.Lock()
	delays := append([]time.Duration(nil), f.player.repeatDelays...)
	replay := f.player.repeatFn
	f.player.mu.Unlock()
	require.Equal(t, []time.Duration{300 * time.Second}, delays)
	require.NotNil(t, replay)

	replay()
	assert.Equal(t, 2, f.player.playCount(), "expired snooze replays the reminder clip")

	// A paused session stays quiet when the timer fires
	f.session.SetPaused(true)
	replay()
	assert.Equal(t, 2, f.player.playCount())
}

func TestTakeBreakFlagsSessionOnBreak(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(breakAlert("tb1"))
	require.NoError(t, f.engine.TakeBreak("tb1"))

	assert.Equal(t, 1, f.backend.breaksTaken)
	assert.True(t, f.session.OnBreak())
	assert.Zero(t, f.engine.Registry().Len())
}

func TestDismissAcknowledgesAndAnimates(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.HandleEvent(breakAlert("dm1"))
	f.engine.Dismiss("dm1", true)

	assert.Equal(t, []string{"dm1"}, f.renderer.dismissed)
	assert.Equal(t, []string{"dm1"}, f.backend.acked)

	f.waits.mu.Lock()
	defer f.waits.mu.Unlock()
	assert.Contains(t, f.waits.waits, 300*time.Millisecond, "close animation runs before removal")
}

func TestAutoPauseFailureLeavesSessionRunning(t *testing.T) {
	f := newEngineFixture(t)
	f.backend.pauseErr = errors.New("backend unreachable")

	f.engine.HandleEvent(breakAlert("ap1"))
	f.engine.AutoPause(models.AlertTypeDriverAbsent)

	assert.False(t, f.session.Paused())
	assert.Equal(t, 1, f.engine.Registry().Len(), "alerts stay up when the pause is rejected")
}

func TestLateExerciseBindsOnUpdate(t *testing.T) {
	f := newEngineFixture(t)

	alert := breakAlert("ex1")
	f.engine.HandleEvent(alert)

	withExercise := alert
	withExercise.Exercise = &models.ExerciseInfo{ID: 7, Title: "Neck roll", Duration: 30}
	f.engine.HandleEvent(withExercise)

	entry, ok := f.engine.Registry().Get("ex1")
	require.True(t, ok)
	require.NotNil(t, entry.Handle.Exercise)
	assert.Equal(t, "Neck roll", entry.Handle.Exercise.Title)
}
