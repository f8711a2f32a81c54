package audio

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/logging"
)

// fallbackDuration is reported when the basic playback path is used, since
// the true clip duration is unknown there.
const fallbackDuration = 3 * time.Second

// ClipFetcher retrieves a voice clip by URL
type ClipFetcher interface {
	FetchClip(ctx context.Context, clipURL string) (io.ReadCloser, string, error)
}

// Player owns the audio output pipeline. One clip plays at a time; starting a
// new clip stops the previous one first. Decode or fetch failures fall back
// to a synthesized attention tone.
type Player struct {
	mu          sync.Mutex
	cfg         *config.Config
	clips       ClipFetcher
	logger      zerolog.Logger
	enabled     bool
	volume      float64
	sampleRate  beep.SampleRate
	current     *fader
	repeatTimer *time.Timer

	initOnce sync.Once
	initErr  error
}

// NewPlayer creates an audio player; the speaker is initialized lazily on
// the first enabled playback.
func NewPlayer(cfg *config.Config, clips ClipFetcher) *Player {
	return &Player{
		cfg:        cfg,
		clips:      clips,
		logger:     logging.NewServiceLogger(cfg, "audio"),
		enabled:    cfg.AudioEnabled,
		volume:     clampVolume(cfg.AudioVolume),
		sampleRate: beep.SampleRate(cfg.AudioSampleRate),
	}
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SetVolume clamps to [0,1] and applies to the current clip immediately
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clampVolume(v)
	if p.current != nil {
		speaker.Lock()
		p.current.SetGain(p.volume)
		speaker.Unlock()
	}
}

// Volume returns the current volume
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetEnabled gates all future playback; disabling does not cut the clip
// already playing.
func (p *Player) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Enabled reports whether playback is allowed
func (p *Player) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *Player) initSpeaker() error {
	p.initOnce.Do(func() {
		// Buffer of ~1/10s keeps fade edges responsive
		p.initErr = speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/10))
	})
	return p.initErr
}

// Play fetches and decodes a clip, stops any current playback, fades in over
// the configured fade time and returns the decoded duration. On fetch or
// decode failure it plays the fallback tone and returns the approximate
// fallback duration.
func (p *Player) Play(ctx context.Context, clipURL string) (time.Duration, error) {
	if !p.Enabled() || clipURL == "" {
		return 0, nil
	}

	if err := p.initSpeaker(); err != nil {
		p.logger.Error().Err(err).Msg("Speaker init failed, audio disabled for this session")
		return 0, err
	}

	streamer, format, err := p.decodeClip(ctx, clipURL)
	if err != nil {
		p.logger.Warn().Err(err).Str("clip", clipURL).Msg("Clip decode failed, using fallback tone")
		p.playFallback()
		return fallbackDuration, nil
	}

	duration := format.SampleRate.D(streamer.Len()).Round(time.Millisecond)

	var source beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		source = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}

	fadeSamples := p.sampleRate.N(p.cfg.AudioFadeTime)
	fade := newFader(source, fadeSamples, p.volume)

	p.mu.Lock()
	p.stopCurrentLocked()
	p.current = fade
	p.mu.Unlock()

	speaker.Play(beep.Seq(fade, beep.Callback(func() {
		streamer.Close()
		p.mu.Lock()
		if p.current == fade {
			p.current = nil
		}
		p.mu.Unlock()
	})))

	p.logger.Debug().
		Str("clip", clipURL).
		Dur("duration", duration).
		Msg("Voice clip playing")

	return duration, nil
}

func (p *Player) decodeClip(ctx context.Context, clipURL string) (beep.StreamSeekCloser, beep.Format, error) {
	body, contentType, err := p.clips.FetchClip(ctx, clipURL)
	if err != nil {
		return nil, beep.Format{}, err
	}

	ext := strings.ToLower(path.Ext(clipURL))
	switch {
	case ext == ".wav" || strings.Contains(contentType, "wav"):
		return wav.Decode(body)
	case ext == ".ogg" || strings.Contains(contentType, "ogg"):
		return vorbis.Decode(body)
	default:
		return mp3.Decode(body)
	}
}

// playFallback plays the synthesized attention tone on the basic path
func (p *Player) playFallback() {
	tone := attentionTone(p.sampleRate, fallbackDuration)
	vol := &effects.Volume{
		Streamer: tone,
		Base:     2,
		Volume:   gainToVolume(p.Volume()),
		Silent:   p.Volume() == 0,
	}

	p.mu.Lock()
	p.stopCurrentLocked()
	p.mu.Unlock()

	speaker.Play(vol)
}

// stopCurrentLocked halts the active clip without fade; callers hold p.mu
func (p *Player) stopCurrentLocked() {
	if p.current != nil {
		speaker.Lock()
		p.current.Halt()
		speaker.Unlock()
		p.current = nil
	}
	speaker.Clear()
}

// Stop fades out the current clip over the configured fade time, then halts.
// Calling Stop with nothing playing is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	current := p.current
	p.current = nil
	p.mu.Unlock()

	if current == nil {
		return
	}

	speaker.Lock()
	current.BeginFadeOut()
	speaker.Unlock()
}

// ScheduleRepeat arms the repeat timer; a previously armed timer is replaced
func (p *Player) ScheduleRepeat(d time.Duration, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.repeatTimer != nil {
		p.repeatTimer.Stop()
	}
	p.repeatTimer = time.AfterFunc(d, fn)
}

// ClearAllRepeats stops playback and cancels any pending repeat timer
func (p *Player) ClearAllRepeats() {
	p.mu.Lock()
	if p.repeatTimer != nil {
		p.repeatTimer.Stop()
		p.repeatTimer = nil
	}
	p.stopCurrentLocked()
	p.mu.Unlock()
}

// gainToVolume converts a linear [0,1] volume to the log scale effects.Volume expects
func gainToVolume(gain float64) float64 {
	if gain <= 0 {
		return -10
	}
	// volume 0 is unity on base-2 scale; -4 is near-silent
	return (gain - 1) * 4
}
