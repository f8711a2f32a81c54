package audio

import "github.com/gopxl/beep/v2"

// fader wraps a streamer with a linear fade-in on the first fadeSamples and
// an on-demand linear fade-out triggered by BeginFadeOut. All mutating calls
// must run under speaker.Lock.
type fader struct {
	source      beep.Streamer
	fadeSamples int
	gain        float64
	position    int
	fadingOut   bool
	fadeOutLeft int
	halted      bool
	drained     bool
}

func newFader(source beep.Streamer, fadeSamples int, gain float64) *fader {
	if fadeSamples < 1 {
		fadeSamples = 1
	}
	return &fader{
		source:      source,
		fadeSamples: fadeSamples,
		gain:        gain,
	}
}

// SetGain adjusts the overall gain mid-playback
func (f *fader) SetGain(gain float64) {
	f.gain = gain
}

// BeginFadeOut starts the fade-out ramp; the streamer drains once it completes
func (f *fader) BeginFadeOut() {
	if f.fadingOut || f.halted || f.drained {
		return
	}
	f.fadingOut = true
	f.fadeOutLeft = f.fadeSamples
}

// Halt stops the streamer immediately, without the fade-out ramp
func (f *fader) Halt() {
	f.halted = true
}

func (f *fader) Stream(samples [][2]float64) (n int, ok bool) {
	if f.halted || f.drained {
		return 0, false
	}

	n, ok = f.source.Stream(samples)
	for i := 0; i < n; i++ {
		g := f.gain

		// fade-in ramp
		if f.position < f.fadeSamples {
			g *= float64(f.position) / float64(f.fadeSamples)
		}

		// fade-out ramp
		if f.fadingOut {
			if f.fadeOutLeft <= 0 {
				f.drained = true
				return i, i > 0
			}
			g *= float64(f.fadeOutLeft) / float64(f.fadeSamples)
			f.fadeOutLeft--
		}

		samples[i][0] *= g
		samples[i][1] *= g
		f.position++
	}

	if f.fadingOut && f.fadeOutLeft <= 0 {
		f.drained = true
	}
	return n, ok
}

func (f *fader) Err() error {
	return f.source.Err()
}
