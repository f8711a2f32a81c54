package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// attentionTone synthesizes the basic-path alert sound: three short 880 Hz
// pulses with a soft envelope, padded with silence to the requested length.
func attentionTone(sr beep.SampleRate, length time.Duration) beep.Streamer {
	const (
		freq       = 880.0
		pulse      = 250 * time.Millisecond
		gap        = 200 * time.Millisecond
		pulseCount = 3
	)

	pulseN := sr.N(pulse)
	gapN := sr.N(gap)
	cycleN := pulseN + gapN

	total := sr.N(length)
	pos := 0

	gen := beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= total {
			return 0, false
		}
		for i := range samples {
			if pos >= total {
				return i, true
			}

			var v float64
			cycle := pos / cycleN
			inCycle := pos % cycleN
			if cycle < pulseCount && inCycle < pulseN {
				// sine pulse with a linear attack/release envelope
				env := 1.0
				edge := pulseN / 8
				if inCycle < edge {
					env = float64(inCycle) / float64(edge)
				} else if inCycle > pulseN-edge {
					env = float64(pulseN-inCycle) / float64(edge)
				}
				t := float64(pos) / float64(sr)
				v = 0.5 * env * math.Sin(2*math.Pi*freq*t)
			}

			samples[i][0] = v
			samples[i][1] = v
			pos++
		}
		return len(samples), true
	})

	return gen
}
