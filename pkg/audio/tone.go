package audio

import (
	"math"
	"time"
)

// Cue frequencies for the two feedback kinds. The walk cue is the higher,
// brighter tone; the stop cue sits low so the two are distinguishable in
// street noise.
const (
	WarningToneHz = 440
	SuccessToneHz = 880
)

// Tone synthesizes a PCM16 mono sine tone with a short linear fade at both
// ends to avoid clicks.
func Tone(freqHz float64, d time.Duration, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	n := int(float64(sampleRate) * d.Seconds())
	fade := sampleRate / 100 // 10ms ramp
	if fade > n/2 {
		fade = n / 2
	}

	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		amp := 0.6
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if i >= n-fade {
			amp *= float64(n-i) / float64(fade)
		}

		s := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}
