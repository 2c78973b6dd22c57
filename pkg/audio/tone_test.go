package audio

import (
	"testing"
	"time"
)

func TestTone_Length(t *testing.T) {
	pcm := Tone(WarningToneHz, 100*time.Millisecond, 24000)
	// 2400 samples * 2 bytes
	if len(pcm) != 4800 {
		t.Errorf("length: got %d, want 4800", len(pcm))
	}
}

func TestTone_FadesToSilence(t *testing.T) {
	pcm := Tone(SuccessToneHz, 50*time.Millisecond, 24000)

	// First and last samples sit inside the fade ramp and must be near zero
	first := int16(pcm[0]) | int16(pcm[1])<<8
	last := int16(pcm[len(pcm)-2]) | int16(pcm[len(pcm)-1])<<8
	if first > 1000 || first < -1000 {
		t.Errorf("first sample not faded: %d", first)
	}
	if last > 1000 || last < -1000 {
		t.Errorf("last sample not faded: %d", last)
	}

	// Middle of the tone should have real amplitude somewhere
	peak := int16(0)
	for i := 0; i < len(pcm); i += 2 {
		s := int16(pcm[i]) | int16(pcm[i+1])<<8
		if s > peak {
			peak = s
		}
	}
	if peak < 10000 {
		t.Errorf("peak amplitude too low: %d", peak)
	}
}

func TestTone_DefaultSampleRate(t *testing.T) {
	pcm := Tone(440, 10*time.Millisecond, 0)
	if len(pcm) != DefaultSampleRate/100*2 {
		t.Errorf("length with default rate: got %d", len(pcm))
	}
}

func TestPlayer_StopIdempotent(t *testing.T) {
	p := NewPlayer("true") // /usr/bin/true: exits immediately, harmless
	p.Stop()
	p.Stop()
	if p.Playing() {
		t.Error("idle player reports playing")
	}
}
