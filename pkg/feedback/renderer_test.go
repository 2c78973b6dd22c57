package feedback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/crosslight-labs/go-crosslight/pkg/signal"
	"github.com/crosslight-labs/go-crosslight/pkg/tts"
)

type fakePlayer struct {
	mu    sync.Mutex
	plays []int // sample rates
	stops int
}

func (f *fakePlayer) Play(pcm []byte, rate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, rate)
	return nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakePlayer) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

type fakePulser struct {
	mu        sync.Mutex
	intervals []time.Duration
	stops     int
}

func (f *fakePulser) Start(interval time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intervals = append(f.intervals, interval)
}

func (f *fakePulser) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRenderer_StartAllChannels(t *testing.T) {
	player := &fakePlayer{}
	pulser := &fakePulser{}
	r := NewRenderer(tts.NewMock(), player, pulser, nil)

	r.Start(Request{
		Kind:          KindSuccess,
		Speech:        signal.Green.Speech(),
		PulseInterval: signal.Green.PulseInterval(),
		Settings:      Settings{Sound: true, Vibrate: true},
	})

	pulser.mu.Lock()
	if len(pulser.intervals) != 1 || pulser.intervals[0] != signal.Green.PulseInterval() {
		t.Errorf("pulser intervals: %v", pulser.intervals)
	}
	pulser.mu.Unlock()

	// Sound renders asynchronously: tone + mock speech in one Play call
	waitFor(t, func() bool { return player.playCount() == 1 })

	player.mu.Lock()
	if player.plays[0] != 24000 {
		t.Errorf("sample rate: got %d, want 24000", player.plays[0])
	}
	player.mu.Unlock()

	r.Stop()
}

func TestRenderer_SettingsGateChannels(t *testing.T) {
	player := &fakePlayer{}
	pulser := &fakePulser{}
	r := NewRenderer(tts.NewMock(), player, pulser, nil)

	r.Start(Request{
		Kind:          KindWarning,
		Speech:        signal.Red.Speech(),
		PulseInterval: signal.Red.PulseInterval(),
		Settings:      Settings{Sound: false, Vibrate: true},
	})

	time.Sleep(50 * time.Millisecond)
	if got := player.playCount(); got != 0 {
		t.Errorf("sound disabled but Play called %d times", got)
	}
	pulser.mu.Lock()
	if len(pulser.intervals) != 1 {
		t.Errorf("vibrate enabled but pulser started %d times", len(pulser.intervals))
	}
	pulser.mu.Unlock()

	r.Stop()
}

func TestRenderer_StopHaltsEverything(t *testing.T) {
	player := &fakePlayer{}
	pulser := &fakePulser{}
	r := NewRenderer(nil, player, pulser, nil)

	r.Start(Request{
		Kind:     KindSuccess,
		Settings: Settings{Sound: true, Vibrate: true},
	})
	r.Stop()

	player.mu.Lock()
	stops := player.stops
	player.mu.Unlock()
	if stops == 0 {
		t.Error("player not stopped")
	}

	pulser.mu.Lock()
	pstops := pulser.stops
	pulser.mu.Unlock()
	if pstops == 0 {
		t.Error("pulser not stopped")
	}

	// Idempotent
	r.Stop()
}

func TestRenderer_SpeechFailureDegradesToTone(t *testing.T) {
	provider := tts.NewMock()
	provider.StreamFunc = func(ctx context.Context, text string) (tts.AudioStream, error) {
		return nil, tts.ErrStreamClosed
	}

	player := &fakePlayer{}
	r := NewRenderer(provider, player, nil, nil)

	r.Start(Request{
		Kind:     KindWarning,
		Speech:   "Red light. Please wait.",
		Settings: Settings{Sound: true},
	})

	// Tone still plays even though speech failed
	waitFor(t, func() bool { return player.playCount() == 1 })
	r.Stop()
}
