package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crosslight-labs/go-crosslight/pkg/audio"
	"github.com/crosslight-labs/go-crosslight/pkg/tts"
)

// speechTimeout bounds one synthesis round trip; a phase announcement that
// arrives later than this is stale anyway.
const speechTimeout = 5 * time.Second

// SoundPlayer is the audio sink used by the renderer. *audio.Player
// satisfies it.
type SoundPlayer interface {
	Play(pcm []byte, sampleRate int) error
	Stop()
}

// PulseTrain is the haptic sink used by the renderer. *haptic.Pulser
// satisfies it.
type PulseTrain interface {
	Start(interval time.Duration)
	Stop()
}

// Renderer implements Notifier over a TTS provider, an audio sink, and a
// haptic pulse train. Any of the three may be nil; the corresponding
// channel is simply skipped.
type Renderer struct {
	speech tts.Provider
	player SoundPlayer
	pulser PulseTrain
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRenderer creates a renderer over the given sinks.
func NewRenderer(speech tts.Provider, player SoundPlayer, pulser PulseTrain, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		speech: speech,
		player: player,
		pulser: pulser,
		logger: logger.With("component", "feedback"),
	}
}

// Start halts any render in progress and begins a new one.
func (r *Renderer) Start(req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	r.logger.Info("feedback start",
		"kind", string(req.Kind),
		"sound", req.Settings.Sound,
		"vibrate", req.Settings.Vibrate,
	)

	if req.Settings.Vibrate && r.pulser != nil {
		r.pulser.Start(req.PulseInterval)
	}

	if req.Settings.Sound && r.player != nil {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		go r.renderSound(ctx, req)
	}
}

// Stop halts speech, tone, and haptics. Idempotent.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Renderer) stopLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.player != nil {
		r.player.Stop()
	}
	if r.pulser != nil {
		r.pulser.Stop()
	}
}

// renderSound plays the cue tone followed by the spoken phrase as one
// buffer, so a preempting Stop kills both together.
func (r *Renderer) renderSound(ctx context.Context, req Request) {
	rate := audio.DefaultSampleRate

	freq := float64(audio.SuccessToneHz)
	if req.Kind == KindWarning {
		freq = audio.WarningToneHz
	}

	speech, speechRate := r.synthesize(ctx, req.Speech)
	if speechRate > 0 {
		rate = speechRate
	}

	pcm := audio.Tone(freq, 150*time.Millisecond, rate)
	pcm = append(pcm, speech...)

	if ctx.Err() != nil {
		return // stopped while synthesizing
	}
	if err := r.player.Play(pcm, rate); err != nil {
		r.logger.Warn("playback failed", "error", err)
	}
}

// synthesize returns PCM16 speech bytes and their sample rate, or (nil, 0)
// when speech is unavailable. Failures degrade to tone-only feedback.
func (r *Renderer) synthesize(ctx context.Context, text string) ([]byte, int) {
	if r.speech == nil || text == "" {
		return nil, 0
	}

	ctx, cancel := context.WithTimeout(ctx, speechTimeout)
	defer cancel()

	stream, err := r.speech.Stream(ctx, text)
	if err != nil {
		r.logger.Warn("speech synthesis failed", "error", err)
		return nil, 0
	}
	defer stream.Close()

	format := stream.Format()

	var opusDec *audio.OpusDecoder
	if format.Encoding == tts.EncodingOpus {
		opusDec, err = audio.NewOpusDecoder()
		if err != nil {
			r.logger.Warn("opus decoder unavailable", "error", err)
			return nil, 0
		}
	}

	var pcm []byte
	for {
		chunk, err := stream.Read()
		if err != nil {
			r.logger.Warn("speech stream failed", "error", err)
			return nil, 0
		}
		if chunk == nil {
			break
		}
		if opusDec != nil {
			chunk, err = opusDec.DecodePacket(chunk)
			if err != nil {
				r.logger.Warn("opus decode failed", "error", err)
				return nil, 0
			}
		}
		pcm = append(pcm, chunk...)
	}

	switch format.Encoding {
	case tts.EncodingOpus:
		return pcm, opusDec.SampleRate()
	case tts.EncodingPCM16, tts.EncodingPCM24:
		return pcm, format.SampleRate
	default:
		// Compressed formats would need a decode pipeline the cue path
		// doesn't have; fall back to tone-only.
		r.logger.Warn("unsupported speech encoding", "encoding", string(format.Encoding))
		return nil, 0
	}
}

var _ Notifier = (*Renderer)(nil)
