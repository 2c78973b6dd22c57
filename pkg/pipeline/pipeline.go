// Package pipeline drives the frame loop: acquire a frame, run the
// detector, feed the tracker, and publish the resulting phase.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crosslight-labs/go-crosslight/internal/log"
	"github.com/crosslight-labs/go-crosslight/pkg/detection"
	"github.com/crosslight-labs/go-crosslight/pkg/signal"
	"github.com/crosslight-labs/go-crosslight/pkg/tracker"
)

// DefaultFrameInterval paces the loop at ~5 FPS, enough for a signal
// head that changes once every few seconds.
const DefaultFrameInterval = 200 * time.Millisecond

// FrameSource yields the latest camera frame as JPEG bytes.
// *video.Client satisfies it.
type FrameSource interface {
	Frame() ([]byte, error)
}

// PhaseSink receives phase updates. *web.Server satisfies it.
type PhaseSink interface {
	PublishPhase(p signal.Phase)
}

// FrameSink receives raw JPEG frames. *web.Server satisfies it.
type FrameSink interface {
	SendCameraFrame(jpeg []byte)
}

// Pipeline owns the tracker's calling contract: all Ingest/Determine
// calls flow through one mutex, whether frames come from the local loop
// or detections arrive over the feed.
type Pipeline struct {
	source   FrameSource
	detector detection.Detector
	tracker  *tracker.Tracker

	interval   time.Duration
	phaseSinks []PhaseSink
	frameSinks []FrameSink

	stepMu    sync.Mutex
	lastPhase signal.Phase

	// Stats
	framesProcessed atomic.Uint64
	detectorErrors  atomic.Uint64
	sourceErrors    atomic.Uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFrameInterval overrides the loop pacing.
func WithFrameInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPhaseSink adds a phase update receiver.
func WithPhaseSink(s PhaseSink) Option {
	return func(p *Pipeline) {
		p.phaseSinks = append(p.phaseSinks, s)
	}
}

// WithFrameSink adds a frame receiver.
func WithFrameSink(s FrameSink) Option {
	return func(p *Pipeline) {
		p.frameSinks = append(p.frameSinks, s)
	}
}

// New creates a pipeline. Source and detector may be nil when frames
// are not acquired locally; ProcessDetections still works.
func New(source FrameSource, detector detection.Detector, trk *tracker.Tracker, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		detector: detector,
		tracker:  trk,
		interval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives the frame loop until ctx is cancelled. It requires a
// source and detector.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.source == nil || p.detector == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info("pipeline running", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.step()
		}
	}
}

// step processes one frame tick.
func (p *Pipeline) step() {
	frame, err := p.source.Frame()
	if err != nil {
		p.sourceErrors.Add(1)
		return
	}

	for _, sink := range p.frameSinks {
		sink.SendCameraFrame(frame)
	}

	dets, err := p.detector.Detect(frame)
	if err != nil {
		p.detectorErrors.Add(1)
		log.Warn("detector failed", "error", err)
		return
	}

	p.ProcessDetections(dets)
}

// ProcessDetections feeds one frame's detections through the tracker
// and publishes the phase when it changes. Safe for concurrent callers;
// tracker calls are serialized internally.
func (p *Pipeline) ProcessDetections(dets []detection.Detection) signal.Phase {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()

	p.tracker.Ingest(dets)
	phase := p.tracker.Determine()
	p.framesProcessed.Add(1)

	if phase != p.lastPhase {
		p.lastPhase = phase
		log.Info("phase changed", "phase", phase.String())
		for _, sink := range p.phaseSinks {
			sink.PublishPhase(phase)
		}
	}

	return phase
}

// ForwardFrame pushes an externally acquired frame to frame sinks.
func (p *Pipeline) ForwardFrame(jpeg []byte) {
	for _, sink := range p.frameSinks {
		sink.SendCameraFrame(jpeg)
	}
}

// Stats contains pipeline counters.
type Stats struct {
	FramesProcessed uint64 `json:"frames_processed"`
	DetectorErrors  uint64 `json:"detector_errors"`
	SourceErrors    uint64 `json:"source_errors"`
}

// GetStats returns pipeline counters.
func (p *Pipeline) GetStats() Stats {
	return Stats{
		FramesProcessed: p.framesProcessed.Load(),
		DetectorErrors:  p.detectorErrors.Load(),
		SourceErrors:    p.sourceErrors.Load(),
	}
}
