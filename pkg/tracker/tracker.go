// Package tracker maintains identity of signal-head detections across
// frames and derives a stable, debounced signal phase from them.
//
// The calling contract is frame-driven and single-goroutine: Ingest and
// Determine are invoked sequentially, once per frame, from one processing
// loop. Readers on other goroutines (dashboard, display) use Phase,
// Snapshot, or the Phases channel rather than touching tracker state.
package tracker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/crosslight-labs/go-crosslight/pkg/detection"
	"github.com/crosslight-labs/go-crosslight/pkg/feedback"
	"github.com/crosslight-labs/go-crosslight/pkg/signal"
)

// TrackedDetection is a detection identity persisted across frames with a
// confirmation counter. ConfirmCount never decreases for the lifetime of
// an entry; the entry is removed wholesale when it goes unseen past the
// gap budget.
type TrackedDetection struct {
	ID            string         // Stable identity, assigned at creation
	Bounds        detection.Rect // Region from the creating observation
	ConfirmCount  int            // Frames in which this entry was re-matched
	SeenThisFrame bool           // Reset at the start of every Ingest
	Phase         signal.Phase   // Derived once from the class label
}

// Tracker consumes per-frame detections and computes the current phase.
type Tracker struct {
	mu sync.RWMutex

	config Config

	active                  []*TrackedDetection
	framesSinceAnyDetection int
	currentPhase            signal.Phase

	notifier feedback.Notifier
	phases   chan signal.Phase
}

// New creates a tracker with the given configuration and notifier.
// Misconfiguration is rejected here rather than surfacing later as
// silent no-op behavior.
func New(cfg Config, notifier feedback.Notifier) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		config:   cfg,
		notifier: notifier,
		phases:   make(chan signal.Phase, 1),
	}, nil
}

// Ingest merges one frame's detections into the active set.
// It never fails: malformed rectangles simply never match, and frames
// arriving at capacity are dropped for this frame, not queued.
func (t *Tracker) Ingest(dets []detection.Detection) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, td := range t.active {
		td.SeenThisFrame = false
	}

	for _, det := range dets {
		// First match in existing order wins. This is a deliberate
		// simplicity/latency trade-off, not a global optimum assignment:
		// earlier-created entries get first claim on an overlapping
		// observation.
		matched := false
		for _, td := range t.active {
			if det.Bounds.IOU(td.Bounds) >= t.config.MinOverlapRatio {
				td.ConfirmCount++
				td.SeenThisFrame = true
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		// Hard per-frame cap: at capacity the observation is discarded.
		if len(t.active) >= t.config.MaxTrackedDetections {
			continue
		}

		t.active = append(t.active, &TrackedDetection{
			ID:            uuid.NewString(),
			Bounds:        det.Bounds,
			ConfirmCount:  0,
			SeenThisFrame: true,
			Phase:         signal.FromLabel(det.Label),
		})
	}

	// Gap tolerance: ride through short detection-free stretches without
	// discarding last-known state. Once the budget is exceeded (or any
	// detection arrived), keep only entries seen this frame.
	if len(dets) == 0 {
		t.framesSinceAnyDetection++
		if t.framesSinceAnyDetection <= t.config.MaxFramesWithNoDetection {
			return
		}
	}
	t.prune()
	t.framesSinceAnyDetection = 0
}

// prune keeps only entries seen this frame. Caller holds the lock.
func (t *Tracker) prune() {
	kept := t.active[:0]
	for _, td := range t.active {
		if td.SeenThisFrame {
			kept = append(kept, td)
		}
	}
	// Release removed entries
	for i := len(kept); i < len(t.active); i++ {
		t.active[i] = nil
	}
	t.active = kept
}

// Determine computes the current phase from the active set and, when the
// phase changed, dispatches feedback exactly once.
//
// The largest-area selection scans the entire active set, not just the
// confirmation-qualified subset; only the None fallback is gated by the
// threshold.
func (t *Tracker) Determine() signal.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()

	anyQualified := false
	for _, td := range t.active {
		// An entry has been observed ConfirmCount+1 times: its creation
		// frame plus each re-match. It qualifies once the observation
		// count reaches the threshold, so threshold 2 trusts a detection
		// seen in two consecutive frames.
		if td.ConfirmCount+1 >= t.config.ConfirmationThreshold {
			anyQualified = true
			break
		}
	}

	next := signal.None
	if anyQualified {
		var best *TrackedDetection
		for _, td := range t.active {
			// Strict > keeps the first-encountered entry on ties.
			if best == nil || td.Bounds.Area() > best.Bounds.Area() {
				best = td
			}
		}
		next = best.Phase
	}

	t.setPhase(next)
	return next
}

// setPhase updates currentPhase and dispatches feedback on transitions.
// Equal-to-previous phases are silent. Caller holds the lock.
func (t *Tracker) setPhase(next signal.Phase) {
	if next == t.currentPhase {
		return
	}
	t.currentPhase = next
	t.dispatch(next)
	t.publish(next)
}

// dispatch halts any in-progress render, then starts a new one for
// Red/Green. A transition to None stops feedback and starts nothing.
func (t *Tracker) dispatch(p signal.Phase) {
	if t.notifier == nil {
		return
	}

	t.notifier.Stop()

	var kind feedback.Kind
	switch p {
	case signal.Red:
		kind = feedback.KindWarning
	case signal.Green:
		kind = feedback.KindSuccess
	default:
		return
	}

	t.notifier.Start(feedback.Request{
		Kind:          kind,
		Speech:        p.Speech(),
		PulseInterval: p.PulseInterval(),
		Settings:      t.config.Feedback,
	})
}

// publish hands the new phase to display readers through the phases
// channel, replacing any stale unread value rather than blocking the
// frame loop.
func (t *Tracker) publish(p signal.Phase) {
	for {
		select {
		case t.phases <- p:
			return
		default:
			select {
			case <-t.phases:
			default:
			}
		}
	}
}

// Phases returns the channel carrying phase transitions for display
// readers. The channel holds only the most recent unread transition.
func (t *Tracker) Phases() <-chan signal.Phase {
	return t.phases
}

// Phase returns the last computed phase.
func (t *Tracker) Phase() signal.Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentPhase
}

// Config returns the current configuration.
func (t *Tracker) Config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config
}

// Snapshot returns a copy of the active set for diagnostics.
func (t *Tracker) Snapshot() []TrackedDetection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TrackedDetection, len(t.active))
	for i, td := range t.active {
		out[i] = *td
	}
	return out
}

// Reconfigure replaces the configuration wholesale.
// Side effect, by contract: any active feedback render is stopped, since
// the enable flags it was started with may no longer hold.
func (t *Tracker) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = cfg
	if t.notifier != nil {
		t.notifier.Stop()
	}
	return nil
}
