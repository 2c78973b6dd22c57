// Package feedback renders phase changes as audio, speech, and haptic output.
package feedback

import "time"

// Kind classifies the feedback cue for a phase transition.
type Kind string

const (
	// KindWarning is rendered when the stop phase appears.
	KindWarning Kind = "warning"
	// KindSuccess is rendered when the walk phase appears.
	KindSuccess Kind = "success"
)

// Settings holds the user-facing feedback enable flags.
type Settings struct {
	Sound   bool `json:"sound"`   // Audible tone + speech
	Vibrate bool `json:"vibrate"` // Haptic pulse train
}

// Request parameterizes one feedback render.
type Request struct {
	Kind          Kind          // warning or success
	Speech        string        // Spoken phrase, empty to skip speech
	PulseInterval time.Duration // Haptic cadence, 0 to skip haptics
	Settings      Settings      // Channel enable flags
}

// Notifier is invoked by the tracker exactly once per phase transition.
// Stop must be idempotent; Start implies a preceding Stop was issued.
type Notifier interface {
	// Start begins rendering feedback for a new phase.
	Start(req Request)

	// Stop halts any in-progress render. Safe to call when idle.
	Stop()
}
