// Package signal defines the pedestrian signal phase and its per-phase
// presentation attributes (label, spoken phrase, haptic pulse cadence).
package signal

import "time"

// Phase is the tracked real-world signal state.
type Phase int

const (
	// None means no confident reading of the signal head.
	None Phase = iota
	// Red means the stop phase is showing.
	Red
	// Green means the walk phase is showing.
	Green
)

// info bundles the presentation attributes of a phase.
// Keeping this as a table (rather than methods with switches scattered
// around) makes the mapping exhaustive and easy to audit.
type info struct {
	name          string
	displayLabel  string
	speech        string
	pulseInterval time.Duration
	displayColor  string
}

var phaseTable = map[Phase]info{
	None: {
		name:          "none",
		displayLabel:  "Unrecognized",
		speech:        "",
		pulseInterval: 0,
		displayColor:  "neutral",
	},
	Red: {
		name:          "red",
		displayLabel:  "Red",
		speech:        "Red light. Please wait.",
		pulseInterval: 1 * time.Second,
		displayColor:  "red",
	},
	Green: {
		name:          "green",
		displayLabel:  "Green",
		speech:        "Green light. You can cross.",
		pulseInterval: 300 * time.Millisecond,
		displayColor:  "green",
	},
}

// String returns the lowercase phase name for logs and wire messages.
func (p Phase) String() string {
	if i, ok := phaseTable[p]; ok {
		return i.name
	}
	return "unknown"
}

// DisplayLabel returns the localizable label shown on the display surface.
func (p Phase) DisplayLabel() string {
	return phaseTable[p].displayLabel
}

// Speech returns the spoken-feedback phrase for the phase.
// Empty for None.
func (p Phase) Speech() string {
	return phaseTable[p].speech
}

// PulseInterval returns the haptic pulse cadence for the phase.
// Zero for None (no haptic feedback).
func (p Phase) PulseInterval() time.Duration {
	return phaseTable[p].pulseInterval
}

// DisplayColor returns the background fill name for the display surface.
func (p Phase) DisplayColor() string {
	return phaseTable[p].displayColor
}

// FromLabel derives the phase implied by a detector class label.
// Class 0 is the stop lamp; every other class is treated as walk.
func FromLabel(label int) Phase {
	if label == 0 {
		return Red
	}
	return Green
}
