package signal

import "testing"

func TestFromLabel(t *testing.T) {
	if got := FromLabel(0); got != Red {
		t.Errorf("FromLabel(0): got %v, want Red", got)
	}
	// Any non-zero class maps to Green
	for _, label := range []int{1, 2, 7, -1} {
		if got := FromLabel(label); got != Green {
			t.Errorf("FromLabel(%d): got %v, want Green", label, got)
		}
	}
}

func TestDisplayContract(t *testing.T) {
	cases := []struct {
		phase Phase
		label string
		color string
	}{
		{Green, "Green", "green"},
		{Red, "Red", "red"},
		{None, "Unrecognized", "neutral"},
	}

	for _, tc := range cases {
		if got := tc.phase.DisplayLabel(); got != tc.label {
			t.Errorf("%v DisplayLabel: got %q, want %q", tc.phase, got, tc.label)
		}
		if got := tc.phase.DisplayColor(); got != tc.color {
			t.Errorf("%v DisplayColor: got %q, want %q", tc.phase, got, tc.color)
		}
	}
}

func TestPulseInterval(t *testing.T) {
	// None carries no haptic cadence
	if None.PulseInterval() != 0 {
		t.Errorf("None.PulseInterval: got %v, want 0", None.PulseInterval())
	}
	if Red.PulseInterval() <= 0 {
		t.Error("Red should have a pulse interval")
	}
	if Green.PulseInterval() <= 0 {
		t.Error("Green should have a pulse interval")
	}
	// The walk phase pulses faster than the stop phase
	if Green.PulseInterval() >= Red.PulseInterval() {
		t.Errorf("Green pulse (%v) should be faster than Red (%v)",
			Green.PulseInterval(), Red.PulseInterval())
	}
}

func TestSpeech(t *testing.T) {
	if None.Speech() != "" {
		t.Errorf("None.Speech: got %q, want empty", None.Speech())
	}
	if Red.Speech() == "" || Green.Speech() == "" {
		t.Error("Red and Green must carry spoken phrases")
	}
}
