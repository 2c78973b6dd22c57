package haptic

import (
	"testing"
	"time"
)

func TestPulser_TrainAndStop(t *testing.T) {
	mock := NewMock()
	p := NewPulser(mock)

	p.Start(5 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	p.Stop()

	got := mock.PulseCount()
	if got < 2 {
		t.Errorf("expected several pulses, got %d", got)
	}

	// No pulses after Stop
	time.Sleep(20 * time.Millisecond)
	if after := mock.PulseCount(); after != got {
		t.Errorf("pulses continued after Stop: %d -> %d", got, after)
	}
}

func TestPulser_ZeroIntervalStartsNothing(t *testing.T) {
	mock := NewMock()
	p := NewPulser(mock)

	p.Start(0)
	time.Sleep(10 * time.Millisecond)
	if got := mock.PulseCount(); got != 0 {
		t.Errorf("zero interval pulsed %d times", got)
	}
}

func TestPulser_RestartReplacesTrain(t *testing.T) {
	mock := NewMock()
	p := NewPulser(mock)

	p.Start(50 * time.Millisecond)
	p.Start(5 * time.Millisecond) // replaces the slow train
	time.Sleep(25 * time.Millisecond)
	p.Stop()

	if got := mock.PulseCount(); got < 3 {
		t.Errorf("fast train should dominate, got %d pulses", got)
	}
}

func TestPulser_StopIdempotent(t *testing.T) {
	p := NewPulser(NewMock())
	p.Stop()
	p.Start(5 * time.Millisecond)
	p.Stop()
	p.Stop()
}
