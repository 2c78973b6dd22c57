// Package haptic drives vibration pulse trains for phase feedback.
package haptic

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// pulseLength is how long a single buzz lasts. The phase's pulse interval
// controls the spacing between buzzes, not their length.
const pulseLength = 80 * time.Millisecond

// Driver is a vibration motor backend.
type Driver interface {
	// Pulse runs the motor for the given duration.
	Pulse(d time.Duration) error

	// Close releases the device.
	Close() error
}

// Pulser repeats pulses at a fixed cadence until stopped.
type Pulser struct {
	driver Driver

	mu   sync.Mutex
	stop chan struct{}
}

// NewPulser creates a pulser over the given driver.
func NewPulser(driver Driver) *Pulser {
	return &Pulser{driver: driver}
}

// Start begins a pulse train with the given interval between pulses.
// Any train already running is stopped first. A non-positive interval
// stops without starting anything.
func (p *Pulser) Start(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if interval <= 0 || p.driver == nil {
		return
	}

	stop := make(chan struct{})
	p.stop = stop

	go func() {
		// Immediate first pulse so the transition is felt at once
		p.driver.Pulse(pulseLength)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.driver.Pulse(pulseLength)
			}
		}
	}()
}

// Stop halts the pulse train. Safe to call when idle.
func (p *Pulser) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pulser) stopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

// SysfsDriver drives a vibration motor through the kernel timed-output
// interface (/sys/class/timed_output/vibrator/enable on most handsets).
type SysfsDriver struct {
	path string
}

// NewSysfsDriver opens the timed-output device at path.
// Pass "" for the conventional default.
func NewSysfsDriver(path string) (*SysfsDriver, error) {
	if path == "" {
		path = "/sys/class/timed_output/vibrator/enable"
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("vibrator device: %w", err)
	}
	return &SysfsDriver{path: path}, nil
}

// Pulse writes the buzz duration in milliseconds to the device.
func (d *SysfsDriver) Pulse(dur time.Duration) error {
	return os.WriteFile(d.path, []byte(fmt.Sprint(dur.Milliseconds())), 0o644)
}

// Close releases the device.
func (d *SysfsDriver) Close() error {
	return nil
}
