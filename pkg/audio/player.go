// Package audio plays feedback cues and synthesized speech on the local
// audio device through a child player process.
package audio

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// DefaultSampleRate matches the PCM24 output of the TTS providers.
const DefaultSampleRate = 24000

// Player streams PCM16 mono audio to an external playback process.
// A zero-value Player is not usable; construct with NewPlayer.
type Player struct {
	playerBin string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	playing bool
}

// NewPlayer creates a player that pipes PCM to the given binary.
// Pass "" to use aplay, the ALSA default.
func NewPlayer(playerBin string) *Player {
	if playerBin == "" {
		playerBin = "aplay"
	}
	return &Player{playerBin: playerBin}
}

// Play starts playback of the given PCM16 mono buffer and returns once the
// data has been handed to the player process. A previous playback still in
// progress is stopped first.
func (p *Player) Play(pcm []byte, sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	cmd := exec.Command(p.playerBin,
		"-q",
		"-f", "S16_LE",
		"-r", fmt.Sprint(sampleRate),
		"-c", "1",
		"-t", "raw",
		"-",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.playerBin, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.playing = true

	// Feed and reap off the caller's goroutine so Play never blocks the
	// frame loop on device buffering.
	go func() {
		stdin.Write(pcm)
		stdin.Close()
		cmd.Wait()

		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
			p.stdin = nil
			p.playing = false
		}
		p.mu.Unlock()
	}()

	return nil
}

// Stop halts any in-progress playback. Safe to call when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopLocked kills the player process. Caller holds the lock.
func (p *Player) stopLocked() {
	if !p.playing {
		return
	}
	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd = nil
	p.stdin = nil
	p.playing = false
}

// Playing reports whether a playback process is currently running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
