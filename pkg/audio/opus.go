package audio

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// Opus streams arrive at 48kHz mono from the TTS providers.
const opusSampleRate = 48000

// maxOpusFrameSamples is the largest opus frame (120ms at 48kHz).
const maxOpusFrameSamples = 5760

// OpusDecoder converts opus packets into PCM16 mono bytes for the Player.
type OpusDecoder struct {
	dec *opus.Decoder
	buf []int16
}

// NewOpusDecoder creates a decoder for 48kHz mono opus streams.
func NewOpusDecoder() (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(opusSampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}
	return &OpusDecoder{
		dec: dec,
		buf: make([]int16, maxOpusFrameSamples),
	}, nil
}

// SampleRate returns the PCM sample rate of decoded output.
func (d *OpusDecoder) SampleRate() int {
	return opusSampleRate
}

// DecodePacket decodes one opus packet to little-endian PCM16 bytes.
func (d *OpusDecoder) DecodePacket(packet []byte) ([]byte, error) {
	n, err := d.dec.Decode(packet, d.buf)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}

	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		out[2*i] = byte(d.buf[i])
		out[2*i+1] = byte(d.buf[i] >> 8)
	}
	return out, nil
}
