package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crosslight-labs/go-crosslight/internal/httpc"
)

const (
	elevenLabsWSBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	providerElevenLabs  = "elevenlabs"
)

// ElevenLabs implements streaming Provider via the stream-input WebSocket.
// Each utterance dials a fresh connection; phase announcements are short
// and infrequent enough that connection reuse buys nothing.
type ElevenLabs struct {
	config *Config
	logger *slog.Logger
}

// NewElevenLabs creates a new WebSocket-based ElevenLabs TTS provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.ModelID = "eleven_turbo_v2_5"
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}

	return &ElevenLabs{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.elevenlabs"),
	}, nil
}

// wsMessage is one server frame from the stream-input endpoint.
type wsMessage struct {
	Audio   string `json:"audio"` // base64 audio chunk
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
}

// Stream converts text to audio with chunked output.
func (e *ElevenLabs) Stream(ctx context.Context, text string) (AudioStream, error) {
	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=%s",
		elevenLabsWSBaseURL, e.config.VoiceID, e.config.ModelID, e.config.OutputFormat)

	headers := http.Header{}
	headers.Set("xi-api-key", e.config.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, WrapError(providerElevenLabs,
				fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err))
		}
		return nil, WrapError(providerElevenLabs, fmt.Errorf("websocket dial failed: %w", err))
	}

	// BOS, text, EOS: the whole utterance in one shot.
	bos := map[string]interface{}{
		"text": " ",
		"generation_config": map[string]interface{}{
			"chunk_length_schedule": []int{120, 160, 250, 290},
		},
	}
	for _, msg := range []interface{}{
		bos,
		map[string]interface{}{"text": text + " ", "try_trigger_generation": true},
		map[string]interface{}{"text": ""},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return nil, WrapError(providerElevenLabs, fmt.Errorf("send: %w", err))
		}
	}

	return &elevenLabsStream{
		conn:     conn,
		deadline: time.Now().Add(e.config.StreamTimeout),
		format:   e.format(),
	}, nil
}

// Synthesize collects the full stream into one buffer.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	start := time.Now()

	stream, err := e.Stream(ctx, text)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var audio []byte
	var firstByte int64
	for {
		chunk, err := stream.Read()
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			break
		}
		if firstByte == 0 {
			firstByte = time.Since(start).Milliseconds()
		}
		audio = append(audio, chunk...)
	}

	e.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"ttfb_ms", firstByte,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    e.format(),
		CharCount: len(text),
		LatencyMs: firstByte,
	}, nil
}

// Health verifies the API key against the voices endpoint.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://api.elevenlabs.io/v1/voices", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := httpc.NewClient(e.config.Timeout).Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "voices endpoint rejected request",
			Provider:   providerElevenLabs,
		}
	}
	return nil
}

// Close releases resources. Connections are per-utterance, so nothing is held.
func (e *ElevenLabs) Close() error {
	return nil
}

func (e *ElevenLabs) format() AudioFormat {
	switch e.config.OutputFormat {
	case EncodingPCM16:
		return AudioFormat{Encoding: EncodingPCM16, SampleRate: 16000, Channels: 1, BitDepth: 16}
	case EncodingOpus:
		return AudioFormat{Encoding: EncodingOpus, SampleRate: 48000, Channels: 1}
	default:
		return AudioFormat{Encoding: EncodingPCM24, SampleRate: 24000, Channels: 1, BitDepth: 16}
	}
}

// elevenLabsStream reads audio chunks off the websocket until isFinal.
type elevenLabsStream struct {
	conn     *websocket.Conn
	deadline time.Time
	format   AudioFormat
	done     bool
}

// Read returns the next audio chunk, nil at end of stream.
func (s *elevenLabsStream) Read() ([]byte, error) {
	if s.done {
		return nil, nil
	}
	if s.conn == nil {
		return nil, ErrStreamClosed
	}

	for {
		s.conn.SetReadDeadline(s.deadline)
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.done = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil, nil
			}
			return nil, WrapError(providerElevenLabs, err)
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, WrapError(providerElevenLabs, fmt.Errorf("parse frame: %w", err))
		}
		if msg.Error != "" {
			s.done = true
			return nil, WrapError(providerElevenLabs, fmt.Errorf("server: %s", msg.Error))
		}
		if msg.IsFinal {
			s.done = true
			return nil, nil
		}
		if msg.Audio == "" {
			continue // keepalive or metadata frame
		}

		chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			return nil, WrapError(providerElevenLabs, fmt.Errorf("decode audio: %w", err))
		}
		return chunk, nil
	}
}

// Close tears down the websocket.
func (s *elevenLabsStream) Close() error {
	s.done = true
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Format returns the audio format metadata.
func (s *elevenLabsStream) Format() AudioFormat {
	return s.format
}

var _ Provider = (*ElevenLabs)(nil)
