package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != ErrNoAPIKey {
		t.Errorf("empty key: got %v, want ErrNoAPIKey", err)
	}

	cfg.Apply(WithAPIKey("k"))
	if err := cfg.Validate(); err != nil {
		t.Errorf("with key: got %v, want nil", err)
	}
	if err := cfg.ValidateWithVoice(); err != ErrNoVoiceID {
		t.Errorf("no voice: got %v, want ErrNoVoiceID", err)
	}

	cfg.Apply(WithVoice("v"))
	if err := cfg.ValidateWithVoice(); err != nil {
		t.Errorf("with voice: got %v, want nil", err)
	}
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	if _, err := NewOpenAI(); err != ErrNoAPIKey {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
}

func TestNewElevenLabs_RequiresVoice(t *testing.T) {
	if _, err := NewElevenLabs(WithAPIKey("k")); err != ErrNoVoiceID {
		t.Errorf("got %v, want ErrNoVoiceID", err)
	}
}

func TestOpenAI_Synthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: %q", got)
		}
		w.Write(audio)
	}))
	defer srv.Close()

	p, err := NewOpenAI(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "Green light. You can cross.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(result.Audio) != string(audio) {
		t.Errorf("audio: got %q", result.Audio)
	}
	if result.Format.Encoding != EncodingMP3 {
		t.Errorf("encoding: got %v", result.Format.Encoding)
	}
	if result.CharCount != len("Green light. You can cross.") {
		t.Errorf("char count: got %d", result.CharCount)
	}
}

func TestOpenAI_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAI(WithAPIKey("bad"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	_, err = p.Synthesize(context.Background(), "hello")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 401 || apiErr.Code != "invalid_api_key" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p, err := NewOpenAI(
		WithAPIKey("k"),
		WithBaseURL(srv.URL),
		WithRetry(3, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	result, err := p.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts: got %d, want 3", attempts)
	}
	if string(result.Audio) != "ok" {
		t.Errorf("audio: %q", result.Audio)
	}
}

func TestMock_RecordsCalls(t *testing.T) {
	m := NewMock()

	result, err := m.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) != 5*960 {
		t.Errorf("silence length: got %d", len(result.Audio))
	}

	if err := m.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	if got := m.CallCount("Synthesize"); got != 1 {
		t.Errorf("Synthesize count: %d", got)
	}
	if got := m.CallCount("Health"); got != 1 {
		t.Errorf("Health count: %d", got)
	}
}

func TestBufferStream(t *testing.T) {
	s := &bufferStream{data: []byte("abc"), format: AudioFormat{Encoding: EncodingPCM24}}

	chunk, err := s.Read()
	if err != nil || string(chunk) != "abc" {
		t.Fatalf("first read: %q, %v", chunk, err)
	}
	chunk, err = s.Read()
	if err != nil || chunk != nil {
		t.Errorf("end of stream: %q, %v", chunk, err)
	}
}
