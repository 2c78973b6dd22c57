package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/crosslight-labs/go-crosslight/pkg/detection"
	"github.com/crosslight-labs/go-crosslight/pkg/feedback"
	"github.com/crosslight-labs/go-crosslight/pkg/signal"
	"github.com/crosslight-labs/go-crosslight/pkg/tracker"
)

func newTestServer(t *testing.T) (*Server, *tracker.Tracker) {
	t.Helper()
	trk, err := tracker.New(tracker.DefaultConfig(), feedback.NewMock())
	if err != nil {
		t.Fatalf("tracker.New error: %v", err)
	}
	return NewServer(":0", trk), trk
}

func TestPhaseEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/phase", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var status PhaseStatus
	json.NewDecoder(resp.Body).Decode(&status)

	if status.Phase != signal.None.String() {
		t.Errorf("Phase = %s, want %s", status.Phase, signal.None)
	}
	if status.Label != signal.None.DisplayLabel() {
		t.Errorf("Label = %s, want %s", status.Label, signal.None.DisplayLabel())
	}
}

func TestPhaseEndpointAfterPublish(t *testing.T) {
	s, _ := newTestServer(t)

	s.PublishPhase(signal.Green)

	req := httptest.NewRequest("GET", "/api/phase", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	var status PhaseStatus
	json.NewDecoder(resp.Body).Decode(&status)

	if status.Phase != signal.Green.String() {
		t.Errorf("Phase = %s, want %s", status.Phase, signal.Green)
	}
	if status.Color != signal.Green.DisplayColor() {
		t.Errorf("Color = %s, want %s", status.Color, signal.Green.DisplayColor())
	}
	if status.UpdatedAt == "" {
		t.Error("UpdatedAt should be set after publish")
	}
}

func TestGetConfig(t *testing.T) {
	s, trk := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/config", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var cfg tracker.Config
	json.NewDecoder(resp.Body).Decode(&cfg)

	if cfg != trk.Config() {
		t.Errorf("config = %+v, want %+v", cfg, trk.Config())
	}
}

func TestUpdateConfig(t *testing.T) {
	s, trk := newTestServer(t)

	body, _ := json.Marshal(tracker.ResponsiveConfig())
	req := httptest.NewRequest("PUT", "/api/config", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	if got := trk.Config().ConfirmationThreshold; got != tracker.ResponsiveConfig().ConfirmationThreshold {
		t.Errorf("ConfirmationThreshold = %d after update", got)
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	s, trk := newTestServer(t)
	before := trk.Config()

	bad := before
	bad.ConfirmationThreshold = 0
	body, _ := json.Marshal(bad)

	req := httptest.NewRequest("PUT", "/api/config", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}

	if trk.Config() != before {
		t.Error("invalid update must not change the active config")
	}
}

func TestDetectionsEndpoint(t *testing.T) {
	s, trk := newTestServer(t)

	trk.Ingest([]detection.Detection{
		{Bounds: detection.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, Label: 0, Confidence: 0.9},
	})

	req := httptest.NewRequest("GET", "/api/detections", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Detections []trackedEntry `json:"detections"`
		Count      int            `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&payload)

	if payload.Count != 1 {
		t.Fatalf("Count = %d, want 1", payload.Count)
	}
	if payload.Detections[0].Phase != signal.Red.String() {
		t.Errorf("Phase = %s, want %s", payload.Detections[0].Phase, signal.Red)
	}
	if payload.Detections[0].ID == "" {
		t.Error("tracked entry should carry its identity")
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("ok")) {
		t.Error("health response should report ok")
	}
}
