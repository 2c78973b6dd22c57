package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/crosslight-labs/go-crosslight/pkg/detection"
)

func TestMessageRoundTrip(t *testing.T) {
	msg, err := NewFrameMessage(640, 480, []byte("jpeg-bytes"), 7)
	if err != nil {
		t.Fatalf("NewFrameMessage error: %v", err)
	}

	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	if parsed.Type != TypeFrame {
		t.Errorf("Type = %s, want frame", parsed.Type)
	}

	frame, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData error: %v", err)
	}
	if frame.Width != 640 || frame.Height != 480 || frame.FrameID != 7 {
		t.Errorf("frame = %+v", frame)
	}

	raw, err := frame.DecodeFrame()
	if err != nil {
		t.Fatalf("DecodeFrame error: %v", err)
	}
	if string(raw) != "jpeg-bytes" {
		t.Errorf("payload = %q", raw)
	}
}

func TestDetectionsConversion(t *testing.T) {
	dets := []detection.Detection{
		{Bounds: detection.Rect{X: 0.1, Y: 0.2, W: 0.3, H: 0.4}, Label: 1, Confidence: 0.9},
		{Bounds: detection.Rect{X: 0.5, Y: 0.5, W: 0.1, H: 0.1}, Label: 0, Confidence: 0.7},
	}

	msg, err := NewDetectionsMessage(3, dets)
	if err != nil {
		t.Fatalf("NewDetectionsMessage error: %v", err)
	}

	parsed, err := msg.GetDetectionsData()
	if err != nil {
		t.Fatalf("GetDetectionsData error: %v", err)
	}
	if parsed.FrameID != 3 {
		t.Errorf("FrameID = %d, want 3", parsed.FrameID)
	}

	back := parsed.Detections()
	if len(back) != 2 {
		t.Fatalf("len = %d, want 2", len(back))
	}
	if back[0] != dets[0] || back[1] != dets[1] {
		t.Errorf("round trip changed detections: %+v", back)
	}
}

func TestParseMessageInvalid(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("ParseMessage should reject invalid JSON")
	}
}

func TestServerCallbackSetters(t *testing.T) {
	s := NewServer()

	// Should not panic
	s.OnFrame(func(cameraID string, frame *FrameData) {})
	s.OnDetections(func(cameraID string, dets *DetectionsData) {})
}

func TestGetCameraNotFound(t *testing.T) {
	s := NewServer()

	if s.GetCamera("nonexistent") != nil {
		t.Error("GetCamera should return nil for unknown camera")
	}
	if s.CameraCount() != 0 {
		t.Error("CameraCount should be 0 initially")
	}
}

func TestSendToDisconnectedCamera(t *testing.T) {
	s := NewServer()

	if err := s.SendConfig("nonexistent", ConfigData{Quality: 80}); err == nil {
		t.Error("SendConfig should return error for unknown camera")
	}
}

func TestWebSocketConnection(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)

	go app.Listen(":18090")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/camera/test-camera", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	if s.CameraCount() != 1 {
		t.Errorf("CameraCount = %d, want 1", s.CameraCount())
	}
	if s.GetCamera("test-camera") == nil {
		t.Error("GetCamera should return the connected camera")
	}

	ws.Close()
	time.Sleep(100 * time.Millisecond)

	if s.CameraCount() != 0 {
		t.Errorf("CameraCount = %d, want 0 after disconnect", s.CameraCount())
	}
}

func TestDetectionsCallback(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)

	var received atomic.Bool
	var receivedCameraID string

	s.OnDetections(func(cameraID string, dets *DetectionsData) {
		receivedCameraID = cameraID
		received.Store(true)
	})

	go app.Listen(":18091")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/camera/det-test", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	msg, _ := NewDetectionsMessage(1, []detection.Detection{
		{Bounds: detection.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, Label: 0, Confidence: 0.8},
	})
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	time.Sleep(100 * time.Millisecond)

	if !received.Load() {
		t.Error("Detections callback should have been called")
	}
	if receivedCameraID != "det-test" {
		t.Errorf("Camera ID = %s, want det-test", receivedCameraID)
	}
}

func TestFrameStats(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)

	go app.Listen(":18092")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18092/ws/camera/stats-test", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	msg, _ := NewFrameMessage(320, 240, []byte("frame"), 1)
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	time.Sleep(100 * time.Millisecond)

	stats := s.GetStats()
	if stats.FramesReceived < 1 {
		t.Error("FramesReceived should be at least 1")
	}
	if stats.MessagesReceived < 1 {
		t.Error("MessagesReceived should be at least 1")
	}
}

func TestPingPong(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)

	go app.Listen(":18093")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18093/ws/camera/ping-test", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	msg, _ := NewMessage(TypePing, nil)
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	_, respData, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	var resp Message
	json.Unmarshal(respData, &resp)

	if resp.Type != TypePong {
		t.Errorf("Type = %s, want pong", resp.Type)
	}
}

func TestBroadcastPhase(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)

	go app.Listen(":18094")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18094/ws/camera/phase-test", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	s.BroadcastPhase("Green", "green", "Green")

	_, respData, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	parsed, err := ParseMessage(respData)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	if parsed.Type != TypePhase {
		t.Errorf("Type = %s, want phase", parsed.Type)
	}

	phase, err := parsed.GetPhaseData()
	if err != nil {
		t.Fatalf("GetPhaseData error: %v", err)
	}
	if phase.Phase != "Green" || phase.Color != "green" {
		t.Errorf("phase = %+v", phase)
	}
}

func TestAPIListCameras(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)
	s.RegisterAPIRoutes(app.Group("/api"))

	req := httptest.NewRequest("GET", "/api/cameras/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "cameras") {
		t.Error("Response should contain 'cameras' field")
	}
}

func TestAPIStats(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)
	s.RegisterAPIRoutes(app.Group("/api"))

	req := httptest.NewRequest("GET", "/api/cameras/stats", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func contextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func TestClientPushesFrames(t *testing.T) {
	s := NewServer()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.RegisterRoutes(app)

	var frames atomic.Int32
	s.OnFrame(func(cameraID string, frame *FrameData) {
		frames.Add(1)
	})

	go app.Listen(":18095")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	client := NewClient("ws://localhost:18095", "push-test")
	ctx, cancel := contextWithTimeout(t)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer client.Close()

	if err := client.SendFrame(640, 480, []byte("jpeg")); err != nil {
		t.Fatalf("SendFrame error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if frames.Load() != 1 {
		t.Errorf("frames received = %d, want 1", frames.Load())
	}
}
