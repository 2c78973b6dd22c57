// Package web provides the dashboard server: phase and camera websockets
// plus a small REST API for configuration.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/crosslight-labs/go-crosslight/internal/log"
	"github.com/crosslight-labs/go-crosslight/pkg/hub"
	"github.com/crosslight-labs/go-crosslight/pkg/signal"
	"github.com/crosslight-labs/go-crosslight/pkg/tracker"
)

// PhaseStatus is the dashboard's view of the current phase.
type PhaseStatus struct {
	Phase     string `json:"phase"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Server is the dashboard server
type Server struct {
	app  *fiber.App
	addr string

	tracker *tracker.Tracker

	// Current phase for late-joining clients
	status   PhaseStatus
	statusMu sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates a dashboard server over the given tracker.
func NewServer(addr string, trk *tracker.Tracker) *Server {
	s := &Server{
		addr:      addr,
		tracker:   trk,
		status:    statusFor(signal.None),
		statusHub: hub.New("status"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Crosslight Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/phase", s.handlePhase)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handleUpdateConfig)
	api.Get("/detections", s.handleDetections)

	app.Get("/health", s.handleHealth)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start starts the dashboard server
func (s *Server) Start() error {
	log.Info("dashboard listening", "addr", s.addr)

	go s.statusHub.Run()
	go s.cameraHub.Run()

	return s.app.Listen(s.addr)
}

// StartAsync starts the dashboard server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server error", "error", err)
		}
	}()
}

// PublishPhase updates the dashboard's phase and broadcasts it to all
// connected status clients.
func (s *Server) PublishPhase(p signal.Phase) {
	status := statusFor(p)
	status.UpdatedAt = time.Now().Format(time.RFC3339)

	s.statusMu.Lock()
	s.status = status
	s.statusMu.Unlock()

	s.statusHub.BroadcastJSON(status)
}

// SendCameraFrame sends a camera frame to all connected clients
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.cameraHub.BroadcastBinary(jpegData)
}

// StatusHub returns the status hub for external use
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// CameraHub returns the camera hub for external use
func (s *Server) CameraHub() *hub.Hub {
	return s.cameraHub
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the dashboard server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func statusFor(p signal.Phase) PhaseStatus {
	return PhaseStatus{
		Phase: p.String(),
		Label: p.DisplayLabel(),
		Color: p.DisplayColor(),
	}
}
