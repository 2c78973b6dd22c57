package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/crosslight-labs/go-crosslight/pkg/hub"
)

// trackedEntry is the wire form of one tracked detection.
type trackedEntry struct {
	ID           string  `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	W            float64 `json:"w"`
	H            float64 `json:"h"`
	ConfirmCount int     `json:"confirm_count"`
	Phase        string  `json:"phase"`
}

// handlePhase returns the current crossing phase
func (s *Server) handlePhase(c *fiber.Ctx) error {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return c.JSON(s.status)
}

// handleHealth returns process liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"phase":  s.tracker.Phase().String(),
	})
}

// handleGetConfig returns the active tracker configuration
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Config())
}

// handleUpdateConfig swaps the tracker configuration.
// Validation failures come back as 400 with the reason.
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	cfg := s.tracker.Config()
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.tracker.Reconfigure(cfg); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(cfg)
}

// handleDetections returns the tracked detection set
func (s *Server) handleDetections(c *fiber.Ctx) error {
	snapshot := s.tracker.Snapshot()

	entries := make([]trackedEntry, len(snapshot))
	for i, td := range snapshot {
		entries[i] = trackedEntry{
			ID:           td.ID,
			X:            td.Bounds.X,
			Y:            td.Bounds.Y,
			W:            td.Bounds.W,
			H:            td.Bounds.H,
			ConfirmCount: td.ConfirmCount,
			Phase:        td.Phase.String(),
		}
	}

	return c.JSON(fiber.Map{
		"detections": entries,
		"count":      len(entries),
	})
}

// handleStatusWS streams phase updates to a dashboard client
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send current phase before joining the broadcast stream
	s.statusMu.RLock()
	c.WriteJSON(s.status)
	s.statusMu.RUnlock()

	client := hub.NewClient(s.statusHub, c)
	client.Run() // Blocks until the connection closes
}

// handleCameraWS streams camera frames to a dashboard client
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	client.Run()
}
