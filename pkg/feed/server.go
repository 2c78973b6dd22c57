package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crosslight-labs/go-crosslight/internal/log"
)

// CameraConnection represents a connected camera node
type CameraConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the camera node
func (c *CameraConnection) Send(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Server accepts WebSocket connections from camera nodes and dispatches
// their frames and detections to the processing pipeline.
type Server struct {
	mu      sync.RWMutex
	cameras map[string]*CameraConnection

	// Callbacks
	onFrame      func(cameraID string, frame *FrameData)
	onDetections func(cameraID string, dets *DetectionsData)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
}

// NewServer creates a new camera feed server
func NewServer() *Server {
	return &Server{
		cameras: make(map[string]*CameraConnection),
	}
}

// OnFrame sets the callback for incoming video frames
func (s *Server) OnFrame(callback func(cameraID string, frame *FrameData)) {
	s.mu.Lock()
	s.onFrame = callback
	s.mu.Unlock()
}

// OnDetections sets the callback for incoming on-device detections
func (s *Server) OnDetections(callback func(cameraID string, dets *DetectionsData)) {
	s.mu.Lock()
	s.onDetections = callback
	s.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (s *Server) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Camera connection endpoint
	app.Get("/ws/camera", websocket.New(s.handleCamera))
	app.Get("/ws/camera/:id", websocket.New(s.handleCamera))
}

// handleCamera handles a camera WebSocket connection
func (s *Server) handleCamera(c *websocket.Conn) {
	cameraID := c.Params("id")
	if cameraID == "" {
		cameraID = uuid.NewString()
	}

	camera := &CameraConnection{
		ID:        cameraID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	s.mu.Lock()
	s.cameras[cameraID] = camera
	count := len(s.cameras)
	s.mu.Unlock()

	log.Info("camera connected", "camera", cameraID, "total", count)

	defer func() {
		s.mu.Lock()
		delete(s.cameras, cameraID)
		count := len(s.cameras)
		s.mu.Unlock()

		log.Info("camera disconnected", "camera", cameraID, "total", count)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("camera read error", "camera", cameraID, "error", err)
			return
		}

		camera.mu.Lock()
		camera.LastSeen = time.Now()
		camera.mu.Unlock()

		s.messagesReceived.Add(1)
		s.handleMessage(cameraID, data)
	}
}

// handleMessage processes an incoming message from a camera node
func (s *Server) handleMessage(cameraID string, data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		log.Debug("camera message parse error", "camera", cameraID, "error", err)
		return
	}

	s.mu.RLock()
	frameCb := s.onFrame
	detectionsCb := s.onDetections
	s.mu.RUnlock()

	switch msg.Type {
	case TypeFrame:
		s.framesReceived.Add(1)
		if frameCb != nil {
			frame, err := msg.GetFrameData()
			if err == nil {
				frameCb(cameraID, frame)
			}
		}

	case TypeDetections:
		if detectionsCb != nil {
			dets, err := msg.GetDetectionsData()
			if err == nil {
				detectionsCb(cameraID, dets)
			}
		}

	case TypePing:
		// Respond with pong
		s.SendPong(cameraID, msg.Timestamp)
	}
}

// SendConfig sends a camera configuration update to a camera node
func (s *Server) SendConfig(cameraID string, cfg ConfigData) error {
	msg, err := NewConfigMessage(cfg)
	if err != nil {
		return err
	}
	return s.sendToCamera(cameraID, msg)
}

// SendPong sends a pong response to a camera node
func (s *Server) SendPong(cameraID string, pingTS int64) error {
	msg, err := NewPongMessage("", pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return s.sendToCamera(cameraID, msg)
}

// sendToCamera sends a message to a specific camera node
func (s *Server) sendToCamera(cameraID string, msg *Message) error {
	s.mu.RLock()
	camera, ok := s.cameras[cameraID]
	s.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "camera not connected")
	}

	s.messagesSent.Add(1)
	return camera.Send(msg)
}

// BroadcastPhase announces the current phase to all connected camera nodes
func (s *Server) BroadcastPhase(phase, color, label string) {
	msg, err := NewPhaseMessage(phase, color, label)
	if err != nil {
		return
	}
	s.Broadcast(msg)
}

// Broadcast sends a message to all connected camera nodes
func (s *Server) Broadcast(msg *Message) {
	s.mu.RLock()
	cameras := make([]*CameraConnection, 0, len(s.cameras))
	for _, c := range s.cameras {
		cameras = append(cameras, c)
	}
	s.mu.RUnlock()

	for _, camera := range cameras {
		s.messagesSent.Add(1)
		if err := camera.Send(msg); err != nil {
			log.Debug("broadcast error", "camera", camera.ID, "error", err)
		}
	}
}

// GetCamera returns a camera connection by ID
func (s *Server) GetCamera(cameraID string) *CameraConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cameras[cameraID]
}

// CameraCount returns the number of connected camera nodes
func (s *Server) CameraCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cameras)
}

// Stats contains feed server statistics
type Stats struct {
	CameraCount      int    `json:"camera_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
}

// GetStats returns feed server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		CameraCount:      s.CameraCount(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSent:     s.messagesSent.Load(),
		FramesReceived:   s.framesReceived.Load(),
	}
}

// CameraInfo contains info about a connected camera node
type CameraInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetCameraInfos returns info about all connected camera nodes
func (s *Server) GetCameraInfos() []CameraInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]CameraInfo, 0, len(s.cameras))
	for _, c := range s.cameras {
		c.mu.Lock()
		infos = append(infos, CameraInfo{
			ID:        c.ID,
			Connected: c.Connected,
			LastSeen:  c.LastSeen,
		})
		c.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for camera management
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	cameras := api.Group("/cameras")

	// List connected cameras
	cameras.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cameras": s.GetCameraInfos(),
			"count":   s.CameraCount(),
		})
	})

	// Get feed stats
	cameras.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.GetStats())
	})

	// Push camera settings
	cameras.Post("/:id/config", func(c *fiber.Ctx) error {
		cameraID := c.Params("id")

		var cfg ConfigData
		if err := c.BodyParser(&cfg); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}

		if err := s.SendConfig(cameraID, cfg); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{"status": "sent"})
	})
}
