package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/crosslight-labs/go-crosslight/internal/log"
	"github.com/crosslight-labs/go-crosslight/pkg/detection"
)

const (
	dialTimeout   = 10 * time.Second
	reconnectWait = 2 * time.Second
	pingInterval  = 30 * time.Second
)

// Client is the camera-node end of the feed: it pushes frames or
// on-device detections to the assistant and receives phase and config
// updates back.
type Client struct {
	url      string
	cameraID string

	mu      sync.Mutex
	conn    *websocket.Conn
	frameID uint64

	// OnPhase is called when the assistant announces a phase change.
	OnPhase func(phase *PhaseData)

	// OnConfig is called when the assistant pushes camera settings.
	OnConfig func(cfg *ConfigData)
}

// NewClient creates a feed client for the given assistant URL
// (e.g. "ws://assistant.local:8091"). An empty cameraID gets a
// generated one.
func NewClient(url, cameraID string) *Client {
	if cameraID == "" {
		cameraID = uuid.NewString()
	}
	return &Client{
		url:      url,
		cameraID: cameraID,
	}
}

// CameraID returns the camera identifier used on the wire.
func (c *Client) CameraID() string {
	return c.cameraID
}

// Connect dials the assistant and starts the read loop. It returns once
// the connection is established; the read loop reconnects on failure
// until ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	go c.readLoop(ctx)
	go c.pingLoop(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	endpoint := fmt.Sprintf("%s/ws/camera/%s", c.url, c.cameraID)
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("feed dial %s: %w", endpoint, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	log.Info("feed connected", "url", endpoint, "camera", c.cameraID)
	return nil
}

// readLoop consumes assistant messages and reconnects on failure.
func (c *Client) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			if err := c.dial(ctx); err != nil {
				log.Warn("feed reconnect failed", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectWait):
				}
			}
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("feed connection lost", "error", err)
			conn.Close()
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			continue
		}

		msg, err := ParseMessage(data)
		if err != nil {
			continue
		}

		switch msg.Type {
		case TypePhase:
			if c.OnPhase != nil {
				if phase, err := msg.GetPhaseData(); err == nil {
					c.OnPhase(phase)
				}
			}
		case TypeConfig:
			if c.OnConfig != nil {
				if cfg, err := msg.GetConfigData(); err == nil {
					c.OnConfig(cfg)
				}
			}
		}
	}
}

// pingLoop keeps the connection alive through idle periods.
func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg, err := NewPingMessage(uuid.NewString())
			if err != nil {
				continue
			}
			c.send(msg)
		}
	}
}

// SendFrame pushes a JPEG frame to the assistant.
func (c *Client) SendFrame(width, height int, jpegData []byte) error {
	c.mu.Lock()
	c.frameID++
	id := c.frameID
	c.mu.Unlock()

	msg, err := NewFrameMessage(width, height, jpegData, id)
	if err != nil {
		return err
	}
	return c.send(msg)
}

// SendDetections pushes on-device detector output to the assistant.
func (c *Client) SendDetections(dets []detection.Detection) error {
	c.mu.Lock()
	c.frameID++
	id := c.frameID
	c.mu.Unlock()

	msg, err := NewDetectionsMessage(id, dets)
	if err != nil {
		return err
	}
	return c.send(msg)
}

func (c *Client) send(msg *Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("feed not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
