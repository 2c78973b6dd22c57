// Package feed defines the WebSocket protocol between camera nodes and
// the crossing assistant, plus the server and client ends of it.
// A camera node pushes JPEG frames (or detections it computed on-device);
// the assistant pushes back phase updates and camera configuration.
package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Camera → Assistant messages
	TypeFrame      MessageType = "frame"      // JPEG video frame
	TypeDetections MessageType = "detections" // On-device detector output

	// Assistant → Camera messages
	TypePhase  MessageType = "phase"  // Current crossing phase
	TypeConfig MessageType = "config" // Camera configuration update

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// FrameData contains a video frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// Box is one detected signal head in normalized image coordinates.
type Box struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Label      int     `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DetectionsData carries detector output computed on the camera node.
type DetectionsData struct {
	FrameID uint64 `json:"frame_id,omitempty"`
	Boxes   []Box  `json:"boxes"`
}

// PhaseData announces the current crossing phase to camera nodes.
type PhaseData struct {
	Phase string `json:"phase"` // "red", "green", "none"
	Color string `json:"color"`
	Label string `json:"label"`
}

// ConfigData contains camera settings pushed from the assistant.
type ConfigData struct {
	Width     int `json:"width,omitempty"`
	Height    int `json:"height,omitempty"`
	Framerate int `json:"framerate,omitempty"`
	Quality   int `json:"quality,omitempty"` // JPEG quality 1-100
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
