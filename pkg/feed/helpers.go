package feed

import (
	"encoding/base64"

	"github.com/crosslight-labs/go-crosslight/pkg/detection"
)

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	})
}

// NewDetectionsMessage creates a detections message from detector output
func NewDetectionsMessage(frameID uint64, dets []detection.Detection) (*Message, error) {
	boxes := make([]Box, len(dets))
	for i, d := range dets {
		boxes[i] = Box{
			X:          d.Bounds.X,
			Y:          d.Bounds.Y,
			W:          d.Bounds.W,
			H:          d.Bounds.H,
			Label:      d.Label,
			Confidence: d.Confidence,
		}
	}
	return NewMessage(TypeDetections, DetectionsData{FrameID: frameID, Boxes: boxes})
}

// NewPhaseMessage creates a phase announcement message
func NewPhaseMessage(phase, color, label string) (*Message, error) {
	return NewMessage(TypePhase, PhaseData{Phase: phase, Color: color, Label: label})
}

// NewConfigMessage creates a camera configuration message
func NewConfigMessage(cfg ConfigData) (*Message, error) {
	return NewMessage(TypeConfig, cfg)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrame decodes the base64 image data
func (f *FrameData) DecodeFrame() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetDetectionsData extracts detections from a message
func (m *Message) GetDetectionsData() (*DetectionsData, error) {
	var data DetectionsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Detections converts wire boxes to detector output.
func (d *DetectionsData) Detections() []detection.Detection {
	dets := make([]detection.Detection, len(d.Boxes))
	for i, b := range d.Boxes {
		dets[i] = detection.Detection{
			Bounds:     detection.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H},
			Label:      b.Label,
			Confidence: b.Confidence,
		}
	}
	return dets
}

// GetPhaseData extracts phase data from a message
func (m *Message) GetPhaseData() (*PhaseData, error) {
	var data PhaseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetConfigData extracts camera config from a message
func (m *Message) GetConfigData() (*ConfigData, error) {
	var data ConfigData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
