// Package video provides WebRTC ingest from a wearable camera and H264
// to JPEG decoding for the detector.
package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/crosslight-labs/go-crosslight/internal/log"
)

// decodeWindow is how much H264 payload we accumulate before handing a
// batch to the decoder. Longer windows trade latency for keyframe odds.
const decodeWindow = 100 * time.Millisecond

// Client connects to the wearable camera's WebRTC stream through its
// GStreamer signalling server and exposes the latest decoded JPEG frame.
type Client struct {
	cameraIP      string
	signallingURL string

	ws      *websocket.Conn
	pc      *webrtc.PeerConnection
	wsMutex sync.Mutex

	myPeerID   string
	producerID string
	sessionID  string

	decoder *Decoder

	// Latest decoded frame
	latestFrame []byte
	frameMutex  sync.RWMutex
	trackReady  chan struct{}

	connected bool
	closed    bool
}

// NewClient creates a WebRTC ingest client for the camera at cameraIP.
func NewClient(cameraIP string) *Client {
	return &Client{
		cameraIP:      cameraIP,
		signallingURL: fmt.Sprintf("ws://%s:8443", cameraIP),
		decoder:       NewDecoder(decodeWindow),
		trackReady:    make(chan struct{}, 1),
	}
}

// Connect establishes the WebRTC connection. It blocks until the video
// track is flowing or the attempt times out.
func (c *Client) Connect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	var err error
	c.ws, _, err = dialer.Dial(c.signallingURL, nil)
	if err != nil {
		return fmt.Errorf("signalling connect failed: %w", err)
	}

	if err := c.waitForWelcome(); err != nil {
		return fmt.Errorf("welcome failed: %w", err)
	}
	log.Debug("signalling welcome", "peer", c.myPeerID)

	if err := c.findProducer(); err != nil {
		return fmt.Errorf("find producer failed: %w", err)
	}
	log.Debug("found camera producer", "producer", c.producerID)

	if err := c.createPeerConnection(); err != nil {
		return fmt.Errorf("peer connection failed: %w", err)
	}

	if err := c.startSession(); err != nil {
		return fmt.Errorf("start session failed: %w", err)
	}

	go c.handleSignalling()

	select {
	case <-c.trackReady:
		log.Info("camera video connected", "camera", c.cameraIP)
	case <-time.After(15 * time.Second):
		return fmt.Errorf("timeout waiting for video")
	}

	c.connected = true
	return nil
}

func (c *Client) waitForWelcome() error {
	c.ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := c.ws.ReadMessage()
	c.ws.SetReadDeadline(time.Time{})

	if err != nil {
		return err
	}

	var welcome struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", welcome.Type)
	}
	c.myPeerID = welcome.PeerID
	return nil
}

func (c *Client) findProducer() error {
	c.wsMutex.Lock()
	err := c.ws.WriteJSON(map[string]string{"type": "list"})
	c.wsMutex.Unlock()
	if err != nil {
		return err
	}

	c.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := c.ws.ReadMessage()
	c.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var listResp struct {
		Type      string `json:"type"`
		Producers []struct {
			ID   string            `json:"id"`
			Meta map[string]string `json:"meta"`
		} `json:"producers"`
	}
	if err := json.Unmarshal(msg, &listResp); err != nil {
		return err
	}

	// Any producer works; a single-camera rig only ever has one.
	if len(listResp.Producers) == 0 {
		return fmt.Errorf("no video producer on signalling server")
	}
	c.producerID = listResp.Producers[0].ID
	return nil
}

func (c *Client) createPeerConnection() error {
	config := webrtc.Configuration{}

	var err error
	c.pc, err = webrtc.NewPeerConnection(config)
	if err != nil {
		return err
	}

	// Receive-only video
	if _, err = c.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Debug("got track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.handleVideoTrack(track)
		}
	})

	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			c.sendICECandidate(candidate)
		}
	})

	c.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("webrtc state", "state", state.String())
	})

	return nil
}

func (c *Client) startSession() error {
	c.wsMutex.Lock()
	err := c.ws.WriteJSON(map[string]string{
		"type":   "startSession",
		"peerId": c.producerID,
	})
	c.wsMutex.Unlock()
	return err
}

func (c *Client) handleSignalling() {
	for !c.closed {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed {
				log.Warn("signalling error", "error", err)
			}
			return
		}

		var baseMsg struct {
			Type      string `json:"type"`
			SessionID string `json:"sessionId"`
		}
		json.Unmarshal(msg, &baseMsg)

		switch baseMsg.Type {
		case "sessionStarted":
			c.sessionID = baseMsg.SessionID

		case "peer":
			c.handlePeerMessage(msg)

		case "endSession":
			return
		}
	}
}

func (c *Client) handlePeerMessage(msg []byte) {
	var peerMsg map[string]interface{}
	json.Unmarshal(msg, &peerMsg)

	if sdpData, ok := peerMsg["sdp"]; ok {
		sdpMap, ok := sdpData.(map[string]interface{})
		if !ok {
			return
		}
		sdpType, _ := sdpMap["type"].(string)
		sdpStr, _ := sdpMap["sdp"].(string)

		if sdpType == "offer" {
			offer := webrtc.SessionDescription{
				Type: webrtc.SDPTypeOffer,
				SDP:  sdpStr,
			}

			if err := c.pc.SetRemoteDescription(offer); err != nil {
				log.Warn("SetRemoteDescription failed", "error", err)
				return
			}

			answer, err := c.pc.CreateAnswer(nil)
			if err != nil {
				log.Warn("CreateAnswer failed", "error", err)
				return
			}

			if err := c.pc.SetLocalDescription(answer); err != nil {
				log.Warn("SetLocalDescription failed", "error", err)
				return
			}

			c.sendSDP(answer)
		}
	}

	if iceData, ok := peerMsg["ice"]; ok {
		iceMap, ok := iceData.(map[string]interface{})
		if !ok {
			return
		}
		candidate, _ := iceMap["candidate"].(string)

		var sdpMid string
		if mid, ok := iceMap["sdpMid"]; ok && mid != nil {
			sdpMid, _ = mid.(string)
		}

		var sdpMLineIndex uint16
		if idx, ok := iceMap["sdpMLineIndex"]; ok && idx != nil {
			if f, ok := idx.(float64); ok {
				sdpMLineIndex = uint16(f)
			}
		}

		c.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     candidate,
			SDPMid:        &sdpMid,
			SDPMLineIndex: &sdpMLineIndex,
		})
	}
}

func (c *Client) sendSDP(sdp webrtc.SessionDescription) {
	msg := map[string]interface{}{
		"type":      "peer",
		"sessionId": c.sessionID,
		"sdp": map[string]string{
			"type": sdp.Type.String(),
			"sdp":  sdp.SDP,
		},
	}
	c.wsMutex.Lock()
	c.ws.WriteJSON(msg)
	c.wsMutex.Unlock()
}

func (c *Client) sendICECandidate(candidate *webrtc.ICECandidate) {
	if c.sessionID == "" {
		return
	}

	init := candidate.ToJSON()
	msg := map[string]interface{}{
		"type":      "peer",
		"sessionId": c.sessionID,
		"ice": map[string]interface{}{
			"candidate":     init.Candidate,
			"sdpMid":        init.SDPMid,
			"sdpMLineIndex": init.SDPMLineIndex,
		},
	}
	c.wsMutex.Lock()
	c.ws.WriteJSON(msg)
	c.wsMutex.Unlock()
}

// handleVideoTrack accumulates RTP payloads and hands decode windows to
// the ffmpeg decoder.
func (c *Client) handleVideoTrack(track *webrtc.TrackRemote) {
	select {
	case c.trackReady <- struct{}{}:
	default:
	}

	var nalBuffer bytes.Buffer
	lastDecode := time.Now()

	for !c.closed {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		c.appendPayload(&nalBuffer, pkt)

		if time.Since(lastDecode) > decodeWindow {
			if jpeg, err := c.decoder.DecodeNAL(nalBuffer.Bytes()); err == nil && jpeg != nil {
				c.frameMutex.Lock()
				c.latestFrame = jpeg
				c.frameMutex.Unlock()
			}
			nalBuffer.Reset()
			lastDecode = time.Now()
		}
	}
}

// appendPayload strips the RTP envelope and keeps the H264 payload.
func (c *Client) appendPayload(buf *bytes.Buffer, pkt *rtp.Packet) {
	if len(pkt.Payload) == 0 {
		return
	}
	buf.Write(pkt.Payload)
}

// Frame returns the latest video frame as JPEG bytes.
func (c *Client) Frame() ([]byte, error) {
	c.frameMutex.RLock()
	defer c.frameMutex.RUnlock()

	if c.latestFrame == nil {
		return nil, fmt.Errorf("no frame available")
	}

	frame := make([]byte, len(c.latestFrame))
	copy(frame, c.latestFrame)
	return frame, nil
}

// WaitForFrame waits for a frame to be available.
func (c *Client) WaitForFrame(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		frame, err := c.Frame()
		if err == nil {
			return frame, nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	return nil, fmt.Errorf("timeout waiting for frame")
}

// Connected reports whether the video track is flowing.
func (c *Client) Connected() bool {
	return c.connected
}

// Close closes the WebRTC connection.
func (c *Client) Close() {
	c.closed = true
	if c.pc != nil {
		c.pc.Close()
	}
	if c.ws != nil {
		c.ws.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
