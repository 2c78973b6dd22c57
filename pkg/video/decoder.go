package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"sync"
	"time"
)

// minNALBytes is the smallest payload worth handing to ffmpeg; anything
// shorter cannot contain a decodable frame.
const minNALBytes = 100

// Decoder turns accumulated H264 NAL units into JPEG frames by piping
// them through ffmpeg. Decoding is rate limited so a fast RTP stream
// doesn't fork a process per packet burst.
type Decoder struct {
	// Frame buffer
	latestFrame []byte
	frameMu     sync.RWMutex

	// Decode rate limiting
	lastDecode  time.Time
	minInterval time.Duration
	mu          sync.Mutex
}

// NewDecoder creates a decoder. minInterval controls how often ffmpeg
// runs (e.g. 50ms caps decoding at 20 FPS).
func NewDecoder(minInterval time.Duration) *Decoder {
	return &Decoder{
		minInterval: minInterval,
		lastDecode:  time.Now(),
	}
}

// DecodeNAL decodes H264 NAL units to JPEG. When rate limited, or when
// ffmpeg cannot produce a frame from the window, the previous frame is
// returned instead.
func (d *Decoder) DecodeNAL(nalData []byte) ([]byte, error) {
	if len(nalData) < minNALBytes {
		return d.LatestFrame(), nil
	}

	d.mu.Lock()
	if time.Since(d.lastDecode) < d.minInterval {
		d.mu.Unlock()
		return d.LatestFrame(), nil
	}
	d.lastDecode = time.Now()
	d.mu.Unlock()

	cmd := exec.Command("ffmpeg",
		"-f", "h264", // Input format
		"-i", "pipe:0", // Read from stdin
		"-vframes", "1", // Just one frame
		"-f", "image2pipe", // Output as pipe
		"-vcodec", "mjpeg", // Output as JPEG
		"-q:v", "3", // Quality (1-31, lower is better)
		"pipe:1", // Write to stdout
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	go func() {
		stdin.Write(nalData)
		stdin.Close()
	}()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			// ffmpeg exits nonzero when the window held no complete frame
			return d.LatestFrame(), nil
		}
	case <-time.After(100 * time.Millisecond):
		cmd.Process.Kill()
		return d.LatestFrame(), nil
	}

	jpegData := stdout.Bytes()
	if !usableJPEG(jpegData) {
		return d.LatestFrame(), nil
	}

	d.frameMu.Lock()
	d.latestFrame = jpegData
	d.frameMu.Unlock()
	return jpegData, nil
}

// LatestFrame returns the most recently decoded frame, or nil.
func (d *Decoder) LatestFrame() []byte {
	d.frameMu.RLock()
	defer d.frameMu.RUnlock()

	if d.latestFrame == nil {
		return nil
	}

	frame := make([]byte, len(d.latestFrame))
	copy(frame, d.latestFrame)
	return frame
}

// Close releases the decoder.
func (d *Decoder) Close() {
}

// usableJPEG rejects outputs too small or too degenerate to feed the
// detector. Partial decode windows produce tiny or uniform gray frames.
func usableJPEG(jpegData []byte) bool {
	if len(jpegData) < 1000 {
		return false
	}

	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return false
	}

	bounds := img.Bounds()
	if bounds.Dx() < 100 || bounds.Dy() < 100 {
		return false
	}

	// Sample pixels; a real street scene has color variance
	var rSum, gSum, bSum int
	samples := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += bounds.Dy() / 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += bounds.Dx() / 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			rSum += int(r >> 8)
			gSum += int(g >> 8)
			bSum += int(b >> 8)
			samples++
		}
	}

	if samples == 0 {
		return false
	}

	avgR := rSum / samples
	avgG := gSum / samples
	avgB := bSum / samples

	// Near-black frames mean the decoder started mid-GOP
	if avgR < 30 && avgG < 30 && avgB < 30 {
		return false
	}

	// Uniform mid-gray is ffmpeg's "no keyframe yet" output
	colorDiff := absInt(avgR-avgG) + absInt(avgG-avgB) + absInt(avgR-avgB)
	if colorDiff < 15 && avgR > 100 && avgR < 150 {
		return false
	}

	return true
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// EncodeJPEG converts an RGBA image to JPEG bytes.
func EncodeJPEG(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
