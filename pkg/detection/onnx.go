package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ONNXDetector runs a signal-head detection model through OpenCV's DNN module.
// The model is expected to emit rows of [cx, cy, w, h, score, class scores...]
// in input-image pixel coordinates (YOLO-style head).
type ONNXDetector struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex // Protects inference
}

// NewONNX loads the ONNX model and prepares it for inference.
func NewONNX(cfg Config) (*ONNXDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model: %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &ONNXDetector{
		net:    net,
		config: cfg,
	}, nil
}

// Detect finds signal heads in the JPEG image.
func (d *ONNXDetector) Detect(jpeg []byte) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0,
		image.Pt(d.config.InputWidth, d.config.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	// Flatten [1, N, cols] outputs to [N, cols]
	if out.Total() > 0 && len(out.Size()) == 3 && out.Size()[0] == 1 {
		reshaped := out.Reshape(1, out.Size()[1])
		defer reshaped.Close()
		return d.parse(reshaped, imgW, imgH), nil
	}

	return d.parse(out, imgW, imgH), nil
}

// parse converts raw model output rows into normalized detections.
func (d *ONNXDetector) parse(out gocv.Mat, imgW, imgH float64) []Detection {
	scaleX := imgW / float64(d.config.InputWidth)
	scaleY := imgH / float64(d.config.InputHeight)

	var detections []Detection
	cols := out.Cols()
	for r := 0; r < out.Rows(); r++ {
		score := float64(out.GetFloatAt(r, 4))
		if score < d.config.ConfidenceThresh {
			continue
		}

		// Best class among the per-class scores after column 4
		label := 0
		best := float32(0)
		for c := 5; c < cols; c++ {
			if s := out.GetFloatAt(r, c); s > best {
				best = s
				label = c - 5
			}
		}

		cx := float64(out.GetFloatAt(r, 0)) * scaleX
		cy := float64(out.GetFloatAt(r, 1)) * scaleY
		w := float64(out.GetFloatAt(r, 2)) * scaleX
		h := float64(out.GetFloatAt(r, 3)) * scaleY

		detections = append(detections, Detection{
			Bounds: Rect{
				X: (cx - w/2) / imgW,
				Y: (cy - h/2) / imgH,
				W: w / imgW,
				H: h / imgH,
			},
			Label:      label,
			Confidence: score,
		})
	}

	return detections
}

// Close releases the network resources.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
