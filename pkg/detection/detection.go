// Package detection provides signal-head detection over camera frames.
package detection

// Detection represents one bounding-box observation from the vision model
// for a single frame.
type Detection struct {
	Bounds     Rect    // Position in normalized (0-1) frame coordinates
	Label      int     // Class index: 0 = stop lamp, others = walk lamp
	Confidence float64 // Detection confidence (0-1), unused by the tracker
}

// Detector is the interface for signal-head detection backends.
type Detector interface {
	// Detect finds signal heads in the JPEG image.
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources.
	Close() error
}

// Config holds detector configuration.
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for the signal-head model.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/signal_head.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}
