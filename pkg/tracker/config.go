package tracker

import (
	"errors"

	"github.com/crosslight-labs/go-crosslight/pkg/feedback"
)

// Configuration errors, rejected eagerly at construction or reconfigure.
var (
	ErrConfirmationThreshold = errors.New("tracker: confirmation threshold must be positive")
	ErrOverlapRatio          = errors.New("tracker: min overlap ratio must be in [0,1]")
	ErrMaxTracked            = errors.New("tracker: max tracked detections must be positive")
	ErrGapBudget             = errors.New("tracker: max frames with no detection must be non-negative")
)

// Config holds all tunable parameters for phase tracking.
// A Config is immutable once handed to a Tracker; use Reconfigure to
// replace it wholesale.
type Config struct {
	// ConfirmationThreshold is the minimum number of matched frames
	// before a tracked detection is trusted for phase determination.
	ConfirmationThreshold int `json:"confirmation_threshold"`

	// MinOverlapRatio is the IOU required to match an incoming detection
	// to an existing tracked detection.
	MinOverlapRatio float64 `json:"min_overlap_ratio"`

	// MaxTrackedDetections caps the active set. Detections arriving at
	// capacity are dropped for that frame, never queued.
	MaxTrackedDetections int `json:"max_tracked_detections"`

	// MaxFramesWithNoDetection is the number of detection-free frames to
	// ride through before stale tracked detections are discarded.
	MaxFramesWithNoDetection int `json:"max_frames_with_no_detection"`

	// Feedback holds the channel enable flags passed through to the
	// notifier on each transition.
	Feedback feedback.Settings `json:"feedback"`
}

// DefaultConfig returns the recommended configuration for street use.
func DefaultConfig() Config {
	return Config{
		ConfirmationThreshold:    3,   // Trust after 3 matched frames
		MinOverlapRatio:          0.5, // Standard IOU match threshold
		MaxTrackedDetections:     10,
		MaxFramesWithNoDetection: 5, // Ride through ~1/3s of misses at 15 FPS
		Feedback: feedback.Settings{
			Sound:   true,
			Vibrate: true,
		},
	}
}

// ResponsiveConfig returns a configuration that trades stability for
// latency: earlier confirmation, shorter gap tolerance.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.ConfirmationThreshold = 2
	cfg.MaxFramesWithNoDetection = 2
	return cfg
}

// Validate checks the configuration for programmer errors.
// Misconfiguration is the only error class here; everything at runtime
// is treated as sensor noise.
func (c Config) Validate() error {
	if c.ConfirmationThreshold <= 0 {
		return ErrConfirmationThreshold
	}
	if c.MinOverlapRatio < 0 || c.MinOverlapRatio > 1 {
		return ErrOverlapRatio
	}
	if c.MaxTrackedDetections <= 0 {
		return ErrMaxTracked
	}
	if c.MaxFramesWithNoDetection < 0 {
		return ErrGapBudget
	}
	return nil
}
