// replay: run a recorded detection log through the phase tracker.
// Each input line is a JSON array of boxes for one frame ("[]" for an
// empty frame); the tool prints every phase transition. Useful for
// tuning tracker settings against captured crossings.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/crosslight-labs/go-crosslight/internal/log"
	"github.com/crosslight-labs/go-crosslight/pkg/feed"
	"github.com/crosslight-labs/go-crosslight/pkg/feedback"
	"github.com/crosslight-labs/go-crosslight/pkg/tracker"
)

var (
	file       = flag.String("file", "-", "Detection log file, - for stdin")
	threshold  = flag.Int("threshold", 0, "Confirmation threshold override")
	overlap    = flag.Float64("overlap", 0, "Minimum overlap ratio override")
	gap        = flag.Int("gap", -1, "Empty-frame gap budget override")
	capacity   = flag.Int("cap", 0, "Tracked detection capacity override")
	responsive = flag.Bool("responsive", false, "Start from the responsive tuning")
	verbose    = flag.Bool("v", false, "Print the phase for every frame")
)

// printNotifier prints feedback dispatches instead of rendering them.
type printNotifier struct{}

func (printNotifier) Start(req feedback.Request) {
	fmt.Printf("  feedback start: kind=%s speech=%q pulse=%s\n",
		req.Kind, req.Speech, req.PulseInterval)
}

func (printNotifier) Stop() {}

func main() {
	flag.Parse()
	log.Init("warn")

	cfg := tracker.DefaultConfig()
	if *responsive {
		cfg = tracker.ResponsiveConfig()
	}
	if *threshold > 0 {
		cfg.ConfirmationThreshold = *threshold
	}
	if *overlap > 0 {
		cfg.MinOverlapRatio = *overlap
	}
	if *gap >= 0 {
		cfg.MaxFramesWithNoDetection = *gap
	}
	if *capacity > 0 {
		cfg.MaxTrackedDetections = *capacity
	}

	trk, err := tracker.New(cfg, printNotifier{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	input := os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open %s: %v\n", *file, err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	fmt.Printf("replaying with threshold=%d overlap=%.2f cap=%d gap=%d\n",
		cfg.ConfirmationThreshold, cfg.MinOverlapRatio,
		cfg.MaxTrackedDetections, cfg.MaxFramesWithNoDetection)

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	frame := 0
	last := trk.Phase()
	transitions := 0

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame++

		var boxes []feed.Box
		if err := json.Unmarshal(line, &boxes); err != nil {
			fmt.Fprintf(os.Stderr, "frame %d: bad line: %v\n", frame, err)
			continue
		}

		wire := feed.DetectionsData{Boxes: boxes}
		trk.Ingest(wire.Detections())
		phase := trk.Determine()

		if *verbose {
			fmt.Printf("frame %4d: %-12s tracked=%d\n", frame, phase, len(trk.Snapshot()))
		}
		if phase != last {
			transitions++
			fmt.Printf("frame %4d: %s -> %s\n", frame, last, phase)
			last = phase
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("done: %d frames, %d transitions, final phase %s\n", frame, transitions, last)
}
