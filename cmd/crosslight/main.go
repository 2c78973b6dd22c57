// crosslight: pedestrian crossing signal assistant.
// Watches a crossing through a camera feed, tracks the signal head, and
// announces Red/Green phase changes through sound and vibration.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/crosslight-labs/go-crosslight/internal/config"
	"github.com/crosslight-labs/go-crosslight/internal/log"
	"github.com/crosslight-labs/go-crosslight/pkg/audio"
	"github.com/crosslight-labs/go-crosslight/pkg/detection"
	"github.com/crosslight-labs/go-crosslight/pkg/feed"
	"github.com/crosslight-labs/go-crosslight/pkg/feedback"
	"github.com/crosslight-labs/go-crosslight/pkg/haptic"
	"github.com/crosslight-labs/go-crosslight/pkg/pipeline"
	sig "github.com/crosslight-labs/go-crosslight/pkg/signal"
	"github.com/crosslight-labs/go-crosslight/pkg/tracker"
	"github.com/crosslight-labs/go-crosslight/pkg/tts"
	"github.com/crosslight-labs/go-crosslight/pkg/video"
	"github.com/crosslight-labs/go-crosslight/pkg/web"
)

var version = "1.0.0"

var (
	debug      = flag.Bool("debug", false, "Enable debug logging")
	responsive = flag.Bool("responsive", false, "Use the faster, less stable tracker tuning")
)

func main() {
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	log.Info("crosslight starting", "version", version)

	// Tracker configuration: tuning preset, then env overrides
	cfg := tracker.DefaultConfig()
	if *responsive {
		cfg = tracker.ResponsiveConfig()
	}
	cfg.ConfirmationThreshold = config.EnvInt("CONFIRM_THRESHOLD", cfg.ConfirmationThreshold)
	cfg.MinOverlapRatio = config.EnvFloat("MIN_OVERLAP", cfg.MinOverlapRatio)
	cfg.MaxTrackedDetections = config.EnvInt("MAX_TRACKED", cfg.MaxTrackedDetections)
	cfg.MaxFramesWithNoDetection = config.EnvInt("GAP_BUDGET", cfg.MaxFramesWithNoDetection)
	cfg.Feedback.Sound = config.EnvBool("FEEDBACK_SOUND", cfg.Feedback.Sound)
	cfg.Feedback.Vibrate = config.EnvBool("FEEDBACK_VIBRATE", cfg.Feedback.Vibrate)

	notifier := buildNotifier()

	trk, err := tracker.New(cfg, notifier)
	if err != nil {
		log.Error("tracker configuration invalid", "error", err)
		os.Exit(1)
	}

	// Dashboard
	dashboard := web.NewServer(config.ListenAddr(), trk)
	dashboard.StartAsync()

	// Camera feed server
	feedSrv := feed.NewServer()
	feedApp := fiber.New(fiber.Config{
		AppName:               "crosslight-feed",
		DisableStartupMessage: true,
	})
	feedApp.Use(recover.New())
	feedApp.Use(cors.New())
	feedSrv.RegisterRoutes(feedApp)
	feedSrv.RegisterAPIRoutes(feedApp.Group("/api"))

	go func() {
		log.Info("feed listening", "addr", config.FeedAddr())
		if err := feedApp.Listen(config.FeedAddr()); err != nil {
			log.Error("feed server error", "error", err)
		}
	}()

	// Detector: local ONNX model when available
	var detector detection.Detector
	detCfg := detection.DefaultConfig()
	detCfg.ModelPath = config.ModelPath()
	if onnx, err := detection.NewONNX(detCfg); err == nil {
		detector = onnx
		defer onnx.Close()
	} else {
		log.Warn("local detector unavailable, relying on feed detections",
			"model", detCfg.ModelPath, "error", err)
	}

	// Frame source: WebRTC ingest when a camera IP is configured
	var source pipeline.FrameSource
	if ip := config.CameraIP(); ip != "" {
		camera := video.NewClient(ip)
		if err := camera.Connect(); err != nil {
			log.Error("camera connect failed", "camera", ip, "error", err)
			os.Exit(1)
		}
		defer camera.Close()
		source = camera
	}

	pipe := pipeline.New(source, detector, trk,
		pipeline.WithPhaseSink(dashboard),
		pipeline.WithPhaseSink(feedPhaseSink{srv: feedSrv}),
		pipeline.WithFrameSink(dashboard),
		pipeline.WithFrameInterval(time.Duration(config.EnvInt("FRAME_INTERVAL_MS", 200))*time.Millisecond),
	)

	// Feed callbacks: camera nodes can push frames or ready detections
	feedSrv.OnDetections(func(cameraID string, dets *feed.DetectionsData) {
		pipe.ProcessDetections(dets.Detections())
	})
	feedSrv.OnFrame(func(cameraID string, frame *feed.FrameData) {
		jpeg, err := frame.DecodeFrame()
		if err != nil {
			return
		}
		pipe.ForwardFrame(jpeg)
		if detector == nil {
			return
		}
		dets, err := detector.Detect(jpeg)
		if err != nil {
			log.Warn("detector failed on feed frame", "camera", cameraID, "error", err)
			return
		}
		pipe.ProcessDetections(dets)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := pipe.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("pipeline stopped", "error", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	notifier.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	dashboard.Shutdown()
	feedApp.ShutdownWithContext(shutdownCtx)
}

// buildNotifier assembles the feedback renderer from the configured
// speech provider, the local audio device, and the vibration motor.
func buildNotifier() feedback.Notifier {
	var speech tts.Provider
	switch config.Env("TTS_PROVIDER", "elevenlabs") {
	case "elevenlabs":
		p, err := tts.NewElevenLabs(
			tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
			tts.WithVoice(os.Getenv("ELEVENLABS_VOICE_ID")),
		)
		if err != nil {
			log.Warn("elevenlabs unavailable, feedback is tone-only", "error", err)
		} else {
			speech = p
		}
	case "openai":
		p, err := tts.NewOpenAI(tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
		if err != nil {
			log.Warn("openai tts unavailable, feedback is tone-only", "error", err)
		} else {
			speech = p
		}
	case "google":
		p, err := tts.NewGoogle(context.Background())
		if err != nil {
			log.Warn("google tts unavailable, feedback is tone-only", "error", err)
		} else {
			speech = p
		}
	case "off":
		log.Info("speech disabled, feedback is tone-only")
	}

	var pulser feedback.PulseTrain
	if driver, err := haptic.NewSysfsDriver(os.Getenv("VIBRATOR_PATH")); err == nil {
		pulser = haptic.NewPulser(driver)
	} else {
		log.Warn("vibrator unavailable", "error", err)
	}

	player := audio.NewPlayer(config.Env("AUDIO_PLAYER", ""))

	return feedback.NewRenderer(speech, player, pulser, log.L())
}

// feedPhaseSink forwards phase changes to connected camera nodes.
type feedPhaseSink struct {
	srv *feed.Server
}

func (s feedPhaseSink) PublishPhase(p sig.Phase) {
	s.srv.BroadcastPhase(p.String(), p.DisplayColor(), p.DisplayLabel())
}
