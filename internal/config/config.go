// Package config provides configuration helpers for crosslight commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the assistant process.
const (
	DefaultListenAddr = ":8090"
	DefaultFeedAddr   = ":8091"
	DefaultModelPath  = "models/signal_head.onnx"
)

// Env returns the value of an environment variable, or def if unset.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns an integer environment variable, or def if unset or invalid.
func EnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvFloat returns a float environment variable, or def if unset or invalid.
func EnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// EnvBool returns a boolean environment variable, or def if unset.
// Accepts "1"/"0", "true"/"false", "on"/"off".
func EnvBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "on":
		return true
	case "0", "false", "off":
		return false
	default:
		return def
	}
}

// ListenAddr returns the dashboard listen address from LISTEN_ADDR.
func ListenAddr() string {
	return Env("LISTEN_ADDR", DefaultListenAddr)
}

// FeedAddr returns the detection feed listen address from FEED_ADDR.
func FeedAddr() string {
	return Env("FEED_ADDR", DefaultFeedAddr)
}

// CameraIP returns the wearable camera IP from CAMERA_IP.
// Empty means no WebRTC ingest; the push feed is used instead.
func CameraIP() string {
	return os.Getenv("CAMERA_IP")
}

// ModelPath returns the ONNX detector model path from MODEL_PATH.
func ModelPath() string {
	return Env("MODEL_PATH", DefaultModelPath)
}
