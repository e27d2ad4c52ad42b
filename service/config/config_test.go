package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/pose-go/model"
)

func TestViperDefaultsMatchHardcoded(t *testing.T) {
	svc, err := NewViper(t.TempDir())
	if err != nil {
		t.Fatalf("NewViper failed: %v", err)
	}
	hc := NewHardCoded()

	if svc.GetCamera() != hc.GetCamera() {
		t.Errorf("camera = %+v, want %+v", svc.GetCamera(), hc.GetCamera())
	}
	if svc.GetPoseParameters() != hc.GetPoseParameters() {
		t.Errorf("pose = %+v, want %+v", svc.GetPoseParameters(), hc.GetPoseParameters())
	}
	if svc.GetMQTTParameters() != hc.GetMQTTParameters() {
		t.Errorf("mqtt = %+v, want %+v", svc.GetMQTTParameters(), hc.GetMQTTParameters())
	}
	got := svc.GetRenderConfig()
	want := hc.GetRenderConfig()
	if got.Color != want.Color || got.ScoreThreshold != want.ScoreThreshold || got.FlipHorizontal != want.FlipHorizontal {
		t.Errorf("render = %+v, want %+v", got, want)
	}
}

func TestViperReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	doc := `
render:
  isFullScreen: true
  color: "blue"
  scoreThreshold: 0.7
  defaultLandmarkSize: 3
  customLandmarkSizes:
    "15": 25
  customLandmarkColors:
    "11": "rgb(255, 0, 0)"
bridge:
  type: mqtt
camera:
  framerType: synthetic
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	svc, err := NewViper(dir)
	if err != nil {
		t.Fatalf("NewViper failed: %v", err)
	}

	cfg := svc.GetRenderConfig()
	if !cfg.IsFullScreen || cfg.Color != "blue" || cfg.ScoreThreshold != 0.7 {
		t.Errorf("unexpected render config: %+v", cfg)
	}
	if cfg.LandmarkSize(model.LeftWrist) != 25 {
		t.Errorf("left wrist size = %v, want 25", cfg.LandmarkSize(model.LeftWrist))
	}
	if cfg.LandmarkSize(model.Nose) != 3 {
		t.Errorf("nose size = %v, want 3", cfg.LandmarkSize(model.Nose))
	}
	if cfg.LandmarkColor(model.LeftShoulder) != "rgb(255, 0, 0)" {
		t.Errorf("left shoulder color = %q", cfg.LandmarkColor(model.LeftShoulder))
	}
	if svc.GetBridgeParameters().Type != "mqtt" {
		t.Errorf("bridge type = %q", svc.GetBridgeParameters().Type)
	}
	if svc.GetCamera().FramerType != "synthetic" {
		t.Errorf("framer type = %q", svc.GetCamera().FramerType)
	}
}

func TestViperRejectsInvalidRenderConfig(t *testing.T) {
	dir := t.TempDir()
	doc := "render:\n  scoreThreshold: 2\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewViper(dir); err == nil {
		t.Fatal("expected an error for scoreThreshold outside [0,1]")
	}
}

func TestViperEnvOverride(t *testing.T) {
	t.Setenv("POSE_BRIDGE_TYPE", "websocket")
	svc, err := NewViper(t.TempDir())
	if err != nil {
		t.Fatalf("NewViper failed: %v", err)
	}
	if svc.GetBridgeParameters().Type != "websocket" {
		t.Errorf("bridge type = %q, want websocket", svc.GetBridgeParameters().Type)
	}
}
