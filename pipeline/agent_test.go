package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/config"
	"github.com/khaledhikmat/pose-go/service/control"
	"github.com/khaledhikmat/pose-go/service/inference"
	"gocv.io/x/gocv"
)

type agentConfig struct {
	config.IService
}

func (agentConfig) GetCanvasSize() model.Viewport {
	return model.Viewport{Width: 64, Height: 48}
}

func (agentConfig) GetViewport() model.Viewport {
	return model.Viewport{Width: 128, Height: 96}
}

type fakeSource struct {
	mu       sync.Mutex
	failures int
	starts   int
	closes   int
	facing   []bool
}

func (s *fakeSource) factory(_ model.Camera, isBackCamera bool) FrameSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facing = append(s.facing, isBackCamera)
	return &fakeSourceHandle{parent: s}
}

type fakeSourceHandle struct {
	parent *fakeSource
}

func (h *fakeSourceHandle) Start(context.Context) error {
	h.parent.mu.Lock()
	defer h.parent.mu.Unlock()
	h.parent.starts++
	if h.parent.failures > 0 {
		h.parent.failures--
		return errors.New("permission denied")
	}
	return nil
}

func (h *fakeSourceHandle) Read(img *gocv.Mat) bool {
	time.Sleep(2 * time.Millisecond)
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.CopyTo(img)
	return true
}

func (h *fakeSourceHandle) Close() error {
	h.parent.mu.Lock()
	defer h.parent.mu.Unlock()
	h.parent.closes++
	return nil
}

type agentHarness struct {
	agent  *Agent
	ctrl   control.IService
	bridge *fakeBridge
	source *fakeSource
	errors chan interface{}
	cancel context.CancelFunc
	done   chan error
	canvas *MatCanvas
}

func startAgent(t *testing.T, failures int, beforeRun func(h *agentHarness)) *agentHarness {
	t.Helper()

	estimator, err := inference.New(config.PoseParameters{Estimator: config.FakeEstimatorName})
	if err != nil {
		t.Fatal(err)
	}

	h := &agentHarness{
		ctrl:   control.NewQueue(16),
		bridge: newFakeBridge(),
		source: &fakeSource{failures: failures},
		errors: make(chan interface{}, 100),
		done:   make(chan error, 1),
		canvas: NewMatCanvas(64, 48),
	}

	svcs := ServicesFactory{
		CfgSvc:       agentConfig{IService: config.NewHardCoded()},
		InferenceSvc: estimator,
		ControlSvc:   h.ctrl,
		BridgeSvc:    h.bridge,
		BridgeName:   "fake",
	}
	h.agent = NewAgent(svcs, allCaps, h.canvas, nil, h.errors, make(chan interface{}, 100))
	h.agent.NewSource = h.source.factory

	if beforeRun != nil {
		beforeRun(h)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.done <- h.agent.Run(ctx)
	}()

	t.Cleanup(func() {
		h.stop(t)
		_ = h.canvas.Close()
		_ = estimator.Close()
	})
	return h
}

func (h *agentHarness) stop(t *testing.T) {
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("agent did not stop")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func submit(t *testing.T, ctrl control.IService, cmd control.Command) {
	t.Helper()
	if err := ctrl.Submit(cmd); err != nil {
		t.Fatalf("Submit(%s) failed: %v", cmd.Kind, err)
	}
}

func TestAgentRendersAndEmits(t *testing.T) {
	h := startAgent(t, 0, nil)

	waitFor(t, "frames", func() bool { return h.agent.Status().PoseFrames >= 3 })
	waitArrival(t, h.bridge)

	var landmarks []model.Landmark
	if err := json.Unmarshal([]byte(h.bridge.Posted()[0].Pose), &landmarks); err != nil {
		t.Fatalf("pose is not a landmark list: %v", err)
	}
	if len(landmarks) != model.LandmarkCount {
		t.Errorf("emitted %d landmarks, want %d", len(landmarks), model.LandmarkCount)
	}

	status := h.agent.Status()
	if !status.Running || status.PermissionRequired {
		t.Errorf("status = %+v", status)
	}
	if status.Canvas != (model.Viewport{Width: 64, Height: 48}) {
		t.Errorf("canvas = %+v", status.Canvas)
	}
	if status.FacingMode != "user" {
		t.Errorf("facing mode = %q, want user", status.FacingMode)
	}
}

func TestAgentAppliesCommandsBetweenFrames(t *testing.T) {
	h := startAgent(t, 0, func(h *agentHarness) {
		submit(t, h.ctrl, control.Command{
			Kind:   control.UpdateConfig,
			Config: json.RawMessage(`{"enableSkeleton": false, "scoreThreshold": 0.3}`),
		})
		submit(t, h.ctrl, control.Command{Kind: control.ApplyTestConfig})
	})

	waitFor(t, "commands", func() bool { return h.agent.Status().Commands == 2 })

	cfg := h.agent.Status().Config
	if cfg.EnableSkeleton || cfg.ScoreThreshold != 0.3 {
		t.Errorf("config update not applied: %+v", cfg)
	}
	if cfg.LandmarkSize(model.LeftWrist) != 25 || cfg.LandmarkColor(model.LeftElbow) != "rgb(0, 255, 0)" {
		t.Errorf("test config not applied: %+v", cfg)
	}

	// rejected patches leave the configuration untouched
	submit(t, h.ctrl, control.Command{Kind: control.UpdateConfig, Config: json.RawMessage(`{"scoreThreshold": 7}`)})
	waitFor(t, "rejected command", func() bool { return h.agent.Status().Commands == 3 })
	if got := h.agent.Status().Config.ScoreThreshold; got != 0.3 {
		t.Errorf("threshold = %v after rejected patch", got)
	}
}

func TestAgentResize(t *testing.T) {
	h := startAgent(t, 0, nil)

	submit(t, h.ctrl, control.Command{Kind: control.Resize, Viewport: model.Viewport{Width: 320, Height: 200}})
	waitFor(t, "resize", func() bool { return h.agent.Status().Commands == 1 })
	if got := h.agent.Status().Canvas; got != (model.Viewport{Width: 64, Height: 48}) {
		t.Errorf("windowed canvas resized to %+v", got)
	}

	submit(t, h.ctrl, control.Command{Kind: control.UpdateConfig, Config: json.RawMessage(`{"isFullScreen": true}`)})
	waitFor(t, "full screen", func() bool { return h.agent.Status().Commands == 2 })
	if got := h.agent.Status().Canvas; got != (model.Viewport{Width: 320, Height: 200}) {
		t.Errorf("full screen canvas = %+v, want last viewport", got)
	}
}

func TestAgentWaitsForCameraRetry(t *testing.T) {
	h := startAgent(t, 1, nil)

	waitFor(t, "permission required", func() bool { return h.agent.Status().PermissionRequired })

	select {
	case err := <-h.errors:
		if _, ok := err.(model.CustomError); !ok {
			t.Errorf("unexpected error %T", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("camera failure not reported")
	}

	// no silent retry
	time.Sleep(50 * time.Millisecond)
	h.source.mu.Lock()
	starts := h.source.starts
	h.source.mu.Unlock()
	if starts != 1 {
		t.Fatalf("camera started %d times before retry", starts)
	}
	if h.agent.Status().Frames != 0 {
		t.Fatal("frames rendered without a camera")
	}

	submit(t, h.ctrl, control.Command{Kind: control.RetryCamera})
	waitFor(t, "frames after retry", func() bool { return h.agent.Status().Frames > 0 })

	status := h.agent.Status()
	if status.PermissionRequired || !status.Running {
		t.Errorf("status after retry = %+v", status)
	}
}

func TestAgentRestartsCameraOnFacingChange(t *testing.T) {
	h := startAgent(t, 0, nil)
	waitFor(t, "frames", func() bool { return h.agent.Status().Frames > 0 })

	submit(t, h.ctrl, control.Command{Kind: control.UpdateConfig, Config: json.RawMessage(`{"isBackCamera": true}`)})
	waitFor(t, "facing change", func() bool { return h.agent.Status().FacingMode == "environment" })

	h.stop(t)

	h.source.mu.Lock()
	defer h.source.mu.Unlock()
	if len(h.source.facing) != 2 || h.source.facing[0] || !h.source.facing[1] {
		t.Errorf("sources opened with facing %v, want [false true]", h.source.facing)
	}
	if h.source.closes != 2 {
		t.Errorf("closes = %d, want 2", h.source.closes)
	}
}
