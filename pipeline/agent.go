package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/bridge"
	"github.com/khaledhikmat/pose-go/service/config"
	"github.com/khaledhikmat/pose-go/service/control"
	"github.com/khaledhikmat/pose-go/service/inference"
	"github.com/khaledhikmat/pose-go/service/lgr"
	"github.com/khaledhikmat/pose-go/service/loader"
	"gocv.io/x/gocv"
)

const (
	// consecutive failed reads before the camera is considered lost
	maxReadFailures = 100
	readRetryDelay  = 10 * time.Millisecond
)

// ServicesFactory carries the services an agent runs with.
type ServicesFactory struct {
	CfgSvc       config.IService
	InferenceSvc inference.IService
	ControlSvc   control.IService
	BridgeSvc    bridge.IService
	BridgeName   string
}

// Status is the agent state published for readers outside the agent
// goroutine.
type Status struct {
	ID                 string              `json:"id"`
	Camera             string              `json:"camera"`
	FacingMode         string              `json:"facingMode"`
	Running            bool                `json:"running"`
	PermissionRequired bool                `json:"permissionRequired"`
	Capabilities       loader.Capabilities `json:"capabilities"`
	Canvas             model.Viewport      `json:"canvas"`
	Viewport           model.Viewport      `json:"viewport"`
	Config             model.RenderConfig  `json:"config"`
	Frames             int                 `json:"frames"`
	PoseFrames         int                 `json:"poseFrames"`
	Commands           int                 `json:"commands"`
	Bridge             model.BridgeStats   `json:"bridge"`
}

// Agent owns the render configuration, the canvas, the frame source and the
// displays. It runs one frame at a time and applies commands only between
// frames.
type Agent struct {
	ID        string
	svcs      ServicesFactory
	caps      loader.Capabilities
	canvas    Canvas
	displays  []Display
	NewSource func(camera model.Camera, isBackCamera bool) FrameSource

	errorStream chan interface{}
	statsStream chan interface{}

	// owned by the Run goroutine
	cfg     model.RenderConfig
	surface *Surface
	source  FrameSource
	emitter *Emitter
	stats   model.RendererStats
	agent   model.AgentStats

	drawingReported bool
	totalProcTime   time.Duration
	totalInferTime  time.Duration
	framer          model.FramerStats
	framerStart     time.Time

	mu     sync.RWMutex
	status Status
}

func NewAgent(svcs ServicesFactory,
	caps loader.Capabilities,
	canvas Canvas,
	displays []Display,
	errorStream chan interface{},
	statsStream chan interface{}) *Agent {
	id := uuid.NewString()
	camera := svcs.CfgSvc.GetCamera()

	return &Agent{
		ID:          id,
		svcs:        svcs,
		caps:        caps,
		canvas:      canvas,
		displays:    displays,
		NewSource:   NewFrameSource,
		errorStream: errorStream,
		statsStream: statsStream,
		status: Status{
			ID:           id,
			Camera:       camera.Name,
			Capabilities: caps,
			Config:       svcs.CfgSvc.GetRenderConfig().Clone(),
		},
	}
}

// Status returns a copy of the last published state.
func (a *Agent) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.status
	s.Config = s.Config.Clone()
	return s
}

// Run drives the capture, estimate, render and emit loop until the context
// is cancelled.
func (a *Agent) Run(canxCtx context.Context) error {
	camera := a.svcs.CfgSvc.GetCamera()

	lgr.Logger.Info(
		"agent starting....",
		slog.String("agentID", a.ID),
		slog.String("camera", camera.Name),
		slog.String("framerType", camera.FramerType),
		slog.Any("capabilities", a.caps),
	)

	var startTime = time.Now().Unix()
	a.agent = model.AgentStats{ID: a.ID, Camera: camera.Name}
	a.stats = model.RendererStats{Name: "renderer", Camera: camera.Name}

	a.cfg = a.svcs.CfgSvc.GetRenderConfig().Clone()
	a.surface = NewSurface(a.canvas, a.svcs.CfgSvc.GetCanvasSize(), a.svcs.CfgSvc.GetViewport())
	a.surface.Apply(a.cfg)

	a.emitter = NewEmitter(canxCtx, a.svcs.BridgeName, a.svcs.BridgeSvc,
		a.svcs.CfgSvc.GetBridgeParameters().QueueSize, a.errorStream, a.statsStream)

	defer func() {
		a.stopSource()
		uptime := time.Now().Unix() - startTime
		a.stats.Uptime = uptime
		a.finishStats()
		report(a.statsStream, a.stats)
		a.agent.Uptime = uptime
		report(a.statsStream, a.agent)
		a.publish(false)
		for _, d := range a.displays {
			if err := d.Close(); err != nil {
				lgr.Logger.Warn("error closing display", slog.Any("error", err))
			}
		}
		<-a.emitter.Done()
	}()

	a.startSource(canxCtx)
	a.publish(a.source != nil)

	periodic := time.Duration(a.svcs.CfgSvc.GetAgentPeriodicTimeout()) * time.Second
	if periodic <= 0 {
		periodic = 30 * time.Second
	}
	ticker := time.NewTicker(periodic)
	defer ticker.Stop()

	var commands <-chan control.Command
	if a.svcs.ControlSvc != nil {
		commands = a.svcs.ControlSvc.Commands()
	}

	img := gocv.NewMat()
	defer img.Close() // Crucial to close the image to avoid memory leaks

	readFailures := 0

	for {
		// Frame boundary: nothing is being rendered, commands may change state.
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info("agent context cancelled", slog.String("agentID", a.ID))
			return nil
		case <-ticker.C:
			a.periodicStats(startTime)
		default:
		}
		a.drainCommands(canxCtx, commands)

		if a.source == nil {
			// Waiting for a retry command, as the camera could not be started.
			select {
			case <-canxCtx.Done():
				lgr.Logger.Info("agent context cancelled", slog.String("agentID", a.ID))
				return nil
			case cmd := <-commands:
				a.apply(canxCtx, cmd)
			case <-ticker.C:
				a.periodicStats(startTime)
			}
			continue
		}

		if !a.source.Read(&img) {
			if canxCtx.Err() != nil {
				continue
			}
			a.stats.Errors++
			a.framer.Errors++
			readFailures++
			if readFailures >= maxReadFailures {
				report(a.errorStream, model.GenError("agent",
					errors.New("no frames from camera"),
					map[string]interface{}{"failures": readFailures},
					"camera stopped delivering frames"))
				a.stopSource()
				a.setPermissionRequired()
				readFailures = 0
				continue
			}
			time.Sleep(readRetryDelay)
			continue
		}
		readFailures = 0
		a.framer.Frames++

		a.processFrame(canxCtx, img)
	}
}

func (a *Agent) processFrame(canxCtx context.Context, img gocv.Mat) {
	start := time.Now()
	a.stats.Frames++

	var landmarks []model.Landmark
	if a.caps.Pose && a.svcs.InferenceSvc != nil {
		inferStart := time.Now()
		lms, err := a.svcs.InferenceSvc.Estimate(canxCtx, img)
		a.totalInferTime += time.Since(inferStart)
		if err != nil {
			a.stats.Errors++
			report(a.errorStream, model.GenError("agent_estimator",
				err,
				map[string]interface{}{"frame": a.stats.Frames},
				"error estimating pose"))
		} else {
			landmarks = lms
		}
	}

	drawn, err := Render(a.canvas, FrameData{Mat: img, Landmarks: landmarks, Timestamp: start}, a.cfg, a.caps)
	if err != nil {
		a.stats.Errors++
		if !a.drawingReported {
			a.drawingReported = true
			report(a.errorStream, model.GenError("agent_renderer",
				err,
				map[string]interface{}{},
				"overlay skipped"))
		}
	}
	a.stats.Keypoints += drawn

	if len(landmarks) > 0 {
		a.stats.PoseFrames++
		a.emitter.Emit(landmarks)
	}

	for _, d := range a.displays {
		d.Show(a.canvas.Image())
	}

	a.totalProcTime += time.Since(start)
	a.publish(true)
}

// drainCommands applies every queued command without waiting.
func (a *Agent) drainCommands(canxCtx context.Context, commands <-chan control.Command) {
	for {
		select {
		case cmd := <-commands:
			a.apply(canxCtx, cmd)
		default:
			return
		}
	}
}

func (a *Agent) apply(canxCtx context.Context, cmd control.Command) {
	a.agent.Commands++
	lgr.Logger.Info("applying command", slog.String("command", string(cmd.Kind)))

	switch cmd.Kind {
	case control.UpdateConfig:
		next, err := a.cfg.Patch(cmd.Config)
		if err != nil {
			report(a.errorStream, model.GenError("agent",
				err,
				map[string]interface{}{"config": string(cmd.Config)},
				"config update rejected"))
			break
		}
		a.setConfig(canxCtx, next)

	case control.ApplyTestConfig:
		a.setConfig(canxCtx, model.TestRenderConfig(a.cfg))

	case control.Resize:
		a.surface.Resize(a.cfg, cmd.Viewport)

	case control.RetryCamera:
		if a.source != nil {
			lgr.Logger.Info("camera already running, retry ignored")
			break
		}
		a.startSource(canxCtx)

	default:
		lgr.Logger.Warn("unknown command", slog.String("command", string(cmd.Kind)))
	}

	a.publish(a.source != nil)
}

func (a *Agent) setConfig(canxCtx context.Context, next model.RenderConfig) {
	facingChanged := next.IsBackCamera != a.cfg.IsBackCamera
	a.cfg = next
	a.surface.Apply(a.cfg)

	if facingChanged && a.source != nil {
		lgr.Logger.Info("camera facing mode changed, restarting camera",
			slog.String("facingMode", a.svcs.CfgSvc.GetCamera().FacingMode(next.IsBackCamera)),
		)
		a.stopSource()
		a.startSource(canxCtx)
	}
}

// startSource opens the camera for the current facing mode. On failure the
// agent waits for an explicit retry.
func (a *Agent) startSource(canxCtx context.Context) {
	camera := a.svcs.CfgSvc.GetCamera()

	if !a.caps.Camera {
		report(a.errorStream, model.GenError("agent",
			errors.New("camera capability not loaded"),
			map[string]interface{}{"camera": camera.Name},
			"error setting up camera"))
		a.setPermissionRequired()
		return
	}

	source := a.NewSource(camera, a.cfg.IsBackCamera)
	if err := source.Start(canxCtx); err != nil {
		_ = source.Close()
		report(a.errorStream, model.GenError("agent",
			err,
			map[string]interface{}{"camera": camera.Name, "facingMode": camera.FacingMode(a.cfg.IsBackCamera)},
			"error starting camera"))
		a.setPermissionRequired()
		return
	}

	a.source = source
	a.agent.PermissionRequired = false
	a.framer = model.FramerStats{Name: camera.FramerType + "Framer", Camera: camera.Name}
	a.framerStart = time.Now()
}

func (a *Agent) stopSource() {
	if a.source == nil {
		return
	}
	if err := a.source.Close(); err != nil {
		lgr.Logger.Warn("error closing camera", slog.Any("error", err))
	}
	a.source = nil

	elapsed := time.Since(a.framerStart)
	a.framer.Uptime = int64(elapsed.Seconds())
	if elapsed > 0 {
		a.framer.FPS = int(float64(a.framer.Frames) / elapsed.Seconds())
	}
	report(a.statsStream, a.framer)
}

func (a *Agent) setPermissionRequired() {
	a.agent.PermissionRequired = true
	a.publish(false)
	lgr.Logger.Warn("camera unavailable, waiting for a retry command")
}

func (a *Agent) finishStats() {
	if a.stats.Frames > 0 {
		a.stats.AvgProcTime = a.totalProcTime.Seconds() / float64(a.stats.Frames)
		a.stats.AvgInferTime = a.totalInferTime.Seconds() / float64(a.stats.Frames)
	}
}

func (a *Agent) periodicStats(startTime int64) {
	uptime := time.Now().Unix() - startTime
	a.agent.Uptime = uptime
	report(a.statsStream, a.agent)

	a.stats.Uptime = uptime
	a.finishStats()
	report(a.statsStream, a.stats)
}

func (a *Agent) publish(running bool) {
	width, height := a.canvas.Size()
	camera := a.svcs.CfgSvc.GetCamera()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.status.FacingMode = camera.FacingMode(a.cfg.IsBackCamera)
	a.status.Running = running
	a.status.PermissionRequired = a.agent.PermissionRequired
	a.status.Canvas = model.Viewport{Width: width, Height: height}
	if a.surface != nil {
		a.status.Viewport = a.surface.Viewport()
	}
	a.status.Config = a.cfg
	a.status.Frames = a.stats.Frames
	a.status.PoseFrames = a.stats.PoseFrames
	a.status.Commands = a.agent.Commands
	a.status.Bridge = a.emitter.Stats()
}
