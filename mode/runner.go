package mode

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/khaledhikmat/pose-go/api"
	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/pipeline"
	"github.com/khaledhikmat/pose-go/service/lgr"
)

const snapshotInterval = 100 * time.Millisecond

// run starts the agent and the API server, then persists stats and errors
// until the context is cancelled or the agent exits.
func run(canxCtx context.Context, name string, svcs Services, displays []pipeline.Display) error {
	// Create an error stream
	errorStream := make(chan interface{})

	// Create a stats stream
	statsStream := make(chan interface{})

	canvasSize := svcs.CfgSvc.GetCanvasSize()
	canvas := pipeline.NewMatCanvas(canvasSize.Width, canvasSize.Height)

	snapshot := pipeline.NewSnapshot(80, snapshotInterval)
	displays = append(displays, snapshot)

	agent := pipeline.NewAgent(svcs.ServicesFactory, svcs.Capabilities, canvas, displays, errorStream, statsStream)

	var hub http.Handler
	if svcs.Hub != nil {
		hub = svcs.Hub
	}
	router := api.SetRouter(agent, svcs.ControlSvc, snapshot, hub)

	apiResult := make(chan error, 1)
	go func() {
		apiResult <- api.Run(canxCtx, svcs.CfgSvc.GetAPIPort(), router)
	}()

	agentResult := make(chan error, 1)
	go func() {
		// Windows must be driven from one OS thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		agentResult <- agent.Run(canxCtx)
	}()

	lgr.Logger.Info(
		"mode processor started",
		slog.String("mode", name),
		slog.Int("apiPort", svcs.CfgSvc.GetAPIPort()),
	)

	agentRunning := true

	// Wait for cancellation, agent exit, stats or errors
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"mode processor context cancelled",
				slog.String("mode", name),
			)
			goto resume

		case err := <-agentResult:
			agentRunning = false
			if err != nil {
				procError(svcs.DataSvc, model.GenError(name,
					err,
					map[string]interface{}{},
					"agent exited"))
			}
			goto resume

		case err := <-apiResult:
			if err != nil {
				procError(svcs.DataSvc, model.GenError(name,
					err,
					map[string]interface{}{"port": svcs.CfgSvc.GetAPIPort()},
					"api server exited"))
			}

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for the shutdown period for all the go routines to exit
	// This is needed because the go routines may need to report stats as they are exiting
resume:
	lgr.Logger.Info(
		"mode processor is waiting for all go routines to exit",
		slog.String("mode", name),
	)

	period := time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"mode processor shutdown waiting period expired. Exiting now",
				slog.String("mode", name),
				slog.Duration("period", period),
			)

			if !agentRunning {
				_ = canvas.Close()
			}
			return nil

		case <-agentResult:
			agentRunning = false

		case <-apiResult:

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}
