package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/pose-go/mode"
	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/pipeline"
	"github.com/khaledhikmat/pose-go/service/bridge"
	"github.com/khaledhikmat/pose-go/service/broker"
	"github.com/khaledhikmat/pose-go/service/config"
	"github.com/khaledhikmat/pose-go/service/control"
	"github.com/khaledhikmat/pose-go/service/data"
	"github.com/khaledhikmat/pose-go/service/inference"
	"github.com/khaledhikmat/pose-go/service/lgr"
	"github.com/khaledhikmat/pose-go/service/loader"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
	webhookTimeout = 5 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"live":     mode.Live,
	"headless": mode.Headless,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file loaded", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	modeType := "live"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	settingsFolder := os.Getenv("POSE_SETTINGS_FOLDER")
	if settingsFolder == "" {
		settingsFolder = "./settings"
	}

	// Config service
	cfgSvc, err := config.NewViper(settingsFolder)
	if err != nil {
		lgr.Logger.Error("error loading configuration", slog.Any("error", xerrors.New(err.Error())))
		panic("error loading configuration")
	}

	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)

	// Make sure camera capture, drawing and the pose model are available
	// before anything else starts. The first failure stops the process.
	poseParams := cfgSvc.GetPoseParameters()
	caps, err := loader.NewSequential().EnsureAll(canxCtx,
		pipeline.CameraLibrary(cfgSvc.GetCamera()),
		pipeline.DrawingLibrary(),
		inference.PoseLibrary(poseParams),
	)
	if err != nil {
		storeError(dataSvc, model.GenError("loader",
			err,
			map[string]interface{}{"capabilities": caps},
			"failed to load required libraries, pose detection won't work"))
		return
	}

	// Inference service
	inferenceSvc, err := inference.New(poseParams)
	if err != nil {
		storeError(dataSvc, model.GenError("inference",
			err,
			map[string]interface{}{"estimator": poseParams.Estimator},
			"error creating pose estimator"))
		return
	}
	defer inferenceSvc.Close()

	// Control service
	controlSvc := control.NewQueue(cfgSvc.GetCommandQueueSize())

	// MQTT is shared by the pose bridge and the control topic
	mqttClient := connectMQTT(canxCtx, cfgSvc, controlSvc)
	if mqttClient != nil {
		defer mqttClient.Disconnect(250)
	}

	// Bridge service
	bridgeParams := cfgSvc.GetBridgeParameters()
	bridgeSvc, hub := newBridge(cfgSvc, mqttClient)

	svcs := mode.Services{
		ServicesFactory: pipeline.ServicesFactory{
			CfgSvc:       cfgSvc,
			InferenceSvc: inferenceSvc,
			ControlSvc:   controlSvc,
			BridgeSvc:    bridgeSvc,
			BridgeName:   bridgeParams.Type,
		},
		DataSvc:      dataSvc,
		Capabilities: caps,
		Hub:          hub,
	}

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation or mode proc
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"pose context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"pose mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"pose is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"pose shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"pose mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}

func storeError(dataSvc data.IService, err model.CustomError) {
	lgr.Logger.Error(err.Message, slog.Any("error", err))
	if errTemp := dataSvc.NewError(err); errTemp != nil {
		lgr.Logger.Error("failed to store error", slog.Any("error", errTemp))
	}
}

// connectMQTT returns nil when neither the bridge nor the control topic
// needs a broker, or when the broker cannot be reached.
func connectMQTT(canxCtx context.Context, cfgSvc config.IService, controlSvc control.IService) mqtt.Client {
	params := cfgSvc.GetMQTTParameters()
	needed := cfgSvc.GetBridgeParameters().Type == bridge.MQTTBridgeType || params.ControlTopic != ""
	if !needed || params.Broker == "" {
		return nil
	}

	client, err := broker.Connect(canxCtx, params)
	if err != nil {
		lgr.Logger.Warn("mqtt broker unavailable, continuing without it",
			slog.String("broker", params.Broker),
			slog.Any("error", err),
		)
		return nil
	}

	if params.ControlTopic != "" {
		if err := control.SubscribeMQTT(canxCtx, client, params.ControlTopic, params.QoS, controlSvc); err != nil {
			lgr.Logger.Warn("mqtt control disabled", slog.Any("error", err))
		}
	}

	return client
}

// newBridge builds the configured bridge. A nil bridge means poses are not
// relayed anywhere.
func newBridge(cfgSvc config.IService, mqttClient mqtt.Client) (bridge.IService, *bridge.WebsocketHub) {
	params := cfgSvc.GetBridgeParameters()

	switch params.Type {
	case bridge.MQTTBridgeType:
		if mqttClient == nil {
			lgr.Logger.Warn("mqtt bridge selected but no broker connection, poses will not be relayed")
			return nil, nil
		}
		mqttParams := cfgSvc.GetMQTTParameters()
		return bridge.NewMQTT(mqttClient, mqttParams.PoseTopic, mqttParams.QoS), nil

	case bridge.WebsocketBridgeType:
		hub := bridge.NewWebsocket()
		return hub, hub

	case bridge.WebhookBridgeType:
		return bridge.NewWebhook(params.WebhookURL, &http.Client{Timeout: webhookTimeout}), nil

	case bridge.FileBridgeType:
		return bridge.NewFile(params.FilePath), nil

	case bridge.NoneBridgeType, "":
		return nil, nil

	default:
		lgr.Logger.Warn("unknown bridge type, poses will not be relayed", slog.String("bridge", params.Type))
		return nil, nil
	}
}
