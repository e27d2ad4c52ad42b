package config

import (
	"fmt"

	"github.com/khaledhikmat/pose-go/model"
)

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetInputFolder() string {
	return "./settings"
}

func (svc *hardcodedService) GetModelsFolder() string {
	return "./models"
}

func (svc *hardcodedService) GetAgentPeriodicTimeout() int {
	return 30
}

func (svc *hardcodedService) GetCommandQueueSize() int {
	return 16
}

func (svc *hardcodedService) GetAPIPort() int {
	return 8080
}

func (svc *hardcodedService) GetCamera() model.Camera {
	return model.Camera{
		Name:        "default",
		FrontDevice: "0",
		BackDevice:  "1",
		FramerType:  "webcam",
		Width:       1080,
		Height:      720,
	}
}

func (svc *hardcodedService) GetCanvasSize() model.Viewport {
	return model.Viewport{Width: 1080, Height: 720}
}

func (svc *hardcodedService) GetViewport() model.Viewport {
	return model.Viewport{Width: 1280, Height: 800}
}

func (svc *hardcodedService) GetRenderConfig() model.RenderConfig {
	return model.DefaultRenderConfig()
}

func (svc *hardcodedService) GetPoseParameters() PoseParameters {
	return PoseParameters{
		Estimator:              BlazePoseEstimatorName,
		ModelPath:              fmt.Sprintf("%s/pose_landmark_full.onnx", svc.GetModelsFolder()),
		ModelURL:               "https://cdn.jsdelivr.net/npm/@mediapipe/pose/pose_landmark_full.onnx",
		InputSize:              256,
		LandmarksOutput:        "Identity",
		PoseFlagOutput:         "Identity_1",
		ModelComplexity:        1,
		SmoothLandmarks:        true,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}

func (svc *hardcodedService) GetBridgeParameters() BridgeParameters {
	return BridgeParameters{
		Type:      "none",
		QueueSize: 32,
		FilePath:  "poses.log",
	}
}

func (svc *hardcodedService) GetMQTTParameters() MQTTParameters {
	return MQTTParameters{
		Broker:       "localhost:1883",
		ClientID:     "",
		PoseTopic:    "pose/landmarks",
		ControlTopic: "pose/control",
		QoS:          0,
	}
}
