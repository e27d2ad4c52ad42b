package config

import "github.com/khaledhikmat/pose-go/model"

const (
	BlazePoseEstimatorName = "blazepose"
	FakeEstimatorName      = "fake"
)

type PoseParameters struct {
	Estimator              string
	ModelPath              string
	ModelURL               string
	InputSize              int
	LandmarksOutput        string
	PoseFlagOutput         string
	ModelComplexity        int
	SmoothLandmarks        bool
	MinDetectionConfidence float32
	MinTrackingConfidence  float32
}

type BridgeParameters struct {
	Type       string // none, mqtt, websocket, webhook, file
	QueueSize  int
	WebhookURL string
	FilePath   string
}

type MQTTParameters struct {
	Broker       string
	ClientID     string
	PoseTopic    string
	ControlTopic string
	QoS          byte
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetModelsFolder() string
	GetAgentPeriodicTimeout() int
	GetCommandQueueSize() int
	GetAPIPort() int
	GetCamera() model.Camera
	GetCanvasSize() model.Viewport
	GetViewport() model.Viewport
	GetRenderConfig() model.RenderConfig
	GetPoseParameters() PoseParameters
	GetBridgeParameters() BridgeParameters
	GetMQTTParameters() MQTTParameters
}
