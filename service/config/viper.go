package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/lgr"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type viperService struct {
	v *viper.Viper
}

// NewViper reads <folder>/config.yaml (optional) and POSE_* environment
// variables on top of the hardcoded defaults.
func NewViper(folder string) (IService, error) {
	v := viper.New()
	setDefaults(v, NewHardCoded())

	v.AddConfigPath(folder)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("POSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		lgr.Logger.Info("no config file found, using defaults", slog.String("folder", folder))
	}

	svc := &viperService{v: v}
	if err := svc.GetRenderConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid render config: %w", err)
	}

	return svc, nil
}

func setDefaults(v *viper.Viper, d IService) {
	v.SetDefault("mode.maxShutdownTime", d.GetModeMaxShutdownTime())
	v.SetDefault("folders.input", d.GetInputFolder())
	v.SetDefault("folders.models", d.GetModelsFolder())
	v.SetDefault("agent.periodicTimeout", d.GetAgentPeriodicTimeout())
	v.SetDefault("agent.commandQueueSize", d.GetCommandQueueSize())
	v.SetDefault("api.port", d.GetAPIPort())

	camera := d.GetCamera()
	v.SetDefault("camera.name", camera.Name)
	v.SetDefault("camera.frontDevice", camera.FrontDevice)
	v.SetDefault("camera.backDevice", camera.BackDevice)
	v.SetDefault("camera.framerType", camera.FramerType)
	v.SetDefault("camera.width", camera.Width)
	v.SetDefault("camera.height", camera.Height)

	canvas := d.GetCanvasSize()
	v.SetDefault("canvas.width", canvas.Width)
	v.SetDefault("canvas.height", canvas.Height)
	viewport := d.GetViewport()
	v.SetDefault("viewport.width", viewport.Width)
	v.SetDefault("viewport.height", viewport.Height)

	render := d.GetRenderConfig()
	v.SetDefault("render.isFullScreen", render.IsFullScreen)
	v.SetDefault("render.isBackCamera", render.IsBackCamera)
	v.SetDefault("render.flipHorizontal", render.FlipHorizontal)
	v.SetDefault("render.enableSkeleton", render.EnableSkeleton)
	v.SetDefault("render.enableKeyPoints", render.EnableKeyPoints)
	v.SetDefault("render.scoreThreshold", render.ScoreThreshold)
	v.SetDefault("render.color", render.Color)
	v.SetDefault("render.defaultLandmarkSize", render.DefaultLandmarkSize)

	pose := d.GetPoseParameters()
	v.SetDefault("pose.estimator", pose.Estimator)
	v.SetDefault("pose.modelPath", pose.ModelPath)
	v.SetDefault("pose.modelUrl", pose.ModelURL)
	v.SetDefault("pose.inputSize", pose.InputSize)
	v.SetDefault("pose.landmarksOutput", pose.LandmarksOutput)
	v.SetDefault("pose.poseFlagOutput", pose.PoseFlagOutput)
	v.SetDefault("pose.modelComplexity", pose.ModelComplexity)
	v.SetDefault("pose.smoothLandmarks", pose.SmoothLandmarks)
	v.SetDefault("pose.minDetectionConfidence", pose.MinDetectionConfidence)
	v.SetDefault("pose.minTrackingConfidence", pose.MinTrackingConfidence)

	bridge := d.GetBridgeParameters()
	v.SetDefault("bridge.type", bridge.Type)
	v.SetDefault("bridge.queueSize", bridge.QueueSize)
	v.SetDefault("bridge.webhookUrl", bridge.WebhookURL)
	v.SetDefault("bridge.filePath", bridge.FilePath)

	mqtt := d.GetMQTTParameters()
	v.SetDefault("mqtt.broker", mqtt.Broker)
	v.SetDefault("mqtt.clientId", mqtt.ClientID)
	v.SetDefault("mqtt.poseTopic", mqtt.PoseTopic)
	v.SetDefault("mqtt.controlTopic", mqtt.ControlTopic)
	v.SetDefault("mqtt.qos", mqtt.QoS)
}

func (svc *viperService) GetModeMaxShutdownTime() int {
	return svc.v.GetInt("mode.maxShutdownTime")
}

func (svc *viperService) GetInputFolder() string {
	return svc.v.GetString("folders.input")
}

func (svc *viperService) GetModelsFolder() string {
	return svc.v.GetString("folders.models")
}

func (svc *viperService) GetAgentPeriodicTimeout() int {
	return svc.v.GetInt("agent.periodicTimeout")
}

func (svc *viperService) GetCommandQueueSize() int {
	return svc.v.GetInt("agent.commandQueueSize")
}

func (svc *viperService) GetAPIPort() int {
	return svc.v.GetInt("api.port")
}

func (svc *viperService) GetCamera() model.Camera {
	return model.Camera{
		Name:        svc.v.GetString("camera.name"),
		FrontDevice: svc.v.GetString("camera.frontDevice"),
		BackDevice:  svc.v.GetString("camera.backDevice"),
		FramerType:  svc.v.GetString("camera.framerType"),
		Width:       svc.v.GetInt("camera.width"),
		Height:      svc.v.GetInt("camera.height"),
	}
}

func (svc *viperService) GetCanvasSize() model.Viewport {
	return model.Viewport{
		Width:  svc.v.GetInt("canvas.width"),
		Height: svc.v.GetInt("canvas.height"),
	}
}

func (svc *viperService) GetViewport() model.Viewport {
	return model.Viewport{
		Width:  svc.v.GetInt("viewport.width"),
		Height: svc.v.GetInt("viewport.height"),
	}
}

func (svc *viperService) GetRenderConfig() model.RenderConfig {
	cfg := model.RenderConfig{
		IsFullScreen:         svc.v.GetBool("render.isFullScreen"),
		IsBackCamera:         svc.v.GetBool("render.isBackCamera"),
		FlipHorizontal:       svc.v.GetBool("render.flipHorizontal"),
		EnableSkeleton:       svc.v.GetBool("render.enableSkeleton"),
		EnableKeyPoints:      svc.v.GetBool("render.enableKeyPoints"),
		ScoreThreshold:       svc.v.GetFloat64("render.scoreThreshold"),
		Color:                svc.v.GetString("render.color"),
		DefaultLandmarkSize:  svc.v.GetFloat64("render.defaultLandmarkSize"),
		CustomLandmarkSizes:  map[model.LandmarkID]float64{},
		CustomLandmarkColors: map[model.LandmarkID]string{},
	}

	for key, value := range svc.v.GetStringMap("render.customLandmarkSizes") {
		id, err := strconv.Atoi(key)
		if err != nil {
			lgr.Logger.Warn("ignoring custom landmark size", slog.String("key", key))
			continue
		}
		cfg.CustomLandmarkSizes[model.LandmarkID(id)] = cast.ToFloat64(value)
	}

	for key, value := range svc.v.GetStringMapString("render.customLandmarkColors") {
		id, err := strconv.Atoi(key)
		if err != nil {
			lgr.Logger.Warn("ignoring custom landmark color", slog.String("key", key))
			continue
		}
		cfg.CustomLandmarkColors[model.LandmarkID(id)] = value
	}

	return cfg
}

func (svc *viperService) GetPoseParameters() PoseParameters {
	return PoseParameters{
		Estimator:              svc.v.GetString("pose.estimator"),
		ModelPath:              svc.v.GetString("pose.modelPath"),
		ModelURL:               svc.v.GetString("pose.modelUrl"),
		InputSize:              svc.v.GetInt("pose.inputSize"),
		LandmarksOutput:        svc.v.GetString("pose.landmarksOutput"),
		PoseFlagOutput:         svc.v.GetString("pose.poseFlagOutput"),
		ModelComplexity:        svc.v.GetInt("pose.modelComplexity"),
		SmoothLandmarks:        svc.v.GetBool("pose.smoothLandmarks"),
		MinDetectionConfidence: float32(svc.v.GetFloat64("pose.minDetectionConfidence")),
		MinTrackingConfidence:  float32(svc.v.GetFloat64("pose.minTrackingConfidence")),
	}
}

func (svc *viperService) GetBridgeParameters() BridgeParameters {
	return BridgeParameters{
		Type:       svc.v.GetString("bridge.type"),
		QueueSize:  svc.v.GetInt("bridge.queueSize"),
		WebhookURL: svc.v.GetString("bridge.webhookUrl"),
		FilePath:   svc.v.GetString("bridge.filePath"),
	}
}

func (svc *viperService) GetMQTTParameters() MQTTParameters {
	return MQTTParameters{
		Broker:       svc.v.GetString("mqtt.broker"),
		ClientID:     svc.v.GetString("mqtt.clientId"),
		PoseTopic:    svc.v.GetString("mqtt.poseTopic"),
		ControlTopic: svc.v.GetString("mqtt.controlTopic"),
		QoS:          byte(svc.v.GetUint("mqtt.qos")),
	}
}
