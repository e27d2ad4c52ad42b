package bridge

import (
	"context"

	"github.com/khaledhikmat/pose-go/model"
)

const (
	NoneBridgeType      = "none"
	MQTTBridgeType      = "mqtt"
	WebsocketBridgeType = "websocket"
	WebhookBridgeType   = "webhook"
	FileBridgeType      = "file"
)

// IService delivers pose envelopes to the host application.
type IService interface {
	Post(ctx context.Context, env model.Envelope) error
	Close() error
}
