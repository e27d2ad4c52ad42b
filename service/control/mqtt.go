package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/khaledhikmat/pose-go/service/lgr"
)

// SubscribeMQTT forwards JSON commands published on topic to svc until ctx
// is cancelled.
func SubscribeMQTT(ctx context.Context, client mqtt.Client, topic string, qos byte, svc IService) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var cmd Command
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			lgr.Logger.Error("failed to parse control command", slog.Any("error", err))
			return
		}

		lgr.Logger.Info("control command received", slog.String("command", string(cmd.Kind)))
		if err := svc.Submit(cmd); err != nil {
			lgr.Logger.Warn("control command rejected",
				slog.String("command", string(cmd.Kind)),
				slog.Any("error", err),
			)
		}
	}

	token := client.Subscribe(topic, qos, handler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control subscription failed: %w", err)
	}

	lgr.Logger.Info("subscribed to control topic", slog.String("topic", topic))

	go func() {
		<-ctx.Done()
		if client.IsConnected() {
			client.Unsubscribe(topic).WaitTimeout(time.Second)
		}
	}()

	return nil
}
