package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/khaledhikmat/pose-go/service/config"
	"github.com/khaledhikmat/pose-go/service/lgr"
)

const connectTimeout = 5 * time.Second

// Connect opens an auto-reconnecting MQTT client shared by the pose bridge
// and the control plane.
func Connect(ctx context.Context, params config.MQTTParameters) (mqtt.Client, error) {
	clientID := params.ClientID
	if clientID == "" {
		clientID = "pose-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", params.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		lgr.Logger.Info("mqtt connection established",
			slog.String("broker", params.Broker),
			slog.String("clientID", clientID),
		)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		lgr.Logger.Warn("mqtt connection lost, will auto-reconnect",
			slog.String("broker", params.Broker),
			slog.Any("error", err),
		)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, ctx.Err()
	case <-token.Done():
	case <-time.After(connectTimeout):
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return client, nil
}
