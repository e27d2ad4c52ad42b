package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/khaledhikmat/pose-go/model"
)

const publishTimeout = 2 * time.Second

type mqttService struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func NewMQTT(client mqtt.Client, topic string, qos byte) IService {
	return &mqttService{
		client: client,
		topic:  topic,
		qos:    qos,
	}
}

func (svc *mqttService) Post(ctx context.Context, env model.Envelope) error {
	if !svc.client.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	token := svc.client.Publish(svc.topic, svc.qos, false, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	case <-time.After(publishTimeout):
		return fmt.Errorf("mqtt publish timeout on %s", svc.topic)
	}
}

// Close leaves the shared client connected; its owner disconnects it.
func (svc *mqttService) Close() error {
	return nil
}
