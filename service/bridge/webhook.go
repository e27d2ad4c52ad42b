package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/khaledhikmat/pose-go/model"
)

type webhookService struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) IService {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &webhookService{
		url:    url,
		client: client,
	}
}

func (svc *webhookService) Post(ctx context.Context, env model.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned status %d", svc.url, resp.StatusCode)
	}
	return nil
}

func (svc *webhookService) Close() error {
	svc.client.CloseIdleConnections()
	return nil
}
