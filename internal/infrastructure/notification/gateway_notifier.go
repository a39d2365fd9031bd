package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fazaachat/internal/domain/entity"
)

// GatewayNotifier posts pushes to the legacy FCM HTTP endpoint using a
// static server key.
type GatewayNotifier struct {
	url         string
	serverKey   string
	clickAction string
	client      *http.Client
}

type gatewayRequest struct {
	To           string              `json:"to"`
	Notification gatewayNotification `json:"notification"`
	Data         gatewayData         `json:"data"`
}

type gatewayNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

type gatewayData struct {
	ClickAction string `json:"click_action"`
}

type gatewayResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

func NewGatewayNotifier(url, serverKey, clickAction string, timeout time.Duration) *GatewayNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayNotifier{
		url:         url,
		serverKey:   serverKey,
		clickAction: clickAction,
		client:      &http.Client{Timeout: timeout},
	}
}

func (g *GatewayNotifier) Send(ctx context.Context, n entity.Notification) error {
	payload := gatewayRequest{
		To: n.Token,
		Notification: gatewayNotification{
			Title: n.Title,
			Body:  n.Body,
			Sound: "default",
		},
		Data: gatewayData{ClickAction: g.clickAction},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "key="+g.serverKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute push request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, string(body))
	}

	var result gatewayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		// The gateway answered 200; an unparseable body is not a delivery failure.
		return nil
	}
	if result.Failure > 0 && result.Success == 0 {
		reason := "unknown"
		if len(result.Results) > 0 && result.Results[0].Error != "" {
			reason = result.Results[0].Error
		}
		return fmt.Errorf("push gateway rejected token: %s", reason)
	}
	return nil
}
