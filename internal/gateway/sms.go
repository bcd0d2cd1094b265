package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Sender delivers one-time codes over the phone channel. Delivery has its own
// failure domain; callers never block on it or surface its errors.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Client talks to the external messaging gateway over HTTP
type Client struct {
	url      string
	apiKey   string
	senderID string
	client   *http.Client
}

// NewClient creates a messaging gateway client
func NewClient(url, apiKey, senderID string) *Client {
	return &Client{
		url:      url,
		apiKey:   apiKey,
		senderID: senderID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	RequestID string `json:"request_id"`
	To        string `json:"to"`
	From      string `json:"from"`
	Body      string `json:"body"`
}

// Send submits one message to the gateway
func (c *Client) Send(ctx context.Context, phone, message string) error {
	payload, err := json.Marshal(sendRequest{
		RequestID: uuid.New().String(),
		To:        phone,
		From:      c.senderID,
		Body:      message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
