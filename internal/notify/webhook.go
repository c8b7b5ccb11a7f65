package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook posts reminders as JSON to a fixed URL, for relays such as chat
// bridges or home automation.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{url: url, client: &http.Client{Timeout: timeout}}
}

type webhookPayload struct {
	OwnerID string    `json:"owner_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Notify posts {owner_id, message, sent_at}. Any 2xx counts as delivered.
func (w *Webhook) Notify(ctx context.Context, ownerID, message string) error {
	body, err := json.Marshal(webhookPayload{OwnerID: ownerID, Message: message, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &PermanentError{Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return unreachable("webhook: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return classifyStatus("webhook", resp.StatusCode, respBody)
}
