package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const discordAPI = "https://discord.com/api/v10"

// Discord delivers reminders as direct messages from a bot account. Each
// notify opens (or reuses) the DM channel and then posts to it.
type Discord struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewDiscord creates a Discord notifier. An empty baseURL uses the public API.
func NewDiscord(token, baseURL string, timeout time.Duration) *Discord {
	if baseURL == "" {
		baseURL = discordAPI
	}
	return &Discord{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Notify sends message to the user ownerID.
func (d *Discord) Notify(ctx context.Context, ownerID, message string) error {
	var channel struct {
		ID string `json:"id"`
	}
	if err := d.post(ctx, "open dm", "/users/@me/channels", map[string]string{"recipient_id": ownerID}, &channel); err != nil {
		return err
	}
	if channel.ID == "" {
		return &PermanentError{Reason: "open dm: no channel id for " + ownerID}
	}
	return d.post(ctx, "send message", "/channels/"+channel.ID+"/messages", map[string]string{"content": message}, nil)
}

func (d *Discord) post(ctx context.Context, op, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return unreachable("discord %s: %v", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return unreachable("discord %s: read response: %v", op, err)
	}
	if err := classifyStatus("discord "+op, resp.StatusCode, respBody); err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &PermanentError{Reason: "discord " + op + ": decode response", Err: err}
		}
	}
	return nil
}
