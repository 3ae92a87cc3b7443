// Package notify surfaces capture outcomes to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	TitleSaved  = "Trade Plan Saved"
	TitleFailed = "Save Failed"
)

// Notification is one user-visible message.
type Notification struct {
	Title   string
	Message string
	Success bool
}

// ForOutcome builds the notification for a save outcome: the generated name
// on success, the error text on failure.
func ForOutcome(succeeded bool, detail string) Notification {
	if succeeded {
		return Notification{Title: TitleSaved, Message: detail, Success: true}
	}
	return Notification{Title: TitleFailed, Message: detail}
}

// NTFY posts notifications to an ntfy topic URL.
type NTFY struct {
	endpoint string
	client   *http.Client
}

func NewNTFY(endpoint string, client *http.Client) *NTFY {
	return &NTFY{endpoint: endpoint, client: client}
}

func (n *NTFY) Notify(ctx context.Context, note Notification) error {
	headers := map[string]string{
		"Title":    note.Title,
		"Priority": "default",
		"Tags":     "floppy_disk",
	}
	if !note.Success {
		headers["Priority"] = "high"
		headers["Tags"] = "warning"
	}
	return Send(ctx, n.client, n.endpoint, note.Message, headers)
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string, headers map[string]string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.New("ntfy notification failed: missing endpoint")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

// Log writes notifications to the default logger. Used when no ntfy endpoint
// is configured.
type Log struct{}

func (Log) Notify(_ context.Context, note Notification) error {
	if note.Success {
		slog.Info("notification", "title", note.Title, "message", note.Message)
	} else {
		slog.Warn("notification", "title", note.Title, "message", note.Message)
	}
	return nil
}
