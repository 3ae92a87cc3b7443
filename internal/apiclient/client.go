// Package apiclient talks to a running saver's HTTP API. It backs the
// tradeplanctl command.
package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

type Client struct {
	base string
	http *http.Client
}

// New returns a client for base, e.g. "http://127.0.0.1:8190". A nil
// httpClient gets a 10 second timeout; Watch ignores that timeout.
func New(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	base = strings.TrimRight(base, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: base, http: httpClient}
}

// Status mirrors the server's status body.
type Status struct {
	types.StatusResult
	State string `json:"state"`
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out)
	return out, err
}

func (c *Client) Toggle(ctx context.Context, enabled bool) (types.ToggleResult, error) {
	var out types.ToggleResult
	err := c.do(ctx, http.MethodPost, "/api/v1/toggle", map[string]bool{"enabled": enabled}, &out)
	return out, err
}

// SettingsUpdate carries the optional fields of a settings patch.
type SettingsUpdate struct {
	AudioEnabled  *bool    `json:"audioEnabled,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	DirectoryPath *string  `json:"directoryPath,omitempty"`
}

func (c *Client) UpdateSettings(ctx context.Context, patch SettingsUpdate) (types.Settings, error) {
	var out types.Settings
	err := c.do(ctx, http.MethodPatch, "/api/v1/settings", patch, &out)
	return out, err
}

// Event is one server-sent event from /api/v1/events.
type Event struct {
	Type string
	Data string
}

// Watch streams events until ctx is cancelled or the server closes the
// stream. fn runs for each event; returning an error stops the watch.
func (c *Client) Watch(ctx context.Context, eventTypes []string, fn func(Event) error) error {
	u := c.base + "/api/v1/events"
	if len(eventTypes) > 0 {
		u += "?types=" + url.QueryEscape(strings.Join(eventTypes, ","))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	stream := &http.Client{Transport: c.http.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return fmt.Errorf("watch events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("watch events: unexpected status %d", resp.StatusCode)
	}

	var ev Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if ev.Data != "" || ev.Type != "" {
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev = Event{}
		case strings.HasPrefix(line, "event:"):
			ev.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.Data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch events: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var problem struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &problem) == nil && problem.Detail != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, problem.Detail)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
