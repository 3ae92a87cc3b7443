// Package persist writes captured trade plans to disk.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Strategy names accepted by New.
const (
	StrategyDownloads = "downloads"
	StrategyDirectory = "directory"
	StrategyBrowser   = "browser"
)

// Request is everything a Saver needs to write one trade plan.
type Request struct {
	Payload    json.RawMessage
	Ticker     string
	CapturedAt time.Time
	// Directory is the user-chosen directory from settings, if any.
	Directory string
}

// Result describes a written file.
type Result struct {
	Name     string
	Location string
}

// Saver writes a trade plan somewhere durable.
type Saver interface {
	Save(ctx context.Context, req Request) (Result, error)
}

// Render pretty-prints the payload with two-space indentation, keeping the
// original key order.
func Render(payload json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return nil, fmt.Errorf("render payload: %w", err)
	}
	return buf.Bytes(), nil
}
