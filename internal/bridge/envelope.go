// Package bridge carries capture events from the observer to the coordinator,
// either in-process or over a websocket between two processes.
package bridge

import (
	"context"
	"encoding/json"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

// Marker tags envelopes produced by this program's observer. The handler
// ignores anything else arriving on the socket.
const Marker = "trade-plan-saver-main"

// Coordinator is the receiving end of the bridge.
type Coordinator interface {
	HandleCapture(ctx context.Context, ev types.CaptureEvent) types.CaptureResult
}

// Envelope is a capture message tagged with the marker and a delivery id.
type Envelope struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	types.CaptureMessage
}

// Ack is written back by the handler once the coordinator has answered.
type Ack struct {
	ID     string              `json:"id"`
	Result types.CaptureResult `json:"result"`
}

func decodeEnvelope(data []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, false
	}
	if env.Source != Marker || env.Kind != types.KindTradePlanCaptured {
		return Envelope{}, false
	}
	return env, true
}
