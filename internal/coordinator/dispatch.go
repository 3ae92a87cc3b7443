package coordinator

import (
	"context"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

// Dispatch routes a generic message by kind. Capture results are returned as
// values, never as errors.
func (s *Service) Dispatch(ctx context.Context, msg types.Message) (any, error) {
	switch msg.Kind {
	case types.KindTradePlanCaptured:
		wire := types.CaptureMessage{Kind: msg.Kind, Payload: msg.Payload, SourceURL: msg.SourceURL, CapturedAt: msg.CapturedAt}
		return s.HandleCapture(ctx, wire.Event()), nil
	case types.KindToggleCapture:
		if msg.Enabled == nil {
			return nil, types.NewError(types.CodeValidation, "enabled is required", nil)
		}
		return s.Toggle(ctx, *msg.Enabled)
	case types.KindGetStatus:
		return s.Status(ctx)
	default:
		return nil, types.NewError(types.CodeValidation, "unknown message kind: "+msg.Kind, nil)
	}
}
