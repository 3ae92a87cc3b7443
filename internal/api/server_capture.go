package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

// rawJSONInput keeps the request body as sent so the payload's key order and
// number formatting reach the saved file untouched.
type rawJSONInput struct {
	RawBody []byte `contentType:"application/json"`
}

func registerCaptureHandlers(api huma.API, svc Service) {
	type captureOutput struct {
		Body types.CaptureResult
	}

	huma.Register(api, huma.Operation{OperationID: "submit-capture", Method: http.MethodPost, Path: "/api/v1/capture", Summary: "Submit a captured trade plan", Description: "Body is a capture message: kind, payload, sourceUrl and capturedAt (ms). The result reports disabled, invalid-data or persistence-error without an HTTP error.", Tags: []string{"Capture"}},
		func(ctx context.Context, input *rawJSONInput) (*captureOutput, error) {
			var msg types.CaptureMessage
			if err := json.Unmarshal(input.RawBody, &msg); err != nil {
				return nil, mapErr(types.NewError(types.CodeParse, "body is not a capture message", err))
			}
			if msg.Kind != "" && msg.Kind != types.KindTradePlanCaptured {
				return nil, mapErr(types.NewError(types.CodeValidation, "kind must be "+types.KindTradePlanCaptured, nil))
			}
			out := &captureOutput{}
			out.Body = svc.HandleCapture(ctx, msg.Event())
			recordOutcome(ctx, out.Body)
			return out, nil
		})

	type messageOutput struct {
		Body any
	}

	huma.Register(api, huma.Operation{OperationID: "post-message", Method: http.MethodPost, Path: "/api/v1/messages", Summary: "Send a coordinator message", Description: "Routes trade-plan-captured, toggle-capture and get-status messages by kind.", Tags: []string{"Capture"}},
		func(ctx context.Context, input *rawJSONInput) (*messageOutput, error) {
			var msg types.Message
			if err := json.Unmarshal(input.RawBody, &msg); err != nil {
				return nil, mapErr(types.NewError(types.CodeParse, "body is not a message", err))
			}
			res, err := svc.Dispatch(ctx, msg)
			if err != nil {
				return nil, mapErr(err)
			}
			if captured, ok := res.(types.CaptureResult); ok {
				recordOutcome(ctx, captured)
			}
			out := &messageOutput{}
			out.Body = res
			return out, nil
		})
}
