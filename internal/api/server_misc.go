package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

func registerMiscHandlers(api huma.API, svc Service, opts Options) {
	type healthOutput struct {
		Body struct {
			Status      string `json:"status"`
			State       string `json:"state"`
			Tabs        int    `json:"tabs"`
			Subscribers int    `json:"subscribers"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.State = svc.State()
			if opts.Tabs != nil {
				out.Body.Tabs = len(opts.Tabs())
			}
			if opts.Broker != nil {
				out.Body.Subscribers = opts.Broker.ClientCount()
			}
			return out, nil
		})

	if opts.Tabs == nil {
		return
	}

	type tabsOutput struct {
		Body struct {
			Tabs []types.TabInfo `json:"tabs"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List observed browser tabs", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*tabsOutput, error) {
			out := &tabsOutput{}
			out.Body.Tabs = opts.Tabs()
			if out.Body.Tabs == nil {
				out.Body.Tabs = []types.TabInfo{}
			}
			return out, nil
		})
}
