package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tradeplan_saver/internal/coordinator"
	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

func registerSettingsHandlers(api huma.API, svc Service) {
	type statusOutput struct {
		Body struct {
			types.StatusResult
			State string `json:"state" doc:"idle or capturing"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "get-status", Method: http.MethodGet, Path: "/api/v1/status", Summary: "Get capture status and settings", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			status, err := svc.Status(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &statusOutput{}
			out.Body.StatusResult = status
			out.Body.State = svc.State()
			return out, nil
		})

	type toggleOutput struct {
		Body types.ToggleResult
	}

	huma.Register(api, huma.Operation{OperationID: "toggle-capture", Method: http.MethodPost, Path: "/api/v1/toggle", Summary: "Enable or disable capture", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Enabled bool `json:"enabled" required:"true" doc:"New value of the enabled flag"`
			}
		}) (*toggleOutput, error) {
			res, err := svc.Toggle(ctx, input.Body.Enabled)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &toggleOutput{}
			out.Body = res
			return out, nil
		})

	type settingsOutput struct {
		Body types.Settings
	}

	huma.Register(api, huma.Operation{OperationID: "update-settings", Method: http.MethodPatch, Path: "/api/v1/settings", Summary: "Update audio and directory settings", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct {
			Body struct {
				AudioEnabled  *bool    `json:"audioEnabled,omitempty" doc:"Play a beep after a successful save"`
				Volume        *float64 `json:"volume,omitempty" doc:"Beep volume between 0 and 1"`
				DirectoryPath *string  `json:"directoryPath,omitempty" doc:"Target directory for the directory save strategy"`
			}
		}) (*settingsOutput, error) {
			updated, err := svc.UpdateSettings(ctx, coordinator.SettingsPatch{
				AudioEnabled:  input.Body.AudioEnabled,
				Volume:        input.Body.Volume,
				DirectoryPath: input.Body.DirectoryPath,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &settingsOutput{}
			out.Body = updated
			return out, nil
		})
}
