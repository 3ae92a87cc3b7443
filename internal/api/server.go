package api

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tradeplan_saver/internal/coordinator"
	"github.com/dgnsrekt/tradeplan_saver/internal/events"
	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

// Service is the coordinator surface exposed over HTTP.
type Service interface {
	HandleCapture(ctx context.Context, ev types.CaptureEvent) types.CaptureResult
	Toggle(ctx context.Context, enabled bool) (types.ToggleResult, error)
	Status(ctx context.Context) (types.StatusResult, error)
	UpdateSettings(ctx context.Context, patch coordinator.SettingsPatch) (types.Settings, error)
	Dispatch(ctx context.Context, msg types.Message) (any, error)
	State() string
}

// Options wires the optional surfaces. Nil fields leave their routes out.
type Options struct {
	Broker *events.Broker
	Bridge http.Handler
	Tabs   func() []types.TabInfo
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig(apiTitle, "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", docsHandler(apiTitle, cfg.OpenAPIPath+".json"))

	if opts.Broker != nil {
		router.Get("/api/v1/events", events.SSEHandler(opts.Broker))
	}
	if opts.Bridge != nil {
		router.Handle("/api/v1/bridge", opts.Bridge)
	}

	registerCaptureHandlers(api, svc)
	registerSettingsHandlers(api, svc)
	registerMiscHandlers(api, svc, opts)

	return router
}

const apiTitle = "Trade Plan Saver API"

// docsHandler serves a Stoplight Elements page for the OpenAPI document at
// specURL.
func docsHandler(title, specURL string) http.HandlerFunc {
	page := fmt.Sprintf(`<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>%s</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
</head>
<body style="height: 100vh; margin: 0;">
  <elements-api apiDescriptionUrl="%s" router="hash" layout="sidebar" tryItCredentialsPolicy="same-origin" darkMode />
</body>
</html>`, html.EscapeString(title), html.EscapeString(specURL))

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(page)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *types.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case types.CodeValidation, types.CodeParse:
			return huma.Error400BadRequest(coded.Message)
		case types.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
