package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gobwas/ws"
)

// Handler is the coordinator's websocket endpoint for remote observers. It
// only accepts upgrades from allow-listed origins and only acts on envelopes
// carrying the marker.
type Handler struct {
	coord   Coordinator
	origins map[string]bool
	anyOrig bool
}

func NewHandler(coord Coordinator, allowedOrigins []string) *Handler {
	h := &Handler{coord: coord, origins: make(map[string]bool, len(allowedOrigins))}
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			h.anyOrig = true
			continue
		}
		if o != "" {
			h.origins[o] = true
		}
	}
	return h
}

func (h *Handler) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	return h.anyOrig || h.origins[strings.TrimRight(origin, "/")]
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.originAllowed(origin) {
		slog.Warn("Rejected bridge connection", "origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, brw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		slog.Warn("Bridge upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	slog.Info("Bridge client connected", "origin", origin, "remote", r.RemoteAddr)

	ctx := context.WithoutCancel(r.Context())
	rw := newLink(conn, brw.Reader, ws.StateServerSide)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		data, err := rw.readText()
		if err != nil {
			slog.Info("Bridge client disconnected", "remote", r.RemoteAddr, "error", err)
			return
		}
		env, ok := decodeEnvelope(data)
		if !ok {
			slog.Debug("Ignoring bridge message without marker", "remote", r.RemoteAddr, "size", len(data))
			continue
		}

		wg.Add(1)
		go func(env Envelope) {
			defer wg.Done()
			res := h.coord.HandleCapture(ctx, env.Event())
			ack, err := json.Marshal(Ack{ID: env.ID, Result: res})
			if err != nil {
				return
			}
			if err := rw.writeText(ack); err != nil {
				slog.Debug("Bridge ack failed", "id", env.ID, "error", err)
			}
		}(env)
	}
}
