// Package coordinator gates captured trade plans on the durable enabled flag,
// hands them to the persistence strategy and surfaces the outcome.
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/tradeplan_saver/internal/events"
	"github.com/dgnsrekt/tradeplan_saver/internal/notify"
	"github.com/dgnsrekt/tradeplan_saver/internal/persist"
	"github.com/dgnsrekt/tradeplan_saver/internal/settings"
	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

const (
	StateIdle      = "idle"
	StateCapturing = "capturing"
)

// Event types published to the broker.
const (
	EventSaved  = "saved"
	EventFailed = "failed"
)

// Notifier shows a user-visible message.
type Notifier interface {
	Notify(ctx context.Context, note notify.Notification) error
}

// Beeper plays the confirmation tone.
type Beeper interface {
	Beep(ctx context.Context, volume float64) error
}

// Service is the long-lived coordinator.
type Service struct {
	store    settings.Store
	saver    persist.Saver
	notifier Notifier
	beeper   Beeper
	broker   *events.Broker

	// enabled mirrors the durable flag for logging only; the capture path
	// always re-reads the store.
	enabled  atomic.Bool
	inFlight atomic.Int64
	now      func() time.Time

	// serializes read-modify-write of the settings record
	writeMu sync.Mutex
}

func NewService(store settings.Store, saver persist.Saver, notifier Notifier, beeper Beeper, broker *events.Broker) *Service {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Service{
		store:    store,
		saver:    saver,
		notifier: notifier,
		beeper:   beeper,
		broker:   broker,
		now:      time.Now,
	}
}

// Init loads the enabled flag into the in-memory mirror.
func (s *Service) Init(ctx context.Context) error {
	cur, err := s.store.Load(ctx)
	if err != nil {
		return types.NewError(types.CodeSettings, "load settings failed", err)
	}
	s.enabled.Store(cur.IsEnabled)
	slog.Info("coordinator settings loaded", "enabled", cur.IsEnabled, "audio", cur.AudioEnabled, "volume", cur.Volume, "directory", cur.DirectoryPath)
	return nil
}

// State reports idle or capturing.
func (s *Service) State() string {
	if s.inFlight.Load() > 0 {
		return StateCapturing
	}
	return StateIdle
}

// HandleCapture processes one captured trade plan and returns its result.
func (s *Service) HandleCapture(ctx context.Context, ev types.CaptureEvent) types.CaptureResult {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	slog.Debug("processing trade plan capture", "source_url", ev.SourceURL, "captured_at", ev.CapturedAt)

	current, err := s.store.Load(ctx)
	if err != nil {
		slog.Warn("settings read failed, treating capture as disabled", "error", err)
		current = types.DefaultSettings()
	}
	if !current.IsEnabled {
		slog.Info("capture disabled, ignoring trade plan", "source_url", ev.SourceURL)
		return types.CaptureResult{Succeeded: false, Reason: types.ReasonDisabled}
	}

	if !isStructured(ev.Payload) {
		slog.Error("invalid trade plan data", "source_url", ev.SourceURL, "size", len(ev.Payload))
		res := types.CaptureResult{Succeeded: false, Reason: types.ReasonInvalidData, ErrorMessage: "Invalid data structure"}
		s.finish(ctx, current, res)
		return res
	}

	ticker, ok := extractTicker(ev.Payload)
	if !ok {
		slog.Warn("trade plan missing ticker field", "source_url", ev.SourceURL, "fallback", types.FallbackTicker)
		ticker = types.FallbackTicker
	}

	capturedAt := ev.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}

	slog.Info("saving trade plan", "ticker", ticker)
	saved, err := s.saver.Save(ctx, persist.Request{
		Payload:    ev.Payload,
		Ticker:     ticker,
		CapturedAt: capturedAt,
		Directory:  current.DirectoryPath,
	})

	var res types.CaptureResult
	if err != nil {
		slog.Error("failed to save trade plan", "ticker", ticker, "error", err)
		res = types.CaptureResult{Succeeded: false, Reason: types.ReasonPersistenceError, ErrorMessage: err.Error(), Ticker: ticker}
	} else {
		slog.Info("trade plan saved", "ticker", ticker, "file", saved.Name, "location", saved.Location)
		res = types.CaptureResult{Succeeded: true, SavedName: saved.Name, Ticker: ticker, Location: saved.Location}
	}
	s.finish(ctx, current, res)
	return res
}

// finish surfaces the outcome. Nothing here changes the result.
func (s *Service) finish(ctx context.Context, current types.Settings, res types.CaptureResult) {
	detail := res.ErrorMessage
	if res.Succeeded {
		detail = res.SavedName
	}
	if err := s.notifier.Notify(ctx, notify.ForOutcome(res.Succeeded, detail)); err != nil {
		slog.Error("notification error", "error", err)
	}

	if res.Succeeded && current.AudioEnabled && s.beeper != nil {
		if err := s.beeper.Beep(ctx, current.Volume); err != nil {
			slog.Error("beep playback error", "error", err)
		}
	}

	if s.broker != nil {
		evType := EventFailed
		if res.Succeeded {
			evType = EventSaved
		}
		payload, err := json.Marshal(res)
		if err != nil {
			slog.Debug("capture result marshal failed", "error", err)
			return
		}
		s.broker.Publish(events.Event{Type: evType, Payload: string(payload)})
	}
}

// Toggle writes the enabled flag durably, then updates the mirror.
func (s *Service) Toggle(ctx context.Context, enabled bool) (types.ToggleResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := settings.Update(ctx, s.store, func(cur *types.Settings) {
		cur.IsEnabled = enabled
	}); err != nil {
		return types.ToggleResult{Succeeded: false, Enabled: s.enabled.Load()}, types.NewError(types.CodeSettings, "toggle capture failed", err)
	}
	s.enabled.Store(enabled)
	slog.Info("capture toggled", "enabled", enabled)
	return types.ToggleResult{Succeeded: true, Enabled: enabled}, nil
}

// Status reports the durable settings.
func (s *Service) Status(ctx context.Context) (types.StatusResult, error) {
	cur, err := s.store.Load(ctx)
	if err != nil {
		return types.StatusResult{Succeeded: false}, types.NewError(types.CodeSettings, "load settings failed", err)
	}
	s.enabled.Store(cur.IsEnabled)
	return types.StatusResult{Succeeded: true, Settings: cur, Enabled: cur.IsEnabled}, nil
}

// SettingsPatch changes the optional collaborator settings. Nil fields are
// left alone.
type SettingsPatch struct {
	AudioEnabled  *bool
	Volume        *float64
	DirectoryPath *string
}

// UpdateSettings applies a patch and returns the stored settings.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (types.Settings, error) {
	if patch.Volume != nil && (*patch.Volume < 0 || *patch.Volume > 1) {
		return types.Settings{}, types.NewError(types.CodeValidation, "volume must be between 0 and 1", nil)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	updated, err := settings.Update(ctx, s.store, func(cur *types.Settings) {
		if patch.AudioEnabled != nil {
			cur.AudioEnabled = *patch.AudioEnabled
		}
		if patch.Volume != nil {
			cur.Volume = *patch.Volume
		}
		if patch.DirectoryPath != nil {
			cur.DirectoryPath = *patch.DirectoryPath
		}
	})
	if err != nil {
		return types.Settings{}, types.NewError(types.CodeSettings, "update settings failed", err)
	}
	return updated, nil
}

func isStructured(payload json.RawMessage) bool {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid(trimmed)
}

func extractTicker(payload json.RawMessage) (string, bool) {
	var probe struct {
		Ticker any `json:"ticker"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", false
	}
	ticker, ok := probe.Ticker.(string)
	if !ok || ticker == "" {
		return "", false
	}
	return ticker, true
}
