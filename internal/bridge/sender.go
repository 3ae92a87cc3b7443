package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

const dialTimeout = 5 * time.Second

// Sender relays events to a remote coordinator over a websocket. Sends are
// fire-and-forget: failures are logged as relay errors and never retried.
type Sender struct {
	url    string
	dialer ws.Dialer
	queue  chan Envelope

	link *link

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	sent    atomic.Int64
	dropped atomic.Int64
}

func NewSender(url, origin string, queueSize int) *Sender {
	if queueSize < 1 {
		queueSize = 1
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return &Sender{
		url:    url,
		dialer: ws.Dialer{Header: ws.HandshakeHeaderHTTP(header), Timeout: dialTimeout},
		queue:  make(chan Envelope, queueSize),
		done:   make(chan struct{}),
	}
}

// Start runs the send loop until ctx is cancelled or Close is called.
func (s *Sender) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Deliver enqueues ev without blocking. A full queue drops the event.
func (s *Sender) Deliver(_ context.Context, ev types.CaptureEvent) {
	env := Envelope{Source: Marker, ID: uuid.NewString(), CaptureMessage: types.NewCaptureMessage(ev)}
	select {
	case s.queue <- env:
	default:
		s.dropped.Add(1)
		slog.Warn("Bridge queue full, dropping capture", "reason", types.ReasonRelayError, "id", env.ID, "source_url", ev.SourceURL)
	}
}

// Stats reports how many envelopes were written and how many were dropped.
func (s *Sender) Stats() (sent, dropped int64) {
	return s.sent.Load(), s.dropped.Load()
}

func (s *Sender) Close() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	if s.link != nil {
		s.link.close()
	}
}

func (s *Sender) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case env := <-s.queue:
			s.send(ctx, env)
		}
	}
}

func (s *Sender) send(ctx context.Context, env Envelope) {
	if s.link == nil || s.link.dead.Load() {
		l, err := s.dial(ctx)
		if err != nil {
			s.dropped.Add(1)
			slog.Warn("Bridge dial failed, dropping capture", "reason", types.ReasonRelayError, "id", env.ID, "url", s.url, "error", err)
			return
		}
		s.link = l
	}

	data, err := json.Marshal(env)
	if err != nil {
		s.dropped.Add(1)
		slog.Warn("Bridge encode failed", "reason", types.ReasonRelayError, "id", env.ID, "error", err)
		return
	}
	if err := s.link.writeText(data); err != nil {
		s.dropped.Add(1)
		slog.Warn("Bridge send failed", "reason", types.ReasonRelayError, "id", env.ID, "error", err)
		s.link.close()
		return
	}
	s.sent.Add(1)
	slog.Debug("Capture relayed", "id", env.ID, "source_url", env.SourceURL)
}

func (s *Sender) dial(ctx context.Context) (*link, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, br, _, err := s.dialer.Dial(dialCtx, s.url)
	if err != nil {
		return nil, err
	}
	l := newLink(conn, br, ws.StateClientSide)
	slog.Info("Bridge connected", "url", s.url)

	go s.readAcks(l)
	return l, nil
}

func (s *Sender) readAcks(l *link) {
	defer l.close()
	for {
		data, err := l.readText()
		if err != nil {
			slog.Debug("Bridge connection closed", "error", err)
			return
		}
		var ack Ack
		if err := json.Unmarshal(data, &ack); err != nil {
			slog.Debug("Ignoring malformed bridge ack", "error", err)
			continue
		}
		if ack.Result.Succeeded {
			slog.Info("Capture acknowledged", "id", ack.ID, "saved_name", ack.Result.SavedName)
		} else {
			slog.Info("Capture not saved", "id", ack.ID, "reason", ack.Result.Reason, "error", ack.Result.ErrorMessage)
		}
	}
}
