package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

// Direct hands events straight to an in-process coordinator.
type Direct struct {
	coord Coordinator
	wg    sync.WaitGroup
}

func NewDirect(coord Coordinator) *Direct {
	return &Direct{coord: coord}
}

// Deliver runs the capture in its own goroutine so the observer never waits
// on persistence.
func (d *Direct) Deliver(ctx context.Context, ev types.CaptureEvent) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Recovered panic in capture delivery", "reason", types.ReasonRelayError, "panic", r)
			}
		}()
		res := d.coord.HandleCapture(ctx, ev)
		slog.Debug("Capture handled", "succeeded", res.Succeeded, "reason", res.Reason, "saved_name", res.SavedName)
	}()
}

// Wait blocks until every delivered event has been handled.
func (d *Direct) Wait() {
	d.wg.Wait()
}
