// Package settings persists the saver's durable settings record.
package settings

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/tradeplan_saver/internal/types"
)

// Store reads and writes the durable settings record. Load returns defaults
// for any key that was never written.
type Store interface {
	Load(ctx context.Context) (types.Settings, error)
	Save(ctx context.Context, s types.Settings) error
}

// Update performs a read-modify-write against the store and returns the
// settings that were written.
func Update(ctx context.Context, store Store, fn func(*types.Settings)) (types.Settings, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return types.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	fn(&current)
	current.Volume = ClampVolume(current.Volume)
	if err := store.Save(ctx, current); err != nil {
		return types.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return current, nil
}

// ClampVolume keeps a volume in [0, 1].
func ClampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Open picks a store by backend name.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}
