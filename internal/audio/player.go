package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

var defaultPlayers = []string{"paplay", "aplay", "afplay"}

// Synth renders the beep and hands it to an external player command.
type Synth struct {
	command string
	run     func(ctx context.Context, name string, args ...string) error
}

// NewSynth uses command when set, otherwise the first player found on PATH.
func NewSynth(command string) (*Synth, error) {
	if command == "" {
		for _, name := range defaultPlayers {
			if path, err := exec.LookPath(name); err == nil {
				command = path
				break
			}
		}
	}
	if command == "" {
		return nil, fmt.Errorf("no audio player found (tried %v)", defaultPlayers)
	}
	return &Synth{command: command, run: runCommand}, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// Beep plays the 440 Hz confirmation tone at volume.
func (s *Synth) Beep(ctx context.Context, volume float64) error {
	wav := RenderTone(ToneFrequency, ToneDuration, FadeDuration, volume)

	f, err := os.CreateTemp("", "tradeplan-beep-*.wav")
	if err != nil {
		return fmt.Errorf("audio playback failed: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Debug("beep temp file cleanup failed", "file", path, "error", err)
		}
	}()
	if _, err := f.Write(wav); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio playback failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audio playback failed: %w", err)
	}

	if err := s.run(ctx, s.command, path); err != nil {
		return fmt.Errorf("audio playback failed: %w", err)
	}
	slog.Debug("beep played", "volume_pct", int(volume*100))
	return nil
}

// Nop is a silent beeper.
type Nop struct{}

func (Nop) Beep(context.Context, float64) error { return nil }
