package action

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"
)

// DefaultSettle is the pause after handing a step to the OS.
const DefaultSettle = 500 * time.Millisecond

// SayFunc displays and speaks text, returning once speech has ended.
type SayFunc func(ctx context.Context, text string)

// Launcher dispatches work to the operating system without waiting for it.
type Launcher interface {
	OpenPath(path string) error
	OpenURL(url string) error
	RunCommand(command string) error
}

// Player plays a sound file to completion. Only failures to load the sound
// are returned; playback problems end the sound early.
type Player interface {
	Play(ctx context.Context, path string) error
}

// StepError reports the step that stopped a sequence.
type StepError struct {
	Index int
	Kind  Kind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Runner struct {
	Say      SayFunc
	Launcher Launcher
	Player   Player
	Settle   time.Duration
	Log      *log.Logger
}

// Run executes steps in order, waiting for each before starting the next.
// The first failing step aborts the rest and is returned as a *StepError.
// Cancelling ctx stops the sequence between or during waits.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	logger := r.Log
	if logger == nil {
		logger = log.Default()
	}

	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Debug("Running action step", "index", i, "kind", s.Kind)
		if err := r.step(ctx, s); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Error("Action step failed", "index", i, "kind", s.Kind, "err", err)
			return &StepError{Index: i, Kind: s.Kind, Err: err}
		}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, s Step) error {
	switch s.Kind {
	case Speak:
		if r.Say == nil {
			return errors.New("no speaker")
		}
		r.Say(ctx, s.Value)
		return ctx.Err()
	case OpenApp:
		if err := r.launcher().OpenPath(s.Value); err != nil {
			return err
		}
		return r.settle(ctx)
	case OpenURL:
		if err := r.launcher().OpenURL(s.Value); err != nil {
			return err
		}
		return r.settle(ctx)
	case RunCommand:
		if err := r.launcher().RunCommand(s.Value); err != nil {
			return err
		}
		return r.settle(ctx)
	case PlaySound:
		if r.Player == nil {
			return errors.New("no sound player")
		}
		return r.Player.Play(ctx, s.Value)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}

func (r *Runner) launcher() Launcher {
	if r.Launcher == nil {
		return noLauncher{}
	}
	return r.Launcher
}

func (r *Runner) settle(ctx context.Context) error {
	d := r.Settle
	if d <= 0 {
		d = DefaultSettle
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type noLauncher struct{}

var errNoLauncher = errors.New("no launcher")

func (noLauncher) OpenPath(string) error   { return errNoLauncher }
func (noLauncher) OpenURL(string) error    { return errNoLauncher }
func (noLauncher) RunCommand(string) error { return errNoLauncher }
