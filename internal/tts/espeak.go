// Package tts speaks text through the espeak-ng command line synthesizer.
package tts

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Voice settings as stored in user settings. Pitch and Rate are multipliers
// around 1.0.
type Voice struct {
	Name  string
	Pitch float64
	Rate  float64
}

const (
	basePitch = 50  // espeak-ng -p, 0..99
	baseRate  = 175 // espeak-ng -s, words per minute
)

type Speaker struct {
	Bin  string
	Duck *Ducker // optional, lowers other audio while speaking

	mu    sync.RWMutex
	voice Voice
}

func NewSpeaker(v Voice) *Speaker {
	return &Speaker{Bin: "espeak-ng", voice: v}
}

func (s *Speaker) SetVoice(v Voice) {
	s.mu.Lock()
	s.voice = v
	s.mu.Unlock()
}

// Speak blocks until the utterance has finished. Cancelling ctx cuts speech
// off and returns the context error.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	s.mu.RLock()
	v := s.voice
	s.mu.RUnlock()

	if s.Duck != nil {
		if err := s.Duck.Duck(ctx); err != nil {
			log.Debug("Failed to duck audio", "err", err)
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.Duck.Restore(rctx); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
	}

	cmd := exec.CommandContext(ctx, s.Bin, Args(v, text)...)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("espeak-ng failed: %d", exitErr.ExitCode())
		}
		return fmt.Errorf("espeak-ng: %w", err)
	}
	return nil
}

// Args builds the espeak-ng argument list for v.
func Args(v Voice, text string) []string {
	var args []string
	if v.Name != "" {
		args = append(args, "-v", v.Name)
	}
	args = append(args,
		"-p", strconv.Itoa(scale(v.Pitch, basePitch, 0, 99)),
		"-s", strconv.Itoa(scale(v.Rate, baseRate, 80, 450)),
		"--", text,
	)
	return args
}

func scale(mult float64, base, lo, hi int) int {
	if mult <= 0 || math.IsNaN(mult) {
		mult = 1
	}
	n := int(math.Round(mult * float64(base)))
	return min(max(n, lo), hi)
}
