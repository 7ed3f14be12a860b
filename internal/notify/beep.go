// Package notify plays sound cues and sound files and raises desktop
// notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// Cue names a bundled sound in the assets directory.
type Cue string

const (
	Request  Cue = "request.wav"
	Error    Cue = "error.wav"
	Drumroll Cue = "drumroll.mp3"
	On       Cue = "on.wav"
	Off      Cue = "off.wav"
)

var ErrUnsupported = errors.New("unsupported sound format")

const sampleRate = beep.SampleRate(44100)

// Player plays one sound at a time through the default output device.
type Player struct {
	Assets string

	mu     sync.Mutex
	inited bool
}

func NewPlayer(assets string) *Player {
	return &Player{Assets: assets}
}

// Play decodes path and blocks until it has played. Open and decode failures
// are returned. A stream that breaks during playback just ends early.
// Cancelling ctx stops the sound.
func (p *Player) Play(ctx context.Context, path string) error {
	streamer, format, err := open(path)
	if err != nil {
		return err
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inited {
		if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("init speaker: %w", err)
		}
		p.inited = true
	}

	var s beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		s = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}

	if err := streamer.Err(); err != nil {
		log.Warn("Sound ended early", "path", path, "err", err)
	}
	return nil
}

// Cue plays a bundled sound. Failures are logged; a missing cue never blocks
// a response.
func (p *Player) Cue(ctx context.Context, c Cue) {
	path := filepath.Join(p.Assets, string(c))
	if err := p.Play(ctx, path); err != nil && ctx.Err() == nil {
		log.Warn("Failed to play cue", "cue", c, "err", err)
	}
}

func open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open sound: %w", err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".ogg", ".oga":
		s, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return s, format, nil
}
