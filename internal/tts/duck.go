package tts

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

// Stream is one PulseAudio sink input.
type Stream struct {
	ID      int
	Volume  int
	AppName string
}

// Ducker lowers the volume of every other application while the assistant
// talks and restores it afterwards. Streams named in Self are left alone.
type Ducker struct {
	Self     []string
	Factor   float64 // target = current * Factor
	Floor    int     // never duck below this percentage
	Fade     time.Duration
	pactl    string
	mu       sync.Mutex
	original map[int]int
}

func NewDucker(self ...string) *Ducker {
	return &Ducker{
		Self:   self,
		Factor: 0.3,
		Floor:  5,
		Fade:   150 * time.Millisecond,
		pactl:  "pactl",
	}
}

// Duck fades other streams down. Calling it again before Restore is a no-op.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.original != nil {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var targets []fade
	for _, s := range streams {
		if slices.Contains(d.Self, s.AppName) {
			continue
		}
		d.original[s.ID] = s.Volume
		targets = append(targets, fade{id: s.ID, from: s.Volume, to: d.target(s.Volume)})
	}
	return d.fade(ctx, targets)
}

// Restore fades ducked streams back to where they were. Streams that
// appeared after Duck are not touched.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.original == nil {
		return nil
	}
	original := d.original
	d.original = nil

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	var targets []fade
	for _, s := range streams {
		if orig, ok := original[s.ID]; ok {
			targets = append(targets, fade{id: s.ID, from: s.Volume, to: orig})
		}
	}
	return d.fade(ctx, targets)
}

func (d *Ducker) target(from int) int {
	v := int(math.Round(float64(from) * d.Factor))
	return min(max(v, d.Floor), 150)
}

type fade struct {
	id, from, to int
}

func (d *Ducker) fade(ctx context.Context, targets []fade) error {
	if len(targets) == 0 {
		return nil
	}

	const step = 10 * time.Millisecond
	steps := max(int(d.Fade/step), 1)
	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.setVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}
		if i < steps {
			time.Sleep(d.Fade / time.Duration(steps))
		}
	}
	return nil
}

func (d *Ducker) list(ctx context.Context) ([]Stream, error) {
	out, err := exec.CommandContext(ctx, d.pactl, "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return ParseSinkInputs(string(out)), nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	percent = min(max(percent, 0), 150)
	return exec.CommandContext(ctx, d.pactl, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent)).Run()
}

// ParseSinkInputs reads the output of `pactl list sink-inputs`.
func ParseSinkInputs(text string) []Stream {
	parts := strings.Split(text, "Sink Input #")
	var out []Stream
	for _, block := range parts[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		s := Stream{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "Volume:") && s.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && s.AppName == "":
				if _, rest, ok := strings.Cut(line, `"`); ok {
					s.AppName, _, _ = strings.Cut(rest, `"`)
				}
			}
		}
		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
