// Package choice implements the single-round "which one did you mean?" flow.
package choice

import (
	"errors"
	"fmt"
	"sync"
)

// MaxOptions is how many candidates are ever offered. Extra ones are dropped.
const MaxOptions = 5

type Outcome int

const (
	None Outcome = iota
	Single
	Multiple
)

func (o Outcome) String() string {
	switch o {
	case None:
		return "none"
	case Single:
		return "single"
	case Multiple:
		return "multiple"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Resolve classifies candidates and returns the ones that may be shown.
func Resolve[T any](candidates []T) (Outcome, []T) {
	switch n := len(candidates); {
	case n == 0:
		return None, nil
	case n == 1:
		return Single, candidates
	case n > MaxOptions:
		return Multiple, candidates[:MaxOptions]
	default:
		return Multiple, candidates
	}
}

// Option is one selectable candidate. Selecting it either re-issues Query
// through the dispatcher or opens Path directly.
type Option struct {
	Label string `json:"label"`
	Query string `json:"query,omitempty"`
	Path  string `json:"-"`
}

type Set struct {
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

var (
	ErrNoChoice   = errors.New("no choice pending")
	ErrOutOfRange = errors.New("choice out of range")
)

// Pending holds the set currently on screen. A selection consumes it.
type Pending struct {
	mu  sync.Mutex
	set *Set
}

func (p *Pending) Put(s Set) {
	_, opts := Resolve(s.Options)
	s.Options = opts

	p.mu.Lock()
	p.set = &s
	p.mu.Unlock()
}

func (p *Pending) Current() (Set, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set == nil {
		return Set{}, false
	}
	return *p.set, true
}

// Take returns option i of the pending set and forgets the set.
func (p *Pending) Take(i int) (Option, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.set == nil {
		return Option{}, ErrNoChoice
	}
	if i < 0 || i >= len(p.set.Options) {
		return Option{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(p.set.Options))
	}
	opt := p.set.Options[i]
	p.set = nil
	return opt, nil
}

func (p *Pending) Clear() {
	p.mu.Lock()
	p.set = nil
	p.mu.Unlock()
}
