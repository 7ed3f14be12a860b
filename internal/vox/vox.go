// Package vox is the assistant session: it takes one query at a time,
// classifies it, runs the matching handler and narrates the result on the
// attached surface.
package vox

import (
	"context"
	"errors"
	log "log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"voxbar/internal/action"
	"voxbar/internal/apps"
	"voxbar/internal/choice"
	"voxbar/internal/config"
	"voxbar/internal/nlu"
	"voxbar/internal/notify"
	"voxbar/internal/reminder"
	"voxbar/internal/webapi"
)

var ErrBusy = errors.New("assistant is busy")

type State string

const (
	StateIdle     State = "idle"
	StateThinking State = "thinking"
	StateSpeaking State = "speaking"
	StateError    State = "error"
)

type Tone string

const (
	ToneNormal Tone = "normal"
	ToneError  Tone = "error"
)

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type ReminderView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	When string `json:"when"`
	Time string `json:"time"`
}

// Form asks the surface to show the reminder editor. ID is set when an
// existing reminder is being edited.
type Form struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
	Time string `json:"time"`
}

type Response struct {
	Text      string         `json:"text"`
	Tone      Tone           `json:"tone"`
	WebLink   *Link          `json:"webLink,omitempty"`
	Choices   *choice.Set    `json:"choices,omitempty"`
	Reminders []ReminderView `json:"reminders,omitempty"`
	Form      *Form          `json:"form,omitempty"`
}

// Surface is whatever shows the assistant to the user.
type Surface interface {
	Show(r Response)
	SetState(s State)
	Clear()
	Idle(greeting string)
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Player interface {
	Play(ctx context.Context, path string) error
	Cue(ctx context.Context, c notify.Cue)
}

type Launcher interface {
	action.Launcher
	Fallback(name string)
}

type AppFinder interface {
	Find(q string) []apps.App
}

type Web interface {
	Geocode(ctx context.Context, name string, count int) ([]webapi.Place, error)
	CurrentTime(ctx context.Context, zone string) (time.Time, error)
}

type Reminders interface {
	Create(text string, at time.Time) (reminder.Reminder, error)
	Update(id, text string, at time.Time) (reminder.Reminder, error)
	Remove(id string) error
	List() []reminder.Reminder
	Clear()
}

type Settings interface {
	Current() config.Settings
}

type Deps struct {
	Surface   Surface
	Speaker   Speaker
	Player    Player
	Launcher  Launcher
	Apps      AppFinder
	Web       Web
	Reminders Reminders
	Settings  Settings
}

type Options struct {
	Version      string
	Seed         uint64 // 0 picks a random seed
	ErrorSettle  time.Duration
	FinishSettle time.Duration
	ActionSettle time.Duration
	Now          func() time.Time
	Log          *log.Logger
}

const (
	DefaultErrorSettle  = 3800 * time.Millisecond
	DefaultFinishSettle = 1000 * time.Millisecond
)

type cycle struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
}

type Vox struct {
	Deps
	opts Options
	log  *log.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	choices choice.Pending

	mu          sync.Mutex
	busy        bool
	seq         uint64
	cur         *cycle
	pendingFail string
	lastQuery   string
	lastLink    *Link

	handlers map[nlu.Intent]handler
}

func New(d Deps, o Options) *Vox {
	if o.ErrorSettle == 0 {
		o.ErrorSettle = DefaultErrorSettle
	}
	if o.FinishSettle == 0 {
		o.FinishSettle = DefaultFinishSettle
	}
	if o.ActionSettle == 0 {
		o.ActionSettle = action.DefaultSettle
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	seed := o.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger := o.Log
	if logger == nil {
		logger = log.Default()
	}

	v := &Vox{
		Deps: d,
		opts: o,
		log:  logger,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	v.handlers = v.table()
	return v
}

func (v *Vox) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy
}

// Submit starts processing query and returns at once. While a query is in
// flight every other submission is rejected with ErrBusy. Choices left over
// from an earlier response are dropped.
func (v *Vox) Submit(query string) error {
	q := nlu.NewQuery(query)
	if q.Raw == "" {
		return nil
	}

	return v.start(func(c *cycle) {
		v.choices.Clear()
		v.Surface.SetState(StateThinking)
		if !v.Settings.Current().InstantResponse {
			v.Player.Cue(c.ctx, notify.Request)
		}
		v.process(c, q.Raw)
	})
}

// Select acts on option i of the choice set on screen.
func (v *Vox) Select(i int) error {
	if v.Busy() {
		return ErrBusy
	}
	opt, err := v.choices.Take(i)
	if err != nil {
		return err
	}

	if opt.Query != "" {
		return v.start(func(c *cycle) {
			v.Surface.SetState(StateThinking)
			v.process(c, opt.Query)
		})
	}
	return v.start(func(c *cycle) {
		if err := v.Launcher.OpenPath(opt.Path); err != nil {
			v.fail(c, Response{Text: textOpenFailed})
			return
		}
		v.reply(c, Response{Text: "Opening " + opt.Label + "..."})
	})
}

// Abandon drops whatever is on screen, cuts off speech and returns to idle.
func (v *Vox) Abandon() {
	v.mu.Lock()
	c := v.cur
	v.cur = nil
	v.busy = false
	v.seq++
	v.pendingFail = ""
	v.mu.Unlock()

	if c != nil {
		c.cancel()
	}
	v.choices.Clear()
	v.Surface.Clear()
	v.Surface.Idle(v.IdleGreeting())
	v.log.Debug("Abandoned")
}

// Focus plays the on cue when the query box gains focus and the off cue when
// it loses it. Gaining focus while a query is in flight does nothing.
func (v *Vox) Focus(active bool) {
	cue := notify.Off
	if active {
		if v.Busy() {
			return
		}
		cue = notify.On
	}
	go v.Player.Cue(context.Background(), cue)
}

// CommandFailed reports a launch or shell command that failed after it was
// handed off. If a query is in flight the apology waits until it is done.
func (v *Vox) CommandFailed(kind string) {
	v.mu.Lock()
	if v.busy {
		v.pendingFail = kind
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	err := v.start(func(c *cycle) {
		v.fail(c, Response{Text: commandFailedText(kind)})
	})
	if err != nil {
		v.mu.Lock()
		v.pendingFail = kind
		v.mu.Unlock()
	}
}

// OpenWebLink opens the "more results" link of the last response.
func (v *Vox) OpenWebLink() error {
	v.mu.Lock()
	link := v.lastLink
	v.mu.Unlock()

	if link == nil {
		return errors.New("no web link")
	}
	return v.Launcher.OpenURL(link.URL)
}

// IdleGreeting is the line shown while nothing is happening.
func (v *Vox) IdleGreeting() string {
	s := v.Settings.Current()
	switch s.IdleGreetingMode {
	case config.GreetingSpecific:
		if s.SpecificIdleGreeting != "" {
			return s.SpecificIdleGreeting
		}
		return idleGreetings[0]
	case config.GreetingCustom:
		if g := strings.TrimSpace(s.CustomIdleGreeting); g != "" {
			return g
		}
		return "Hello!"
	default:
		return v.pick(idleGreetings)
	}
}

// Reset removes every reminder and custom action.
func (v *Vox) Reset(clearActions func() error) error {
	v.Abandon()
	v.Reminders.Clear()
	if clearActions != nil {
		return clearActions()
	}
	return nil
}

func (v *Vox) start(fn func(c *cycle)) error {
	v.mu.Lock()
	if v.busy {
		v.mu.Unlock()
		return ErrBusy
	}
	v.busy = true
	v.seq++
	ctx, cancel := context.WithCancel(context.Background())
	c := &cycle{id: v.seq, ctx: ctx, cancel: cancel}
	v.cur = c
	v.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				v.log.Error("Handler panicked", "panic", r)
				v.end(c, true)
			}
		}()
		fn(c)
	}()
	return nil
}

func (v *Vox) process(c *cycle, query string) {
	res := nlu.Classify(query, v.context())

	v.mu.Lock()
	v.lastQuery = res.Query
	v.mu.Unlock()

	v.log.Info("Query classified", "intent", res.Intent, "query", res.Query)

	h, ok := v.handlers[res.Intent]
	if !ok {
		h = (*Vox).unknown
	}
	h(v, c, res)
}

func (v *Vox) context() nlu.Context {
	s := v.Settings.Current()
	return nlu.Context{WebSearch: s.WebSearchEnabled, Actions: s.CustomActions}
}

// say shows r and speaks it. It reports false once the cycle was abandoned.
func (v *Vox) say(c *cycle, r Response) bool {
	if c.ctx.Err() != nil {
		return false
	}
	if r.Tone == "" {
		r.Tone = ToneNormal
	}
	if r.Tone == ToneError {
		v.Player.Cue(c.ctx, notify.Error)
	}

	v.mu.Lock()
	if r.WebLink != nil {
		v.lastLink = r.WebLink
	}
	v.mu.Unlock()

	v.Surface.Show(r)
	v.Surface.SetState(StateSpeaking)
	if err := v.Speaker.Speak(c.ctx, r.Text); err != nil && c.ctx.Err() == nil {
		v.log.Warn("Speech failed", "err", err)
	}
	return c.ctx.Err() == nil
}

// reply says r and ends the cycle.
func (v *Vox) reply(c *cycle, r Response) {
	if v.say(c, r) {
		v.finish(c)
	}
}

// fail says r with the error cue, holds the error state for ErrorSettle and
// then goes idle.
func (v *Vox) fail(c *cycle, r Response) {
	r.Tone = ToneError
	if !v.say(c, r) {
		return
	}
	v.Surface.SetState(StateError)

	t := time.NewTimer(v.opts.ErrorSettle)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return
	case <-t.C:
	}
	v.end(c, true)
}

func (v *Vox) finish(c *cycle) {
	v.end(c, false)
}

// end releases the busy flag. The surface goes idle right away after an
// error, otherwise after FinishSettle if nothing new started.
func (v *Vox) end(c *cycle, immediate bool) {
	v.mu.Lock()
	if v.cur != c {
		v.mu.Unlock()
		return
	}
	v.cur = nil
	v.busy = false
	id := v.seq
	pending := v.pendingFail
	v.pendingFail = ""
	v.mu.Unlock()

	c.cancel()

	if immediate {
		v.Surface.Idle(v.IdleGreeting())
	} else {
		time.AfterFunc(v.opts.FinishSettle, func() {
			v.mu.Lock()
			stale := v.busy || v.seq != id
			v.mu.Unlock()
			if !stale {
				v.Surface.Idle(v.IdleGreeting())
			}
		})
	}

	if pending != "" {
		v.CommandFailed(pending)
	}
}

func (v *Vox) pick(pool []string) string {
	v.rngMu.Lock()
	defer v.rngMu.Unlock()
	return pool[v.rng.IntN(len(pool))]
}

func (v *Vox) webLink() *Link {
	v.mu.Lock()
	q := v.lastQuery
	v.mu.Unlock()

	engine := v.Settings.Current().SearchEngine
	return &Link{Label: webapi.LinkLabel(engine), URL: webapi.SearchURL(engine, q)}
}
