// Package reminder keeps the persisted list of pending reminders and fires a
// desktop notification when one comes due.
package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxbar/internal/storage"
)

// Collection is the storage collection reminders are saved under.
const Collection = "reminders"

var (
	ErrInPast    = errors.New("reminder time is not in the future")
	ErrNotFound  = errors.New("reminder not found")
	ErrEmptyText = errors.New("reminder text is empty")
)

type Reminder struct {
	ID     string
	Text   string
	FireAt time.Time
}

// record is the persisted shape: {id, text, time}.
type record struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

type Persister interface {
	Save(collection string, v any) error
	Load(collection string, v any) error
}

type Notifier interface {
	Notify(title, body string)
}

type entry struct {
	Reminder
	timer *time.Timer
	gen   uint64
}

// Store owns the reminders and their timers. Every mutation rewrites the
// whole collection before returning; persistence failures are logged and
// never reach the caller.
type Store struct {
	persist  Persister
	notifier Notifier
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
	onFire   func(Reminder)

	mu      sync.Mutex
	entries []*entry
	gen     uint64
	closed  bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithFireHook registers fn to run after a reminder fired and was removed.
func WithFireHook(fn func(Reminder)) Option {
	return func(s *Store) { s.onFire = fn }
}

func New(p Persister, n Notifier, opts ...Option) *Store {
	s := &Store{
		persist:  p,
		notifier: n,
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory set with the persisted one. Reminders whose
// time has passed are dropped and the trimmed set is written back. It
// returns the number of reminders scheduled.
func (s *Store) Load() int {
	var records []record
	if err := s.persist.Load(Collection, &records); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("Failed to load reminders", "err", err)
		}
		records = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopAllLocked()
	s.entries = nil

	now := s.now()
	dropped := 0
	for _, r := range records {
		if r.ID == "" || strings.TrimSpace(r.Text) == "" {
			dropped++
			continue
		}
		if !r.Time.After(now) {
			dropped++
			continue
		}
		e := &entry{Reminder: Reminder{ID: r.ID, Text: r.Text, FireAt: r.Time.UTC()}}
		s.scheduleLocked(e)
		s.entries = append(s.entries, e)
	}

	s.persistLocked()
	s.log.Info("Loaded reminders", "scheduled", len(s.entries), "dropped", dropped)
	return len(s.entries)
}

// Create schedules a new reminder. fireAt must be strictly after now.
func (s *Store) Create(text string, fireAt time.Time) (Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reminder{}, ErrEmptyText
	}
	if !fireAt.After(s.now()) {
		return Reminder{}, ErrInPast
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{Reminder: Reminder{ID: s.newID(), Text: text, FireAt: fireAt.UTC()}}
	s.scheduleLocked(e)
	s.entries = append(s.entries, e)
	s.persistLocked()

	s.log.Debug("Reminder created", "id", e.ID, "at", e.FireAt)
	return e.Reminder, nil
}

// Update replaces text and time of an existing reminder. A time that is not
// in the future removes the reminder and returns ErrInPast.
func (s *Store) Update(id, text string, fireAt time.Time) (Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reminder{}, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Reminder{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e := s.entries[i]
	s.stopLocked(e)

	if !fireAt.After(s.now()) {
		s.entries = slices.Delete(s.entries, i, i+1)
		s.persistLocked()
		return Reminder{}, ErrInPast
	}

	e.Text = text
	e.FireAt = fireAt.UTC()
	s.scheduleLocked(e)
	s.persistLocked()
	return e.Reminder, nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.stopLocked(s.entries[i])
	s.entries = slices.Delete(s.entries, i, i+1)
	s.persistLocked()
	return nil
}

// List returns the reminders ordered by fire time.
func (s *Store) List() []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Reminder)
	}
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Reminder) int {
		return a.FireAt.Compare(b.FireAt)
	})
	return out
}

// Clear cancels and deletes every reminder.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopAllLocked()
	s.entries = nil
	s.persistLocked()
}

// Close stops all timers without touching storage. The store fires nothing
// afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
	s.closed = true
}

func (s *Store) fire(id string, gen uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	i := s.indexLocked(id)
	if i < 0 || s.entries[i].gen != gen {
		// cancelled or rescheduled after the timer was already running
		s.mu.Unlock()
		return
	}
	r := s.entries[i].Reminder
	s.entries = slices.Delete(s.entries, i, i+1)
	s.persistLocked()
	s.mu.Unlock()

	s.log.Info("Reminder fired", "id", r.ID)
	if s.notifier != nil {
		s.notifier.Notify("⏰ Reminder", "It's time for: "+r.Text)
	}
	if s.onFire != nil {
		s.onFire(r)
	}
}

func (s *Store) scheduleLocked(e *entry) {
	s.gen++
	e.gen = s.gen
	id, gen := e.ID, e.gen
	e.timer = time.AfterFunc(e.FireAt.Sub(s.now()), func() { s.fire(id, gen) })
}

func (s *Store) stopLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (s *Store) stopAllLocked() {
	for _, e := range s.entries {
		s.stopLocked(e)
	}
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.entries, func(e *entry) bool { return e.ID == id })
}

func (s *Store) persistLocked() {
	records := make([]record, 0, len(s.entries))
	for _, e := range s.entries {
		records = append(records, record{ID: e.ID, Text: e.Text, Time: e.FireAt})
	}
	if err := s.persist.Save(Collection, records); err != nil {
		s.log.Error("Failed to save reminders", "err", err)
	}
}
