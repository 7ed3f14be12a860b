package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	log "log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"voxbar/internal/action"
	"voxbar/internal/webapi"
)

// Idle greeting modes.
const (
	GreetingRandom   = "random"
	GreetingSpecific = "specific"
	GreetingCustom   = "custom"
)

type Settings struct {
	OpenAtLogin          bool                  `yaml:"openAtLogin" json:"openAtLogin"`
	PreferredVoice       string                `yaml:"preferredVoice" json:"preferredVoice"`
	SearchEngine         string                `yaml:"searchEngine" json:"searchEngine" validate:"search_engine"`
	InstantResponse      bool                  `yaml:"instantResponse" json:"instantResponse"`
	Pitch                float64               `yaml:"pitch" json:"pitch" validate:"gte=0,lte=2"`
	Rate                 float64               `yaml:"rate" json:"rate" validate:"gte=0.1,lte=10"`
	IdleGreetingMode     string                `yaml:"idleGreetingMode" json:"idleGreetingMode" validate:"oneof=random specific custom"`
	SpecificIdleGreeting string                `yaml:"specificIdleGreeting" json:"specificIdleGreeting"`
	CustomIdleGreeting   string                `yaml:"customIdleGreeting" json:"customIdleGreeting"`
	WebSearchEnabled     bool                  `yaml:"webSearchEnabled" json:"webSearchEnabled"`
	CustomActions        []action.CustomAction `yaml:"customActions" json:"customActions"`
}

func DefaultSettings() Settings {
	return Settings{
		SearchEngine:         webapi.DefaultEngine,
		InstantResponse:      true,
		Pitch:                1,
		Rate:                 1,
		IdleGreetingMode:     GreetingRandom,
		SpecificIdleGreeting: "What's on your mind?",
	}
}

func (s Settings) clone() Settings {
	out := s
	if s.CustomActions == nil {
		return out
	}
	out.CustomActions = make([]action.CustomAction, len(s.CustomActions))
	for i, a := range s.CustomActions {
		out.CustomActions[i] = action.CustomAction{Trigger: a.Trigger, Steps: slices.Clone(a.Steps)}
	}
	return out
}

var settingsValidate = validator.New()

func init() {
	if err := settingsValidate.RegisterValidation("search_engine", func(fl validator.FieldLevel) bool {
		return webapi.KnownEngine(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register search_engine validator: %v", err))
	}
}

// sanitize replaces invalid fields with defaults and drops custom actions that
// break the authoring rules.
func sanitize(in Settings) Settings {
	def := DefaultSettings()
	out := in.clone()

	check := func(field string, v any) bool {
		if err := settingsValidate.StructPartial(in, field); err != nil {
			log.Warn("Invalid setting, using default", "field", field, "value", v)
			return false
		}
		return true
	}
	if !check("SearchEngine", in.SearchEngine) {
		out.SearchEngine = def.SearchEngine
	}
	if !check("Pitch", in.Pitch) {
		out.Pitch = def.Pitch
	}
	if !check("Rate", in.Rate) {
		out.Rate = def.Rate
	}
	if !check("IdleGreetingMode", in.IdleGreetingMode) {
		out.IdleGreetingMode = def.IdleGreetingMode
	}

	out.CustomActions = nil
	for _, a := range in.CustomActions {
		a = a.Normalize()
		if err := a.Validate(); err != nil {
			log.Warn("Skipping invalid custom action", "trigger", a.Trigger, "err", err)
			continue
		}
		out.CustomActions = append(out.CustomActions, a)
	}
	return out
}

// SettingsStore owns settings.yaml. Reads return copies; writes go straight
// to disk.
type SettingsStore struct {
	path string

	mu   sync.Mutex
	cur  Settings
	last []byte
	subs []func(Settings)
}

// OpenSettings loads path, writing defaults when the file does not exist. An
// unreadable file leaves the defaults in memory.
func OpenSettings(path string) (*SettingsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}

	s := &SettingsStore{path: path, cur: DefaultSettings()}
	err := s.Reload()
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		s.mu.Lock()
		err = s.saveLocked()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		log.Info("Wrote default settings", "path", path)
	default:
		log.Error("Failed to read settings, using defaults", "path", path, "err", err)
	}
	return s, nil
}

func (s *SettingsStore) Path() string { return s.path }

func (s *SettingsStore) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// OnChange registers fn to run with the new settings after every change.
func (s *SettingsStore) OnChange(fn func(Settings)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Reload re-reads the file. Content identical to what was last read or
// written is ignored.
func (s *SettingsStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if bytes.Equal(data, s.last) {
		s.mu.Unlock()
		return nil
	}

	raw := DefaultSettings()
	if err := yaml.Unmarshal(data, &raw); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("parse %s: %w", filepath.Base(s.path), err)
	}
	s.cur = sanitize(raw)
	s.last = data
	next, subs := s.cur.clone(), slices.Clone(s.subs)
	s.mu.Unlock()

	log.Debug("Settings loaded", "path", s.path, "actions", len(next.CustomActions))
	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// Update applies fn to a copy of the settings, cleans the result and saves
// it.
func (s *SettingsStore) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	next := s.cur.clone()
	fn(&next)
	s.cur = sanitize(next)
	err := s.saveLocked()
	out, subs := s.cur.clone(), slices.Clone(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(out)
	}
	return out, err
}

// Actions returns a copy of the stored custom actions.
func (s *SettingsStore) Actions() []action.CustomAction {
	return s.Current().CustomActions
}

// AddAction appends a custom action. Invalid actions are rejected and never
// written.
func (s *SettingsStore) AddAction(a action.CustomAction) error {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.Update(func(st *Settings) { st.CustomActions = append(st.CustomActions, a) })
	return err
}

// SetAction replaces the custom action at index i.
func (s *SettingsStore) SetAction(i int, a action.CustomAction) error {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}
	if n := len(s.Current().CustomActions); i < 0 || i >= n {
		return fmt.Errorf("custom action %d out of range (%d)", i, n)
	}
	_, err := s.Update(func(st *Settings) { st.CustomActions[i] = a })
	return err
}

func (s *SettingsStore) RemoveAction(i int) error {
	if n := len(s.Current().CustomActions); i < 0 || i >= n {
		return fmt.Errorf("custom action %d out of range (%d)", i, n)
	}
	_, err := s.Update(func(st *Settings) {
		st.CustomActions = slices.Delete(st.CustomActions, i, i+1)
	})
	return err
}

// ClearActions deletes every custom action.
func (s *SettingsStore) ClearActions() error {
	_, err := s.Update(func(st *Settings) { st.CustomActions = nil })
	return err
}

func (s *SettingsStore) saveLocked() error {
	data, err := yaml.Marshal(s.cur)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	s.last = data
	return nil
}
