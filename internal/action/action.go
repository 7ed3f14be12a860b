// Package action holds user-defined trigger macros: the authoring rules a
// macro must satisfy before it is stored, trigger lookup, and the runner that
// plays a step sequence.
package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	Speak      Kind = "speak"
	OpenApp    Kind = "open_app"
	OpenURL    Kind = "open_url"
	PlaySound  Kind = "play_sound"
	RunCommand Kind = "run_command"
)

// Label is the name shown for a step kind in the action editor.
func (k Kind) Label() string {
	switch k {
	case Speak:
		return "Speak Text"
	case OpenApp:
		return "Open App"
	case OpenURL:
		return "Open URL"
	case PlaySound:
		return "Play Sound"
	case RunCommand:
		return "Run Command"
	}
	return string(k)
}

type Step struct {
	Kind  Kind   `json:"kind" yaml:"kind" validate:"step_kind"`
	Value string `json:"value" yaml:"value" validate:"nonblank"`
}

type CustomAction struct {
	Trigger string `json:"trigger" yaml:"trigger" validate:"nonblank"`
	Steps   []Step `json:"steps" yaml:"steps" validate:"required,min=1,dive"`
}

var (
	ErrSpeakNotFirst = errors.New(`the "Speak Text" action can only be the first step`)
	ErrEmptyValue    = errors.New("all action steps must have a value")
	ErrNoTrigger     = errors.New("trigger is empty")
	ErrNoSteps       = errors.New("action has no steps")
	ErrUnknownKind   = errors.New("unknown step kind")
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("failed to register nonblank validator: %v", err))
	}
	if err := validate.RegisterValidation("step_kind", func(fl validator.FieldLevel) bool {
		switch Kind(fl.Field().String()) {
		case Speak, OpenApp, OpenURL, PlaySound, RunCommand:
			return true
		}
		return false
	}); err != nil {
		panic(fmt.Sprintf("failed to register step_kind validator: %v", err))
	}
}

// Validate reports the first authoring rule a is breaking. A Speak step is
// allowed only once and only in first position.
func (a CustomAction) Validate() error {
	for i, s := range a.Steps {
		if s.Kind == Speak && i > 0 {
			return ErrSpeakNotFirst
		}
	}

	err := validate.Struct(a)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch {
	case fe.StructField() == "Trigger":
		return ErrNoTrigger
	case fe.StructField() == "Steps":
		return ErrNoSteps
	case fe.Tag() == "step_kind":
		return fmt.Errorf("%w: %q", ErrUnknownKind, fe.Value())
	case fe.StructField() == "Value":
		return ErrEmptyValue
	}
	return err
}

// Normalize trims the trigger and every step value.
func (a CustomAction) Normalize() CustomAction {
	out := CustomAction{Trigger: strings.TrimSpace(a.Trigger), Steps: make([]Step, len(a.Steps))}
	for i, s := range a.Steps {
		out.Steps[i] = Step{Kind: s.Kind, Value: strings.TrimSpace(s.Value)}
	}
	return out
}

// Summary is a one-line description such as
// `start work: Speak Text "On it", Open URL "https://example.com"`.
func (a CustomAction) Summary() string {
	steps := make([]string, len(a.Steps))
	for i, s := range a.Steps {
		steps[i] = fmt.Sprintf("%s %q", s.Kind.Label(), s.Value)
	}
	return a.Trigger + ": " + strings.Join(steps, ", ")
}

// Match returns the first action, in definition order, whose trigger occurs
// anywhere in query. Comparison ignores case.
func Match(actions []CustomAction, query string) (CustomAction, bool) {
	q := strings.ToLower(query)
	for _, a := range actions {
		t := strings.ToLower(strings.TrimSpace(a.Trigger))
		if t == "" || len(a.Steps) == 0 {
			continue
		}
		if strings.Contains(q, t) {
			return a, true
		}
	}
	return CustomAction{}, false
}
