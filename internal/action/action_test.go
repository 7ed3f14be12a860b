package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   CustomAction
		want error
	}{
		{
			name: "speak first is fine",
			in: CustomAction{Trigger: "good morning", Steps: []Step{
				{Kind: Speak, Value: "Morning!"},
				{Kind: OpenURL, Value: "https://news.example.com"},
			}},
		},
		{
			name: "speak in second position",
			in: CustomAction{Trigger: "work mode", Steps: []Step{
				{Kind: OpenApp, Value: "/usr/bin/code"},
				{Kind: Speak, Value: "Let's go"},
			}},
			want: ErrSpeakNotFirst,
		},
		{
			name: "two speak steps",
			in: CustomAction{Trigger: "hi", Steps: []Step{
				{Kind: Speak, Value: "one"},
				{Kind: Speak, Value: "two"},
			}},
			want: ErrSpeakNotFirst,
		},
		{
			name: "blank trigger",
			in:   CustomAction{Trigger: "  ", Steps: []Step{{Kind: OpenURL, Value: "https://x"}}},
			want: ErrNoTrigger,
		},
		{
			name: "no steps",
			in:   CustomAction{Trigger: "nothing"},
			want: ErrNoSteps,
		},
		{
			name: "blank value",
			in:   CustomAction{Trigger: "x", Steps: []Step{{Kind: RunCommand, Value: " "}}},
			want: ErrEmptyValue,
		},
		{
			name: "unknown kind",
			in:   CustomAction{Trigger: "x", Steps: []Step{{Kind: "reboot", Value: "now"}}},
			want: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMatch(t *testing.T) {
	actions := []CustomAction{
		{Trigger: "", Steps: []Step{{Kind: OpenURL, Value: "https://ignored"}}},
		{Trigger: "Joke", Steps: []Step{{Kind: Speak, Value: "custom joke"}}},
		{Trigger: "tell me", Steps: []Step{{Kind: Speak, Value: "second"}}},
	}

	got, ok := Match(actions, "tell me a joke")
	require.True(t, ok)
	assert.Equal(t, "Joke", got.Trigger)

	got, ok = Match(actions, "TELL ME something")
	require.True(t, ok)
	assert.Equal(t, "tell me", got.Trigger)

	_, ok = Match(actions, "open notepad")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	a := CustomAction{Trigger: "  focus ", Steps: []Step{{Kind: OpenURL, Value: " https://x "}}}.Normalize()
	assert.Equal(t, "focus", a.Trigger)
	assert.Equal(t, "https://x", a.Steps[0].Value)
}

func TestSummary(t *testing.T) {
	a := CustomAction{Trigger: "start work", Steps: []Step{
		{Kind: Speak, Value: "On it"},
		{Kind: OpenURL, Value: "https://example.com"},
		{Kind: RunCommand, Value: "make dev"},
	}}
	assert.Equal(t, `start work: Speak Text "On it", Open URL "https://example.com", Run Command "make dev"`, a.Summary())
	assert.Equal(t, "beep", Kind("beep").Label())
}

type recorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (r *recorder) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.fail[call]
}

func (r *recorder) OpenPath(p string) error   { return r.record("path:" + p) }
func (r *recorder) OpenURL(u string) error    { return r.record("url:" + u) }
func (r *recorder) RunCommand(c string) error { return r.record("cmd:" + c) }

func (r *recorder) Play(_ context.Context, p string) error { return r.record("sound:" + p) }

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newRunner(rec *recorder) *Runner {
	return &Runner{
		Say:      func(_ context.Context, text string) { rec.record("say:" + text) },
		Launcher: rec,
		Player:   rec,
		Settle:   time.Millisecond,
	}
}

func TestRunInOrder(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		{Kind: Speak, Value: "Starting"},
		{Kind: OpenApp, Value: "/usr/bin/code"},
		{Kind: OpenURL, Value: "https://example.com"},
		{Kind: PlaySound, Value: "/tmp/ding.mp3"},
		{Kind: RunCommand, Value: "echo hi"},
	}

	require.NoError(t, newRunner(rec).Run(context.Background(), steps))
	assert.Equal(t, []string{
		"say:Starting",
		"path:/usr/bin/code",
		"url:https://example.com",
		"sound:/tmp/ding.mp3",
		"cmd:echo hi",
	}, rec.got())
}

func TestRunAbortsOnFailure(t *testing.T) {
	boom := errors.New("cannot decode")
	rec := &recorder{fail: map[string]error{"sound:/tmp/broken.wav": boom}}
	steps := []Step{
		{Kind: OpenURL, Value: "https://a"},
		{Kind: PlaySound, Value: "/tmp/broken.wav"},
		{Kind: OpenURL, Value: "https://b"},
	}

	err := newRunner(rec).Run(context.Background(), steps)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, PlaySound, se.Kind)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"url:https://a", "sound:/tmp/broken.wav"}, rec.got())
}

func TestRunWithoutLauncher(t *testing.T) {
	r := &Runner{Settle: time.Millisecond}
	err := r.Run(context.Background(), []Step{{Kind: OpenApp, Value: "/bin/true"}})

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpenApp, se.Kind)
}

func TestRunCancelledDuringSettle(t *testing.T) {
	rec := &recorder{}
	r := newRunner(rec)
	r.Settle = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := r.Run(ctx, []Step{
		{Kind: OpenURL, Value: "https://a"},
		{Kind: OpenURL, Value: "https://b"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"url:https://a"}, rec.got())
}
