package launch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failures() (*Launcher, chan string) {
	ch := make(chan string, 4)
	return New(func(kind string) { ch <- kind }), ch
}

func expectNone(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case kind := <-ch:
		t.Fatalf("unexpected failure %q", kind)
	case <-time.After(200 * time.Millisecond):
	}
}

func expect(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case kind := <-ch:
		assert.Equal(t, want, kind)
	case <-time.After(2 * time.Second):
		t.Fatalf("no %q failure reported", want)
	}
}

func TestRunCommand(t *testing.T) {
	l, ch := failures()

	require.NoError(t, l.RunCommand("exit 0"))
	expectNone(t, ch)

	require.NoError(t, l.RunCommand("exit 3"))
	expect(t, ch, FailRunCommand)

	assert.Error(t, l.RunCommand("   "))
}

func TestOpenUsesOpener(t *testing.T) {
	l, ch := failures()
	l.Opener = "true"

	require.NoError(t, l.OpenURL("https://example.com"))
	require.NoError(t, l.OpenPath("/tmp/report.pdf"))
	expectNone(t, ch)

	l.Opener = "voxbar-no-such-opener"
	assert.Error(t, l.OpenURL("https://example.com"))
}

func TestOpenPathFailureIsOnlyLogged(t *testing.T) {
	l, ch := failures()
	l.Opener = "false"

	require.NoError(t, l.OpenPath("/tmp/report.pdf"))
	expectNone(t, ch)
}

func TestDesktopEntryUsesAppRunner(t *testing.T) {
	l, ch := failures()
	l.AppRunner = "true"
	l.Opener = "voxbar-no-such-opener"

	require.NoError(t, l.OpenPath("/usr/share/applications/org.gnome.TextEditor.desktop"))
	expectNone(t, ch)
}

func TestDesktopEntryFailureIsReported(t *testing.T) {
	l, ch := failures()
	l.AppRunner = "false"

	require.NoError(t, l.OpenPath("/usr/share/applications/voxbar-missing.desktop"))
	expect(t, ch, FailOpenApplication)
}

func TestFallbackUnknownApp(t *testing.T) {
	l, ch := failures()
	l.Fallback(`"voxbar definitely not installed"`)
	expect(t, ch, FailOpenApplication)
}

func TestFallbackKnownProgram(t *testing.T) {
	l, ch := failures()
	l.Fallback("true")
	expectNone(t, ch)
}
