package tts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "espeak-ng"
Sink Input #x
	Volume: mono: 100%
`

func TestParseSinkInputs(t *testing.T) {
	assert.Equal(t, []Stream{
		{ID: 41, Volume: 80, AppName: "Firefox"},
		{ID: 57, Volume: 100, AppName: "espeak-ng"},
	}, ParseSinkInputs(sinkInputs))

	assert.Empty(t, ParseSinkInputs(""))
}

// fakePactl writes a pactl stand-in that prints sinkInputs and logs volume
// changes to a file.
func fakePactl(t *testing.T) (bin, calls string) {
	t.Helper()
	dir := t.TempDir()
	calls = filepath.Join(dir, "calls")
	listing := filepath.Join(dir, "listing")
	require.NoError(t, os.WriteFile(listing, []byte(sinkInputs), 0o600))

	script := "#!/bin/sh\n" +
		"if [ \"$1\" = list ]; then cat " + listing + "; exit 0; fi\n" +
		"echo \"$@\" >> " + calls + "\n"
	bin = filepath.Join(dir, "pactl")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, calls
}

func TestDuckAndRestore(t *testing.T) {
	bin, calls := fakePactl(t)
	d := NewDucker("espeak-ng")
	d.pactl = bin
	d.Fade = 0

	require.NoError(t, d.Duck(context.Background()))
	require.NoError(t, d.Duck(context.Background()))
	require.NoError(t, d.Restore(context.Background()))
	require.NoError(t, d.Restore(context.Background()))

	out, err := os.ReadFile(calls)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"set-sink-input-volume 41 24%",
		"set-sink-input-volume 41 80%",
	}, strings.Split(strings.TrimSpace(string(out)), "\n"))
}

func TestDuckTargetFloor(t *testing.T) {
	d := NewDucker()
	assert.Equal(t, 30, d.target(100))
	assert.Equal(t, 5, d.target(10))
	assert.Equal(t, 150, (&Ducker{Factor: 3}).target(100))
}
