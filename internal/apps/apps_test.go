package apps

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDesktop(t *testing.T, dir, file, body string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestScanAndFind(t *testing.T) {
	sys := t.TempDir()
	user := t.TempDir()

	notepad := writeDesktop(t, sys, "notepad.desktop", "[Desktop Entry]\nType=Application\nName=Notepad\nExec=notepad\n")
	writeDesktop(t, sys, "sub/notes.desktop", "[Desktop Entry]\nName=Notes\n[Desktop Action new]\nName=New Note\n")
	writeDesktop(t, sys, "hidden.desktop", "[Desktop Entry]\nName=Secret Notes\nNoDisplay=true\n")
	writeDesktop(t, sys, "readme.txt", "Name=Not an app\n")
	writeDesktop(t, user, "notepad.desktop", "[Desktop Entry]\nName=Notepad\n")

	ix := NewIndex()
	n := ix.Scan([]string{sys, user, filepath.Join(sys, "missing")})
	assert.Equal(t, 2, n)

	got := ix.Find("NOTE")
	require.Len(t, got, 2)
	assert.Equal(t, App{Name: "Notepad", Path: notepad}, got[0])
	assert.Equal(t, "Notes", got[1].Name)

	assert.Len(t, ix.Find("notepad"), 1)
	assert.Empty(t, ix.Find("photoshop"))
}

func TestDesktopName(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		body string
		want string
		ok   bool
	}{
		{"# comment\n[Desktop Entry]\nName=Firefox\nName[de]=Firefox Browser\nCategories=Network;WebBrowser;\nExec=firefox %u\n", "Firefox", true},
		{"[Desktop Entry]\nName=Text Editor: Plain ; Fast\n", "Text Editor: Plain ; Fast", true},
		{"[Desktop Entry]\nName=Ghost\nHidden=true\n", "", false},
		{"[Desktop Entry]\nName=Quiet\nNoDisplay=false\n", "Quiet", true},
		{"[Desktop Action new]\nName=New Window\n", "", false},
		{"[Desktop Entry]\nType=Application\n", "", false},
	}
	for i, c := range cases {
		path := writeDesktop(t, dir, fmt.Sprintf("%d.desktop", i), c.body)
		got, ok := desktopName(path)
		assert.Equal(t, c.ok, ok, c.body)
		assert.Equal(t, c.want, got, c.body)
	}

	_, ok := desktopName(filepath.Join(dir, "missing.desktop"))
	assert.False(t, ok)
}

func TestAddKeepsFirst(t *testing.T) {
	ix := NewIndex()
	ix.Add("Terminal", "/a")
	ix.Add("Terminal", "/b")
	assert.Equal(t, []App{{Name: "Terminal", Path: "/a"}}, ix.Find("term"))
}
