// Package launch hands paths, links and shell commands to the desktop.
// Everything is fire-and-forget: a failure that shows up after the process
// started is reported through OnFail.
package launch

import (
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Failure kinds passed to OnFail.
const (
	FailOpenApplication = "open-application"
	FailRunCommand      = "run-command"
)

type Launcher struct {
	Opener    string // opens files and links, default xdg-open
	AppRunner string // starts .desktop entries by id, default gtk-launch
	Shell     string // runs user commands, default sh
	OnFail    func(kind string)
}

func New(onFail func(kind string)) *Launcher {
	return &Launcher{OnFail: onFail}
}

// OpenPath opens a file. Desktop entries are started by id, and one that
// exits non-zero is reported as FailOpenApplication.
func (l *Launcher) OpenPath(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	if filepath.Ext(path) == ".desktop" {
		id := strings.TrimSuffix(filepath.Base(path), ".desktop")
		return l.start(exec.Command(or(l.AppRunner, "gtk-launch"), id), FailOpenApplication)
	}
	return l.start(exec.Command(or(l.Opener, "xdg-open"), path), "")
}

func (l *Launcher) OpenURL(url string) error {
	if url == "" {
		return errors.New("empty url")
	}
	return l.start(exec.Command(or(l.Opener, "xdg-open"), url), "")
}

// Fallback tries to start name as a program on PATH when the index had no
// match for it.
func (l *Launcher) Fallback(name string) {
	name = strings.Trim(strings.TrimSpace(name), `"`)
	bin, err := exec.LookPath(name)
	if err != nil {
		bin, err = exec.LookPath(strings.ReplaceAll(strings.ToLower(name), " ", "-"))
	}
	if err != nil {
		log.Warn("Fallback failed to open app", "app", name, "err", err)
		l.fail(FailOpenApplication)
		return
	}
	if err := l.start(exec.Command(bin), FailOpenApplication); err != nil {
		l.fail(FailOpenApplication)
	}
}

// RunCommand runs command through the shell without waiting for it.
func (l *Launcher) RunCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return errors.New("empty command")
	}
	return l.start(exec.Command(or(l.Shell, "sh"), "-c", command), FailRunCommand)
}

// start launches cmd and reaps it in the background. A non-zero exit is
// reported as failKind when one is given.
func (l *Launcher) start(cmd *exec.Cmd, failKind string) error {
	if err := cmd.Start(); err != nil {
		log.Error("Failed to start", "cmd", cmd.Path, "err", err)
		return fmt.Errorf("start %s: %w", filepath.Base(cmd.Path), err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Error("Command failed", "cmd", strings.Join(cmd.Args, " "), "err", err)
			if failKind != "" {
				l.fail(failKind)
			}
		}
	}()
	return nil
}

func (l *Launcher) fail(kind string) {
	if l.OnFail != nil {
		l.OnFail(kind)
	}
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
