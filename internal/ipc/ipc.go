// Package ipc is the local control socket used by voxbar-ctl. Each
// connection carries one JSON ControlMessage and gets one JSON Reply back.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"voxbar/internal/action"
)

// Control commands.
const (
	CmdQuery     = "query"
	CmdSelect    = "select"
	CmdAbandon   = "abandon"
	CmdReminders = "reminders"
	CmdStatus    = "status"
	CmdReset     = "reset"

	CmdActions      = "actions"
	CmdActionAdd    = "action_add"
	CmdActionRemove = "action_remove"
)

func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "voxbar.sock")
}

type ControlMessage struct {
	Cmd    string               `json:"cmd"`
	Text   string               `json:"text,omitempty"`
	Index  int                  `json:"index,omitempty"`
	Action *action.CustomAction `json:"action,omitempty"`
}

type Reply struct {
	OK    bool     `json:"ok"`
	Error string   `json:"error,omitempty"`
	Lines []string `json:"lines,omitempty"`
}

// Fail builds an error reply.
func Fail(err error) Reply {
	return Reply{Error: err.Error()}
}

type Handler func(ControlMessage) Reply

const ioTimeout = 5 * time.Second

// Serve listens on the unix socket at path until ctx is done. A stale socket
// file left by a previous run is removed first.
func Serve(ctx context.Context, path string, handler Handler) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("Control socket listening", "path", path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer os.Remove(path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		go handleConn(conn, handler)
	}
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(Reply{Error: "malformed message"})
		return
	}

	log.Debug("Control message", "cmd", msg.Cmd)
	if err := json.NewEncoder(conn).Encode(handler(msg)); err != nil {
		log.Warn("Failed to write reply", "err", err)
	}
}

// Send delivers msg to the daemon at path and waits for its reply.
func Send(path string, msg ControlMessage) (Reply, error) {
	conn, err := net.DialTimeout("unix", path, ioTimeout)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, err
	}

	var r Reply
	if err := json.NewDecoder(conn).Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return r, nil
}
