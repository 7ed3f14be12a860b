// Package bus is the websocket hub the desktop surface connects to. It pushes
// assistant output to every client and feeds client commands back into the
// session.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"voxbar/internal/action"
	"voxbar/internal/vox"
)

// Event kinds sent to clients.
const (
	KindResponse = "response"
	KindState    = "state"
	KindClear    = "clear"
	KindIdle     = "idle"
	KindError    = "error"
	KindReminder = "reminder"
	KindActions  = "actions"
)

// Command kinds accepted from clients.
const (
	CmdQuery          = "query"
	CmdSelect         = "select"
	CmdAbandon        = "abandon"
	CmdReminderSave   = "reminder_save"
	CmdReminderEdit   = "reminder_edit"
	CmdReminderRemove = "reminder_remove"
	CmdWebLink        = "web_link"
	CmdFocus          = "focus"
	CmdActionList     = "action_list"
	CmdActionSave     = "action_save"
	CmdActionRemove   = "action_remove"
)

type Event struct {
	Kind     string                `json:"kind"`
	Response *vox.Response         `json:"response,omitempty"`
	State    vox.State             `json:"state,omitempty"`
	Greeting string                `json:"greeting,omitempty"`
	Error    string                `json:"error,omitempty"`
	Reminder string                `json:"reminder,omitempty"`
	Actions  []action.CustomAction `json:"actions,omitempty"`
}

// Command is one client request. For action_save, Slot picks the action to
// replace; without it the action is appended.
type Command struct {
	Kind    string        `json:"kind"`
	Text    string        `json:"text,omitempty"`
	Index   int           `json:"index,omitempty"`
	ID      string        `json:"id,omitempty"`
	Time    string        `json:"time,omitempty"`
	Active  bool          `json:"active,omitempty"`
	Slot    *int          `json:"slot,omitempty"`
	Trigger string        `json:"trigger,omitempty"`
	Steps   []action.Step `json:"steps,omitempty"`
}

// Controller is the session the hub drives.
type Controller interface {
	Submit(query string) error
	Select(i int) error
	Abandon()
	SaveReminder(id, text, timeValue string) error
	EditReminder(id string) error
	RemoveReminder(id string) error
	OpenWebLink() error
	Focus(active bool)
}

// ActionEditor stores custom actions. Add and Set reject actions that break
// the authoring rules.
type ActionEditor interface {
	Actions() []action.CustomAction
	AddAction(a action.CustomAction) error
	SetAction(i int, a action.CustomAction) error
	RemoveAction(i int) error
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

type client struct {
	conn *ws.Conn
	send chan []byte
}

// Hub implements vox.Surface by broadcasting every call as an Event. A client
// that connects late gets the last state and response replayed.
type Hub struct {
	upgrader ws.Upgrader
	log      *log.Logger

	mu      sync.Mutex
	ctrl    Controller
	editor  ActionEditor
	clients map[*client]struct{}
	state   *Event
	last    *Event
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     localOrigin,
		},
		log:     logger,
		clients: make(map[*client]struct{}),
	}
}

// localOrigin admits native clients, which send no Origin, and pages served
// from a loopback host.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Attach sets the controller client commands are dispatched to.
func (h *Hub) Attach(c Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctrl = c
}

// AttachActions sets where action_* commands are stored.
func (h *Hub) AttachActions(e ActionEditor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.editor = e
}

func (h *Hub) Show(r vox.Response) {
	h.publish(Event{Kind: KindResponse, Response: &r})
}

func (h *Hub) SetState(s vox.State) {
	h.publish(Event{Kind: KindState, State: s})
}

func (h *Hub) Clear() {
	h.publish(Event{Kind: KindClear})
}

func (h *Hub) Idle(greeting string) {
	h.publish(Event{Kind: KindIdle, Greeting: greeting, State: vox.StateIdle})
}

// ReminderFired tells every client that a reminder came due. It is not
// replayed to clients that connect later.
func (h *Hub) ReminderFired(text string) {
	h.publish(Event{Kind: KindReminder, Reminder: text})
}

func (h *Hub) publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error("Failed to encode event", "kind", e.Kind, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.Kind {
	case KindResponse:
		h.last = &e
	case KindState:
		h.state = &e
	case KindClear, KindIdle:
		h.last = nil
		h.state = &Event{Kind: KindState, State: vox.StateIdle}
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("Dropping slow client", "remote", c.conn.RemoteAddr())
			h.dropLocked(c)
		}
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	for _, e := range []*Event{h.state, h.last} {
		if e == nil {
			continue
		}
		if data, err := json.Marshal(e); err == nil {
			c.send <- data
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Info("Surface connected", "remote", conn.RemoteAddr())
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
		c.conn.Close()
		h.log.Info("Surface disconnected", "remote", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(64 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !isClosed(err) {
				h.log.Warn("Failed to read", "err", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			h.log.Warn("Failed to parse command", "msg", string(msg), "err", err)
			h.reply(c, Event{Kind: KindError, Error: "malformed command"})
			continue
		}
		e, err := h.dispatch(cmd)
		if err != nil {
			h.log.Debug("Command rejected", "kind", cmd.Kind, "err", err)
			h.reply(c, Event{Kind: KindError, Error: err.Error()})
			continue
		}
		if e != nil {
			h.reply(c, *e)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(ws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) reply(c *client, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

var (
	ErrNoController = errors.New("no session attached")
	ErrNoEditor     = errors.New("custom actions cannot be edited")
)

// dispatch runs cmd. The returned event, if any, goes back to the sender
// only.
func (h *Hub) dispatch(cmd Command) (*Event, error) {
	h.mu.Lock()
	ctrl, editor := h.ctrl, h.editor
	h.mu.Unlock()

	switch cmd.Kind {
	case CmdActionList, CmdActionSave, CmdActionRemove:
		if editor == nil {
			return nil, ErrNoEditor
		}
		return editActions(editor, cmd)
	}

	if ctrl == nil {
		return nil, ErrNoController
	}

	var err error
	switch cmd.Kind {
	case CmdQuery:
		err = ctrl.Submit(cmd.Text)
	case CmdSelect:
		err = ctrl.Select(cmd.Index)
	case CmdAbandon:
		ctrl.Abandon()
	case CmdFocus:
		ctrl.Focus(cmd.Active)
	case CmdReminderSave:
		err = ctrl.SaveReminder(cmd.ID, cmd.Text, cmd.Time)
	case CmdReminderEdit:
		err = ctrl.EditReminder(cmd.ID)
	case CmdReminderRemove:
		err = ctrl.RemoveReminder(cmd.ID)
	case CmdWebLink:
		err = ctrl.OpenWebLink()
	default:
		err = errors.New("unknown command: " + cmd.Kind)
	}
	return nil, err
}

// editActions applies an action_* command and answers with the stored list.
func editActions(e ActionEditor, cmd Command) (*Event, error) {
	a := action.CustomAction{Trigger: cmd.Trigger, Steps: cmd.Steps}

	var err error
	switch {
	case cmd.Kind == CmdActionSave && cmd.Slot != nil:
		err = e.SetAction(*cmd.Slot, a)
	case cmd.Kind == CmdActionSave:
		err = e.AddAction(a)
	case cmd.Kind == CmdActionRemove:
		err = e.RemoveAction(cmd.Index)
	}
	if err != nil {
		return nil, err
	}
	return &Event{Kind: KindActions, Actions: e.Actions()}, nil
}

// Serve listens on addr and serves the hub at /ws until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.serve(ctx, ln)
}

func (h *Hub) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.log.Info("Hub listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
