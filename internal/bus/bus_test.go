package bus

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxbar/internal/action"
	"voxbar/internal/config"
	"voxbar/internal/vox"
)

type controller struct {
	mu       sync.Mutex
	queries  []string
	selects  []int
	saved    []Command
	abandons int
	focus    []bool
	err      error
}

func (c *controller) Submit(q string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	return c.err
}

func (c *controller) Select(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selects = append(c.selects, i)
	return c.err
}

func (c *controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandons++
}

func (c *controller) SaveReminder(id, text, at string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, Command{Kind: CmdReminderSave, ID: id, Text: text, Time: at})
	return nil
}

func (c *controller) EditReminder(string) error   { return nil }
func (c *controller) RemoveReminder(string) error { return nil }
func (c *controller) OpenWebLink() error          { return nil }

func (c *controller) Focus(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focus = append(c.focus, active)
}

func (c *controller) snapshot() controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return controller{
		queries:  append([]string(nil), c.queries...),
		selects:  append([]int(nil), c.selects...),
		saved:    append([]Command(nil), c.saved...),
		abandons: c.abandons,
		focus:    append([]bool(nil), c.focus...),
	}
}

func dial(t *testing.T, srv *httptest.Server) *ws.Conn {
	t.Helper()
	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *ws.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestCommandsReachController(t *testing.T) {
	h := NewHub(nil)
	ctrl := &controller{}
	h.Attach(ctrl)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Command{Kind: CmdQuery, Text: "what time is it"}))
	require.NoError(t, conn.WriteJSON(Command{Kind: CmdSelect, Index: 2}))
	require.NoError(t, conn.WriteJSON(Command{Kind: CmdReminderSave, Text: "stretch", Time: "2026-10-20T09:00"}))
	require.NoError(t, conn.WriteJSON(Command{Kind: CmdFocus, Active: true}))
	require.NoError(t, conn.WriteJSON(Command{Kind: CmdAbandon}))

	require.Eventually(t, func() bool { return ctrl.snapshot().abandons == 1 }, 2*time.Second, 5*time.Millisecond)
	got := ctrl.snapshot()
	assert.Equal(t, []string{"what time is it"}, got.queries)
	assert.Equal(t, []int{2}, got.selects)
	assert.Equal(t, []bool{true}, got.focus)
	require.Len(t, got.saved, 1)
	assert.Equal(t, "stretch", got.saved[0].Text)
	assert.Equal(t, "2026-10-20T09:00", got.saved[0].Time)
}

func TestRejectedCommandRepliesWithError(t *testing.T) {
	h := NewHub(nil)
	h.Attach(&controller{err: vox.ErrBusy})
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Command{Kind: CmdQuery, Text: "hello"}))

	e := readEvent(t, conn)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, vox.ErrBusy.Error(), e.Error)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("{nope")))
	assert.Equal(t, "malformed command", readEvent(t, conn).Error)

	require.NoError(t, conn.WriteJSON(Command{Kind: "dance"}))
	assert.Contains(t, readEvent(t, conn).Error, "unknown command")
}

func TestBroadcastsSurfaceCalls(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, h, 2)

	h.SetState(vox.StateSpeaking)
	h.Show(vox.Response{Text: "The answer is 20.", Tone: vox.ToneNormal})

	for _, conn := range []*ws.Conn{a, b} {
		e := readEvent(t, conn)
		assert.Equal(t, KindState, e.Kind)
		assert.Equal(t, vox.StateSpeaking, e.State)

		e = readEvent(t, conn)
		assert.Equal(t, KindResponse, e.Kind)
		require.NotNil(t, e.Response)
		assert.Equal(t, "The answer is 20.", e.Response.Text)
	}
}

func TestLateClientGetsReplay(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	h.SetState(vox.StateSpeaking)
	h.Show(vox.Response{Text: "Opening Firefox..."})

	conn := dial(t, srv)
	assert.Equal(t, vox.StateSpeaking, readEvent(t, conn).State)
	assert.Equal(t, "Opening Firefox...", readEvent(t, conn).Response.Text)

	h.Idle("Ask me anything.")
	e := readEvent(t, conn)
	assert.Equal(t, KindIdle, e.Kind)
	assert.Equal(t, "Ask me anything.", e.Greeting)

	late := dial(t, srv)
	e = readEvent(t, late)
	assert.Equal(t, KindState, e.Kind)
	assert.Equal(t, vox.StateIdle, e.State)
}

func TestNoControllerAttached(t *testing.T) {
	h := NewHub(nil)
	_, err := h.dispatch(Command{Kind: CmdQuery, Text: "x"})
	assert.ErrorIs(t, err, ErrNoController)

	_, err = h.dispatch(Command{Kind: CmdActionList})
	assert.ErrorIs(t, err, ErrNoEditor)
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)
	conn.Close()
	waitClients(t, h, 0)

	h.Show(vox.Response{Text: "nobody listening"})
}

func TestCrossOriginUpgradeRefused(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	u := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := ws.DefaultDialer.Dial(u, http.Header{"Origin": {"http://evil.example"}})
	require.ErrorIs(t, err, ws.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, h.Clients())

	for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:8092", "http://[::1]"} {
		conn, _, err := ws.DefaultDialer.Dial(u, http.Header{"Origin": {origin}})
		require.NoError(t, err, origin)
		conn.Close()
	}
}

func TestActionAuthoring(t *testing.T) {
	settings, err := config.OpenSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	h := NewHub(nil)
	h.AttachActions(settings)
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{
		Kind:    CmdActionSave,
		Trigger: " start work ",
		Steps:   []action.Step{{Kind: action.Speak, Value: "On it"}, {Kind: action.OpenURL, Value: "https://example.com"}},
	}))
	e := readEvent(t, conn)
	assert.Equal(t, KindActions, e.Kind)
	require.Len(t, e.Actions, 1)
	assert.Equal(t, "start work", e.Actions[0].Trigger)

	require.NoError(t, conn.WriteJSON(Command{
		Kind:    CmdActionSave,
		Trigger: "bad",
		Steps:   []action.Step{{Kind: action.OpenURL, Value: "https://example.com"}, {Kind: action.Speak, Value: "late"}},
	}))
	e = readEvent(t, conn)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, action.ErrSpeakNotFirst.Error(), e.Error)

	slot := 0
	require.NoError(t, conn.WriteJSON(Command{
		Kind:    CmdActionSave,
		Slot:    &slot,
		Trigger: "lunch",
		Steps:   []action.Step{{Kind: action.OpenApp, Value: "firefox"}},
	}))
	e = readEvent(t, conn)
	require.Len(t, e.Actions, 1)
	assert.Equal(t, "lunch", e.Actions[0].Trigger)
	assert.Equal(t, "lunch", settings.Current().CustomActions[0].Trigger)

	require.NoError(t, conn.WriteJSON(Command{Kind: CmdActionRemove, Index: 3}))
	assert.Equal(t, KindError, readEvent(t, conn).Kind)

	require.NoError(t, conn.WriteJSON(Command{Kind: CmdActionRemove, Index: 0}))
	e = readEvent(t, conn)
	assert.Equal(t, KindActions, e.Kind)
	assert.Empty(t, e.Actions)
	assert.Empty(t, settings.Current().CustomActions)
}

func TestReminderFiredBroadcast(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)

	h.ReminderFired("stretch")
	e := readEvent(t, conn)
	assert.Equal(t, KindReminder, e.Kind)
	assert.Equal(t, "stretch", e.Reminder)
}
