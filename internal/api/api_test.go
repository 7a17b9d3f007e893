package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/churrosoft/deck8-hub-go/internal/api"
	"github.com/churrosoft/deck8-hub-go/internal/auth"
	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/driver"
	"github.com/churrosoft/deck8-hub-go/internal/identity"
	"github.com/churrosoft/deck8-hub-go/internal/maintenance"
	"github.com/churrosoft/deck8-hub-go/internal/models"
	"github.com/churrosoft/deck8-hub-go/internal/store"
)

type testServer struct {
	srv   *httptest.Server
	host  *driver.Host
	board *driver.Board
}

// newTestServer spins up a full router over a simulated board.
func newTestServer(t *testing.T, authSvc *auth.Service) *testServer {
	t.Helper()
	dir := t.TempDir()
	sounds, err := driver.NewSoundDir(filepath.Join(dir, "sounds"))
	if err != nil {
		t.Fatal(err)
	}
	board := driver.NewBoard()
	host, err := driver.NewHost(driver.Options{
		Open:     board.Open,
		Store:    store.NewMemStore(),
		Profiles: store.NewProfileStore(filepath.Join(dir, "profiles")),
		Sounds:   sounds,
	})
	if err != nil {
		t.Fatalf("driver.NewHost: %v", err)
	}

	router := api.NewRouter(driver.NewDispatcher(host), api.Options{
		Commands:  driver.Commands(),
		Info:      identity.Info{Hostname: "test", Instance: "deck8-test", Version: "0.0.1", Device: "deck8", Simulated: true},
		Auth:      authSvc,
		Metrics:   api.NewMetrics(),
		Simulator: driver.NewSimulator(host, board),
		Backups:   maintenance.New(maintenance.Options{DataDir: dir, Flush: host.Flush}),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		_ = host.Close()
	})
	return &testServer{srv: srv, host: host, board: board}
}

// do is a convenience helper for making requests to the test server.
func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("NewRequest %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do %s %s: %v", method, path, err)
	}
	return resp
}

// decodeJSON reads and decodes a JSON response body into v.
func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d; body=%s", resp.StatusCode, want, body)
	}
}

func wsURL(ts *testServer) string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
}

func TestGetInfo(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodGet, "/api/info", "")
	expectStatus(t, resp, http.StatusOK)
	var info identity.Info
	decodeJSON(t, resp, &info)
	if info.Instance != "deck8-test" || !info.Simulated {
		t.Errorf("info = %+v", info)
	}
}

func TestGetCommands(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodGet, "/api/commands", "")
	expectStatus(t, resp, http.StatusOK)
	var cmds []string
	decodeJSON(t, resp, &cmds)
	if len(cmds) != len(driver.Commands()) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(driver.Commands()))
	}
	for i := 1; i < len(cmds); i++ {
		if cmds[i-1] > cmds[i] {
			t.Fatalf("commands not sorted: %q before %q", cmds[i-1], cmds[i])
		}
	}
}

func TestInvokeConnectAndState(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodGet, "/api/state", "")
	expectStatus(t, resp, http.StatusOK)
	var before models.StateSnapshot
	decodeJSON(t, resp, &before)
	if before.Connected {
		t.Fatal("host should start disconnected")
	}

	resp = ts.do(t, http.MethodPost, "/api/invoke/connect", "")
	expectStatus(t, resp, http.StatusOK)
	var ok bool
	decodeJSON(t, resp, &ok)
	if !ok {
		t.Fatal("connect returned false with a plugged board")
	}

	resp = ts.do(t, http.MethodPost, "/api/invoke/set_key_color",
		`{"key_index":2,"slot":"B","h":10,"s":20,"v":30}`)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/state", "")
	var after models.StateSnapshot
	decodeJSON(t, resp, &after)
	if !after.Connected || after.DeviceInfo == nil {
		t.Errorf("after connect: connected=%v info=%v", after.Connected, after.DeviceInfo)
	}
	want := models.HsvColor{H: 10, S: 20, V: 30}
	if after.Keys[2].SlotB != want || after.Keys[2].ActiveSlot != models.SlotB {
		t.Errorf("key 2 = %+v", after.Keys[2])
	}
}

func TestInvokeErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	tests := []struct {
		name string
		path string
		body string
		code int
		err  string
	}{
		{"unknown command", "/api/invoke/self_destruct", "", http.StatusNotFound, models.CodeNotFound},
		{"malformed json", "/api/invoke/set_keycode", `{"key_index":`, http.StatusBadRequest, models.CodeBadRequest},
		{"bad index", "/api/invoke/set_keycode", `{"key_index":9,"keycode":4}`, http.StatusBadRequest, models.CodeBadRequest},
		{"needs device", "/api/invoke/eeprom_reset", "", http.StatusConflict, models.CodeNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, tt.path, tt.body)
			expectStatus(t, resp, tt.code)
			var appErr models.AppError
			decodeJSON(t, resp, &appErr)
			if appErr.Code != tt.err {
				t.Errorf("error code = %q, want %q", appErr.Code, tt.err)
			}
		})
	}
}

func TestWSBridge(t *testing.T) {
	ts := newTestServer(t, nil)
	ws := bridge.NewWS(wsURL(ts))
	defer ws.Close()
	b := bridge.New(ws)
	ctx := context.Background()

	ok, err := b.Connect(ctx)
	if err != nil || !ok {
		t.Fatalf("Connect = %v, %v", ok, err)
	}
	if err := b.SetKeyColor(ctx, 0, models.SlotA, models.HsvColor{H: 1, S: 2, V: 3}); err != nil {
		t.Fatalf("SetKeyColor: %v", err)
	}
	s, err := b.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if s.Keys[0].SlotA != (models.HsvColor{H: 1, S: 2, V: 3}) {
		t.Errorf("key 0 = %+v", s.Keys[0])
	}

	// Driver errors keep their code across the socket.
	if err := b.SetKeycode(ctx, 12, 4); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("SetKeycode(12) err = %v", err)
	}
	if _, err := b.ToggleKeySlot(ctx, -1); err == nil {
		t.Error("ToggleKeySlot(-1): want error")
	}

	got := make(chan models.ActiveSlot, 1)
	unlisten, err := ws.Listen(ctx, bridge.EventSlotToggled, func(payload json.RawMessage) {
		var slot models.ActiveSlot
		if json.Unmarshal(payload, &slot) == nil {
			got <- slot
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer unlisten()

	if err := ts.host.PressToggle(ctx); err != nil {
		t.Fatalf("PressToggle: %v", err)
	}
	select {
	case slot := <-got:
		if slot != models.SlotB {
			t.Errorf("slot-toggled payload = %q, want B", slot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no slot-toggled event over the socket")
	}
}

func TestWSRejectsNonInvoke(t *testing.T) {
	ts := newTestServer(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(bridge.Envelope{Type: bridge.TypeEvent, ID: "x"}); err != nil {
		t.Fatal(err)
	}
	var resp bridge.Envelope
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Type != bridge.TypeResponse || resp.ID != "x" || resp.Error == nil || resp.Error.Code != models.CodeBadRequest {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSSE(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.srv.URL+"/api/subscribe", nil)
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan [2]string, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		var name string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				events <- [2]string{name, strings.TrimPrefix(line, "data: ")}
			}
		}
	}()

	next := func() [2]string {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-ctx.Done():
			t.Fatal("timed out waiting for SSE event")
		}
		return [2]string{}
	}

	first := next()
	if first[0] != bridge.EventStateUpdated {
		t.Fatalf("first event = %q, want state-updated", first[0])
	}
	var s models.StateSnapshot
	if err := json.Unmarshal([]byte(first[1]), &s); err != nil {
		t.Fatalf("snapshot payload: %v", err)
	}

	if err := ts.host.PressKey(context.Background(), 3); err != nil {
		t.Fatalf("PressKey: %v", err)
	}
	ev := next()
	if ev[0] != bridge.EventStateUpdated {
		t.Fatalf("event = %q", ev[0])
	}
	if err := json.Unmarshal([]byte(ev[1]), &s); err != nil {
		t.Fatal(err)
	}
	if s.Keys[3].ActiveSlot != models.SlotB {
		t.Errorf("pressed key slot = %q, want B", s.Keys[3].ActiveSlot)
	}
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/invoke/connect", "").Body.Close()
	ts.do(t, http.MethodPost, "/api/invoke/not_a_command", "").Body.Close()

	resp := ts.do(t, http.MethodGet, "/metrics", "")
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	text := string(body)
	for _, want := range []string{
		`deck8_commands_total{code="OK",command="connect"} 1`,
		`deck8_commands_total{code="NOT_FOUND",command="other"} 1`,
		`deck8_command_duration_seconds_count{command="connect"} 1`,
		`deck8_http_requests_total{method="POST",route="/api/invoke/{cmd}"} 2`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAuthGate(t *testing.T) {
	dir := t.TempDir()
	keys := `{"panel":{"access_key":"letmein"}}`
	if err := os.WriteFile(filepath.Join(dir, auth.KeysFileName), []byte(keys), 0600); err != nil {
		t.Fatal(err)
	}
	svc, err := auth.NewService(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)
	ts := newTestServer(t, svc)

	resp := ts.do(t, http.MethodGet, "/api/state", "")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/info", "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	denied := bridge.New(bridge.NewWS(wsURL(ts)))
	defer denied.Close()
	if _, err := denied.GetState(context.Background()); err == nil {
		t.Error("WS without key: want error")
	}

	ws := bridge.NewWS(wsURL(ts))
	ws.SetAPIKey("letmein")
	b := bridge.New(ws)
	defer b.Close()
	if _, err := b.GetState(context.Background()); err != nil {
		t.Errorf("WS with key: %v", err)
	}
}

func TestSimRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/invoke/connect", "").Body.Close()

	resp := ts.do(t, http.MethodPost, "/api/sim/keys/4/press", "")
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
	if got := ts.host.State().Keys[4].ActiveSlot; got != models.SlotB {
		t.Errorf("key 4 slot = %q after press", got)
	}

	resp = ts.do(t, http.MethodPost, "/api/sim/keys/x/press", "")
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/sim/keys/8/press", "")
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/sim/shortcut", `{"shortcut":"Ctrl+Alt+Z"}`)
	expectStatus(t, resp, http.StatusOK)
	var handled map[string]bool
	decodeJSON(t, resp, &handled)
	if handled["handled"] {
		t.Error("unbound shortcut reported as handled")
	}

	resp = ts.do(t, http.MethodPost, "/api/sim/plug", `{"plugged":false}`)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
	if ts.host.State().Connected {
		t.Error("host still connected after unplug")
	}

	resp = ts.do(t, http.MethodPost, "/api/sim/plug", `{}`)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestBackups(t *testing.T) {
	ts := newTestServer(t, nil)

	var list struct {
		Backups []string `json:"backups"`
	}
	resp := ts.do(t, http.MethodGet, "/api/backups", "")
	expectStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &list)
	if len(list.Backups) != 0 {
		t.Fatalf("backups = %q, want none", list.Backups)
	}

	var created struct {
		File string `json:"file"`
	}
	resp = ts.do(t, http.MethodPost, "/api/backups", "")
	expectStatus(t, resp, http.StatusCreated)
	decodeJSON(t, resp, &created)
	if !strings.HasPrefix(created.File, "deck8-data-") {
		t.Errorf("file = %q", created.File)
	}

	resp = ts.do(t, http.MethodGet, "/api/backups", "")
	decodeJSON(t, resp, &list)
	if len(list.Backups) != 1 || list.Backups[0] != created.File {
		t.Errorf("backups = %q, want [%q]", list.Backups, created.File)
	}
}
