package httptransport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"axiomind/internal/config"
	"axiomind/internal/events"
	"axiomind/internal/history"
	"axiomind/internal/session"
)

type testEnv struct {
	srv      *httptest.Server
	sessions *session.Manager
	history  *history.Store
	client   *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hist, err := history.Open(history.Options{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	settings := config.NewSettingsStore(config.DefaultSettings(config.ServerConfig{SessionTTL: time.Hour}))
	mgr := session.NewManager(session.Options{Bus: events.NewBus(64), History: hist, Settings: settings})
	router := NewRouter(Deps{
		Sessions: mgr,
		History:  hist,
		Settings: settings,
		Config:   config.ServerConfig{SSEPingInterval: 20 * time.Millisecond},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, sessions: mgr, history: hist, client: &http.Client{Timeout: 5 * time.Second}}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (e *testEnv) createHuman(t *testing.T) session.Info {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/api/sessions", map[string]any{"seed": 17, "level": 1, "opponent_type": "human"})
	if code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", code, body)
	}
	var info session.Info
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if info.ID == "" {
		t.Fatal("session_id should not be empty")
	}
	return info
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("decode error body %s: %v", body, err)
	}
	return er.Error
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/health", nil)
	if code != http.StatusOK || strings.TrimSpace(string(body)) != `{"status":"ok"}` {
		t.Fatalf("health status=%d body=%s", code, body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	info := env.createHuman(t)

	code, body := env.do(t, http.MethodGet, "/api/sessions/"+info.ID+"/state?seat=0", nil)
	if code != http.StatusOK {
		t.Fatalf("state status=%d body=%s", code, body)
	}
	var state map[string]any
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if cards, _ := state["my_hole_cards"].([]any); len(cards) != 2 {
		t.Fatalf("state missing my_hole_cards: %v", state)
	}
	seats, _ := state["seats"].([]any)
	if len(seats) != 2 {
		t.Fatalf("expected two seats: %v", state)
	}
	if _, leaked := seats[1].(map[string]any)["hole_cards"]; leaked {
		t.Fatalf("opponent hole cards leaked: %v", seats[1])
	}

	code, body = env.do(t, http.MethodGet, "/api/sessions/"+info.ID+"/state?seat=x", nil)
	if code != http.StatusBadRequest || errorCode(t, body) != "invalid_seat" {
		t.Fatalf("bad seat status=%d body=%s", code, body)
	}

	code, body = env.do(t, http.MethodGet, "/api/sessions", nil)
	if code != http.StatusOK || !strings.Contains(string(body), info.ID) {
		t.Fatalf("list status=%d body=%s", code, body)
	}

	code, _ = env.do(t, http.MethodDelete, "/api/sessions/"+info.ID, nil)
	if code != http.StatusNoContent {
		t.Fatalf("delete status=%d", code)
	}
	code, body = env.do(t, http.MethodGet, "/api/sessions/"+info.ID, nil)
	if code != http.StatusNotFound || errorCode(t, body) != "session_not_found" {
		t.Fatalf("get after delete status=%d body=%s", code, body)
	}
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodPost, "/api/sessions", map[string]any{"level": 0, "opponent_type": "martian"})
	if code != http.StatusBadRequest || errorCode(t, body) != "invalid_opponent" {
		t.Fatalf("status=%d body=%s", code, body)
	}
	code, body = env.do(t, http.MethodPost, "/api/sessions", map[string]any{"level": 99})
	if code != http.StatusBadRequest || errorCode(t, body) != "invalid_level" {
		t.Fatalf("status=%d body=%s", code, body)
	}
}

func TestActionsStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	info := env.createHuman(t)
	path := "/api/sessions/" + info.ID + "/actions"

	code, body := env.do(t, http.MethodPost, path, map[string]any{"action": "Call", "turn_id": "stale"})
	if code != http.StatusBadRequest || errorCode(t, body) != "stale_turn" {
		t.Fatalf("stale turn status=%d body=%s", code, body)
	}
	code, body = env.do(t, http.MethodPost, path, map[string]any{"turn_id": info.TurnID})
	if code != http.StatusBadRequest || errorCode(t, body) != "invalid_action" {
		t.Fatalf("missing action status=%d body=%s", code, body)
	}
	code, body = env.do(t, http.MethodPost, path, map[string]any{"action": "Check"})
	if code != http.StatusBadRequest {
		t.Fatalf("illegal check status=%d body=%s", code, body)
	}

	code, body = env.do(t, http.MethodPost, path, map[string]any{"action": "Fold", "turn_id": info.TurnID})
	if code != http.StatusAccepted {
		t.Fatalf("fold should complete the hand, status=%d body=%s", code, body)
	}
	var res session.ActionResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode action result: %v", err)
	}
	if !res.HandCompleted || res.HandID != "19700101-000001" {
		t.Fatalf("unexpected result: %+v", res)
	}

	code, body = env.do(t, http.MethodPost, path, map[string]any{"action": "Call"})
	if code != http.StatusOK {
		t.Fatalf("call should keep the hand going, status=%d body=%s", code, body)
	}

	code, body = env.do(t, http.MethodPost, "/api/sessions/nope/actions", map[string]any{"action": "Call"})
	if code != http.StatusNotFound || errorCode(t, body) != "session_not_found" {
		t.Fatalf("unknown session status=%d body=%s", code, body)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	info := env.createHuman(t)
	if code, body := env.do(t, http.MethodPost, "/api/sessions/"+info.ID+"/actions", map[string]any{"action": "Fold"}); code != http.StatusAccepted {
		t.Fatalf("fold status=%d body=%s", code, body)
	}

	code, body := env.do(t, http.MethodGet, "/api/history?limit=5", nil)
	if code != http.StatusOK {
		t.Fatalf("history status=%d", code)
	}
	var recent struct {
		Items []history.Entry `json:"items"`
		Limit int             `json:"limit"`
	}
	if err := json.Unmarshal(body, &recent); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if recent.Limit != 5 || len(recent.Items) != 1 || recent.Items[0].Hand.Winner() != "p1" {
		t.Fatalf("unexpected history: %s", body)
	}

	code, body = env.do(t, http.MethodPost, "/api/history/filter", map[string]any{"winner": "p0"})
	if code != http.StatusOK || !strings.Contains(string(body), `"count":0`) {
		t.Fatalf("filter status=%d body=%s", code, body)
	}
	code, body = env.do(t, http.MethodPost, "/api/history/filter", map[string]any{"limit": -1})
	if code != http.StatusBadRequest || errorCode(t, body) != "invalid_filter" {
		t.Fatalf("bad filter status=%d body=%s", code, body)
	}

	code, body = env.do(t, http.MethodGet, "/api/history/stats", nil)
	var stats history.Stats
	if err := json.Unmarshal(body, &stats); err != nil || code != http.StatusOK {
		t.Fatalf("stats status=%d err=%v", code, err)
	}
	if stats.Hands != 1 || stats.Winners["p1"] != 1 || stats.Net["p0"] != -50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodPut, "/api/settings", map[string]any{"default_level": 25})
	if code != http.StatusBadRequest || errorCode(t, body) != "invalid_settings" {
		t.Fatalf("invalid settings status=%d body=%s", code, body)
	}
	code, body = env.do(t, http.MethodPut, "/api/settings", map[string]any{"default_level": 4, "default_opponent": "human"})
	if code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", code, body)
	}
	code, body = env.do(t, http.MethodGet, "/api/settings", nil)
	var got config.Settings
	if err := json.Unmarshal(body, &got); err != nil || code != http.StatusOK {
		t.Fatalf("get settings status=%d err=%v", code, err)
	}
	if got.DefaultLevel != 4 || got.DefaultOpponent != "human" || got.SessionTTLSeconds != 3600 {
		t.Fatalf("unexpected settings: %+v", got)
	}

	code, body = env.do(t, http.MethodPost, "/api/sessions", nil)
	if code != http.StatusCreated {
		t.Fatalf("create with defaults status=%d body=%s", code, body)
	}
	var info session.Info
	_ = json.Unmarshal(body, &info)
	if info.Level != 4 || info.Opponent != "human" {
		t.Fatalf("defaults not applied: %+v", info)
	}
}

type sseFrame struct {
	event string
	data  string
}

// readFrame returns the next data frame, skipping keepalive comments.
func readFrame(rd *bufio.Reader) (sseFrame, error) {
	var f sseFrame
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return f, err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if f.data != "" {
				return f, nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	info := env.createHuman(t)

	resp, err := env.client.Get(env.srv.URL + "/api/sessions/" + info.ID + "/events?seat=0")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Fatalf("stream status=%d content-type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	rd := bufio.NewReader(resp.Body)

	if code, body := env.do(t, http.MethodPost, "/api/sessions/"+info.ID+"/actions", map[string]any{"action": "Fold"}); code != http.StatusAccepted {
		t.Fatalf("fold status=%d body=%s", code, body)
	}
	want := []events.Type{events.TypePlayerAction, events.TypeHandCompleted, events.TypeHandStarted, events.TypeCardsDealt, events.TypeCardsDealt}
	var last uint64
	for i, wt := range want {
		f, err := readFrame(rd)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if f.event != "game_event" {
			t.Fatalf("frame %d event name %q", i, f.event)
		}
		var ev events.Event
		if err := json.Unmarshal([]byte(f.data), &ev); err != nil {
			t.Fatalf("frame %d decode %s: %v", i, f.data, err)
		}
		if ev.Type != wt || ev.SessionID != info.ID || ev.Seq <= last {
			t.Fatalf("frame %d: want %s got %+v", i, wt, ev)
		}
		last = ev.Seq
		if cd, ok := ev.Payload.(events.CardsDealt); ok {
			if (cd.Seat == 0) != (len(cd.Cards) == 2) {
				t.Fatalf("seat 0 stream should only see its own cards: %+v", cd)
			}
		}
	}

	if code, _ := env.do(t, http.MethodDelete, "/api/sessions/"+info.ID, nil); code != http.StatusNoContent {
		t.Fatalf("delete status=%d", code)
	}
	f, err := readFrame(rd)
	if err != nil {
		t.Fatalf("game ended frame: %v", err)
	}
	var ended events.Event
	if err := json.Unmarshal([]byte(f.data), &ended); err != nil || ended.Type != events.TypeGameEnded {
		t.Fatalf("expected GameEnded, got %s (%v)", f.data, err)
	}
	if _, err := readFrame(rd); !errors.Is(err, io.EOF) {
		t.Fatalf("stream should end after GameEnded, got %v", err)
	}
}

func TestEventsUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/api/sessions/missing/events", nil)
	if code != http.StatusNotFound || errorCode(t, body) != "session_not_found" {
		t.Fatalf("status=%d body=%s", code, body)
	}
}
