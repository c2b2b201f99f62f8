/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/emojibox/wanted"
)

type testMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	IsHost bool   `json:"is_host"`
	wanted.Snapshot
}

type testGameServer struct {
	url string
	gm  *GameManager
}

func newTestGameServer(t *testing.T) *testGameServer {
	t.Helper()

	cfg := testConfig(t)
	mux := httprouter.New()
	gm := registerWantedGame(cfg, "/wanted", mux, newGameMetrics())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(gm.stop)

	return &testGameServer{
		url: "ws" + strings.TrimPrefix(srv.URL, "http"),
		gm:  gm,
	}
}

func (s *testGameServer) dial(t *testing.T, gameID string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(s.url+"/wanted/"+gameID+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(testMessage) bool) testMessage {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)

		var msg testMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isPhase(phase wanted.Phase) func(testMessage) bool {
	return func(m testMessage) bool {
		return m.Type == "state" && m.Phase == phase
	}
}

func TestFirstConnectionIsHost(t *testing.T) {
	s := newTestGameServer(t)

	host := s.dial(t, "game1")
	info := readUntil(t, host, func(m testMessage) bool { return m.Type == "session_info" })
	if !info.IsHost {
		t.Error("first connection is not host")
	}
	if info.GameID != "game1" {
		t.Errorf("game id = %q, want game1", info.GameID)
	}

	state := readUntil(t, host, func(m testMessage) bool { return m.Type == "state" })
	if state.Phase != wanted.PhaseReady || state.Round != 1 || state.Score != 0 {
		t.Errorf("initial state = %+v", state.Snapshot)
	}

	guest := s.dial(t, "game1")
	info = readUntil(t, guest, func(m testMessage) bool { return m.Type == "session_info" })
	if info.IsHost {
		t.Error("second connection became host")
	}
}

func TestGuestCannotStart(t *testing.T) {
	s := newTestGameServer(t)

	host := s.dial(t, "game2")
	readUntil(t, host, isPhase(wanted.PhaseReady))

	guest := s.dial(t, "game2")
	readUntil(t, guest, isPhase(wanted.PhaseReady))

	if err := guest.WriteJSON(ClientMessage{Type: "start"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, guest, func(m testMessage) bool { return m.Type == "not_host" })
}

func TestPlayRoundOverWebSocket(t *testing.T) {
	s := newTestGameServer(t)

	host := s.dial(t, "game3")
	readUntil(t, host, isPhase(wanted.PhaseReady))

	if err := host.WriteJSON(ClientMessage{Type: "layout", Viewport: 400}); err != nil {
		t.Fatal(err)
	}
	layout := readUntil(t, host, func(m testMessage) bool {
		return m.Type == "state" && m.Playfield == wanted.LayoutFor(400)
	})
	if layout.Phase != wanted.PhaseReady {
		t.Errorf("layout changed phase to %s", layout.Phase)
	}

	if err := host.WriteJSON(ClientMessage{Type: "start"}); err != nil {
		t.Fatal(err)
	}
	running := readUntil(t, host, isPhase(wanted.PhaseRunning))

	if running.Wanted == "" {
		t.Fatal("running state has no wanted symbol")
	}
	if len(running.Targets) != wanted.DefaultConfig().TargetCount(1) {
		t.Errorf("%d targets, want %d", len(running.Targets), wanted.DefaultConfig().TargetCount(1))
	}

	target := -1
	for _, tv := range running.Targets {
		if tv.Wanted {
			t.Fatal("wanted target revealed while running")
		}
		if tv.Symbol == running.Wanted {
			target = tv.ID
		}
	}
	if target < 0 {
		t.Fatal("no target carries the wanted symbol")
	}

	if err := host.WriteJSON(ClientMessage{Type: "click", Round: running.Round, Target: &target}); err != nil {
		t.Fatal(err)
	}
	won := readUntil(t, host, isPhase(wanted.PhaseWon))
	if won.Score != 1 {
		t.Errorf("score = %d, want 1", won.Score)
	}

	next := readUntil(t, host, isPhase(wanted.PhaseRunning))
	if next.Round != 2 {
		t.Errorf("round = %d, want 2", next.Round)
	}

	if err := host.WriteJSON(ClientMessage{Type: "restart"}); err != nil {
		t.Fatal(err)
	}
	ready := readUntil(t, host, isPhase(wanted.PhaseReady))
	if ready.Round != 1 || ready.Score != 0 {
		t.Errorf("after restart round %d score %d, want 1 and 0", ready.Round, ready.Score)
	}
}

func TestWrongClickLoses(t *testing.T) {
	s := newTestGameServer(t)

	host := s.dial(t, "game4")
	readUntil(t, host, isPhase(wanted.PhaseReady))

	if err := host.WriteJSON(ClientMessage{Type: "start"}); err != nil {
		t.Fatal(err)
	}
	running := readUntil(t, host, isPhase(wanted.PhaseRunning))

	target := -1
	for _, tv := range running.Targets {
		if tv.Symbol != running.Wanted {
			target = tv.ID
			break
		}
	}
	if target < 0 {
		t.Fatal("no decoy in round")
	}

	if err := host.WriteJSON(ClientMessage{Type: "click", Round: running.Round, Target: &target}); err != nil {
		t.Fatal(err)
	}
	lost := readUntil(t, host, isPhase(wanted.PhaseLost))

	if lost.Reason != wanted.ReasonWrong || lost.Message != "Wrong emoji!" {
		t.Errorf("lost with reason %q message %q", lost.Reason, lost.Message)
	}

	revealed := 0
	for _, tv := range lost.Targets {
		if tv.Wanted {
			revealed++
		}
	}
	if revealed != 1 {
		t.Errorf("%d targets revealed as wanted, want 1", revealed)
	}
}

func TestRedirectNewGame(t *testing.T) {
	cfg := testConfig(t)
	mux := httprouter.New()
	gm := registerWantedGame(cfg, "/wanted", mux, newGameMetrics())
	t.Cleanup(gm.stop)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wanted", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}

	loc := rec.Header().Get("Location")
	id, ok := strings.CutPrefix(loc, "/wanted/")
	if !ok || len(id) != 8 {
		t.Errorf("Location = %q, want /wanted/ and an 8 character id", loc)
	}
}

func TestQRCode(t *testing.T) {
	cfg := testConfig(t)
	mux := httprouter.New()
	gm := registerWantedGame(cfg, "/wanted", mux, newGameMetrics())
	t.Cleanup(gm.stop)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wanted/abc/qr", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestPlayerCookie(t *testing.T) {
	cfg := testConfig(t)

	rec := httptest.NewRecorder()
	id := getOrSetPlayerID(cfg, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("player id %q is not a uuid: %v", id, err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != playerCookieName || cookies[0].Value != id {
		t.Fatalf("cookies = %v", cookies)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	if got := getOrSetPlayerID(cfg, rec, r); got != id {
		t.Errorf("returning player got %q, want %q", got, id)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("cookie set again for a returning player")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: playerCookieName, Value: "not-a-uuid"})
	if got := getOrSetPlayerID(cfg, httptest.NewRecorder(), r); got == "not-a-uuid" {
		t.Error("invalid cookie accepted")
	}
}

func TestReapIdleGames(t *testing.T) {
	cfg := testConfig(t)
	gm := newGameManager(cfg, 0, newGameMetrics())
	t.Cleanup(gm.stop)

	if _, err := gm.getHub(cfg, "idle"); err != nil {
		t.Fatal(err)
	}

	gm.reap(time.Now().Add(-time.Hour))
	if len(gm.hubs) != 1 {
		t.Fatalf("fresh game reaped")
	}

	gm.reap(time.Now().Add(time.Hour))
	if len(gm.hubs) != 0 {
		t.Errorf("%d games left after reaping, want 0", len(gm.hubs))
	}
}

func TestNewGameIDs(t *testing.T) {
	gm := newGameManager(testConfig(t), 0, newGameMetrics())
	t.Cleanup(gm.stop)

	seen := make(map[string]bool)
	for range 100 {
		id := gm.newGameID()
		if len(id) != 8 {
			t.Fatalf("id %q is not 8 characters", id)
		}
		if seen[id] {
			t.Fatalf("id %q repeated", id)
		}
		seen[id] = true
	}
}

func newTestHub(t *testing.T, cfg *Config) (*Hub, *Client) {
	t.Helper()

	h, err := newHub(cfg, "local", newGameMetrics())
	if err != nil {
		t.Fatalf("newHub: %v", err)
	}
	t.Cleanup(h.closeAll)

	host := &Client{playerID: "host", send: make(chan any, 64)}
	if !h.addClient(cfg, host) {
		t.Fatal("open hub turned the host away")
	}

	return h, host
}

func clickMsg(round, target int) ClientMessage {
	return ClientMessage{Type: "click", Round: round, Target: &target}
}

func wantedTarget(t *testing.T, s *wanted.Session) int {
	t.Helper()

	for _, tg := range s.Round().Targets {
		if tg.Wanted {
			return tg.ID
		}
	}
	t.Fatal("round has no wanted target")
	return -1
}

func TestHubIgnoresClickForEarlierRound(t *testing.T) {
	cfg := testConfig(t)
	cfg.winDelay = 0
	h, host := newTestHub(t, cfg)

	h.handleInput(cfg, inputRequest{client: host, msg: ClientMessage{Type: "start"}})
	h.handleInput(cfg, inputRequest{client: host, msg: clickMsg(1, wantedTarget(t, h.session))})
	h.sched.Frame(time.Now())

	if h.session.Phase() != wanted.PhaseRunning || h.session.RoundIndex() != 2 {
		t.Fatalf("phase = %s, round = %d; want running, 2", h.session.Phase(), h.session.RoundIndex())
	}

	for _, tg := range h.session.Round().Targets {
		h.handleInput(cfg, inputRequest{client: host, msg: clickMsg(1, tg.ID)})
	}

	if h.session.Phase() != wanted.PhaseRunning || h.session.Score() != 1 {
		t.Errorf("phase = %s, score = %d after round 1 clicks; want running, 1", h.session.Phase(), h.session.Score())
	}
}

func TestHubClickAfterBudgetLoses(t *testing.T) {
	cfg := testConfig(t)
	cfg.roundTime = 30 * time.Millisecond
	cfg.roundTimeDelta = 0
	cfg.roundTimeFloor = 0
	h, host := newTestHub(t, cfg)

	h.handleInput(cfg, inputRequest{client: host, msg: ClientMessage{Type: "start"}})

	// No frame runs between the budget running out and the click.
	time.Sleep(60 * time.Millisecond)
	h.handleInput(cfg, inputRequest{client: host, msg: clickMsg(1, wantedTarget(t, h.session))})

	if h.session.Phase() != wanted.PhaseLost || h.session.Reason() != wanted.ReasonTimeout {
		t.Errorf("phase = %s, reason = %q; want lost, timeout", h.session.Phase(), h.session.Reason())
	}
	if h.session.Score() != 0 {
		t.Errorf("score = %d, want 0", h.session.Score())
	}
}

func TestClosedHubTurnsClientsAway(t *testing.T) {
	cfg := testConfig(t)
	h, err := newHub(cfg, "closed", newGameMetrics())
	if err != nil {
		t.Fatal(err)
	}
	h.closeAll()

	c := &Client{playerID: "late", send: make(chan any, 4)}
	if h.addClient(cfg, c) {
		t.Fatal("closed hub registered a client")
	}

	if _, ok := <-c.send; ok {
		t.Error("send channel still open, write pump would never exit")
	}
	if len(h.clients) != 0 {
		t.Errorf("%d clients on a closed hub, want 0", len(h.clients))
	}
}
