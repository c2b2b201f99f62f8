// Emojibox Emoji Wanted
//
// A field of emoji drift around and bounce off the walls. One of them is
// wanted; find and click it before the round clock runs out. Every round
// adds a target and changes the time budget.
//
// Features:
// - WebSockets per game ID: /wanted/:gameid and /wanted/:gameid/ws
// - First connection to a game becomes host: only the host may start,
//   restart, or change the playfield layout
// - Every connected browser sees the same targets, and any of them may click
// - Each hub goroutine owns its session and frame scheduler, so the engine
//   runs single-threaded
// - State snapshots at --broadcast-rate while a round runs, and at once on
//   every phase change
// - Players identified by cookie (uuid)
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"bytes"
	"crypto/rand"
	"html/template"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/emojibox/wanted"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "start", "restart", "click", "layout"
	Target   *int   `json:"target,omitempty"`   // click
	Round    int    `json:"round,omitempty"`    // click, the round the target belongs to
	Viewport int    `json:"viewport,omitempty"` // layout, in CSS pixels
}

// SessionInfoMessage is sent immediately on connect so the client knows
// what role this cookie has.
type SessionInfoMessage struct {
	Type    string `json:"type"` // "session_info"
	GameID  string `json:"game_id"`
	IsHost  bool   `json:"is_host"`
	Players int    `json:"players"`
}

// StateMessage carries a full snapshot, so any one of them may be dropped.
type StateMessage struct {
	Type string `json:"type"` // "state"
	wanted.Snapshot
}

// SimpleMessage is for generic notifications ("not_host", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type inputRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	inputs   chan inputRequest
	quit     chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	closed bool

	createdAt     time.Time
	lastActive    time.Time
	hostPlayerID  string // cookie/playerID of the first connection
	frameInterval time.Duration
	broadcastGap  int

	// Owned by run; never touched from other goroutines.
	sched   *wanted.FrameScheduler
	session *wanted.Session
	changed bool
}

func newHub(cfg *Config, gameID string, metrics *gameMetrics) (*Hub, error) {
	now := time.Now()
	sched := wanted.NewFrameScheduler(now)

	session, err := wanted.NewSession(cfg.gameConfig(), sched, nil)
	if err != nil {
		return nil, err
	}

	h := &Hub{
		id:            gameID,
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unreg:         make(chan *Client),
		inputs:        make(chan inputRequest),
		quit:          make(chan struct{}),
		createdAt:     now,
		lastActive:    now,
		frameInterval: cfg.frameInterval(),
		broadcastGap:  max(1, cfg.frameRate/cfg.broadcastRate),
		sched:         sched,
		session:       session,
	}

	session.OnTransition = func(tr wanted.Transition) {
		h.changed = true
		metrics.observe(tr)

		switch tr.To {
		case wanted.PhaseWon:
			logf(cfg, "GAMES: Round %d of %s won in %s (score %d)", tr.Round, h.id, tr.Elapsed.Round(time.Millisecond), tr.Score)
		case wanted.PhaseLost:
			logf(cfg, "GAMES: Round %d of %s lost (%s, score %d)", tr.Round, h.id, tr.Reason, tr.Score)
		case wanted.PhaseReady:
			logf(cfg, "GAMES: Game %s restarted", h.id)
		}
	}

	return h, nil
}

func (h *Hub) run(cfg *Config) {
	ticker := time.NewTicker(h.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return

		case c := <-h.register:
			h.addClient(cfg, c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case in := <-h.inputs:
			h.handleInput(cfg, in)

		case now := <-ticker.C:
			h.sched.Frame(now)

			if h.session.Phase() == wanted.PhaseRunning && h.sched.Frames()%uint64(h.broadcastGap) == 0 {
				h.changed = true
			}
		}

		if h.changed {
			h.broadcastState()
		}
	}
}

// addClient registers c and sends it its role and the current state. A hub
// that has already been closed turns the client away by closing its send
// channel, which ends its write pump.
func (h *Hub) addClient(cfg *Config, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c.send)
		return false
	}

	h.lastActive = time.Now()

	// First connection becomes host
	if h.hostPlayerID == "" {
		h.hostPlayerID = c.playerID
	}

	h.clients[c] = true

	c.send <- SessionInfoMessage{
		Type:    "session_info",
		GameID:  h.id,
		IsHost:  c.playerID == h.hostPlayerID,
		Players: len(h.clients),
	}
	c.send <- StateMessage{Type: "state", Snapshot: h.session.Snapshot()}

	logf(cfg, "GAMES: Player %s joined %s (%d connected)", c.playerID, h.id, len(h.clients))

	return true
}

// handleInput applies a client message to the session.
func (h *Hub) handleInput(cfg *Config, in inputRequest) {
	c := in.client
	msg := in.msg

	h.mu.Lock()
	h.lastActive = time.Now()
	isHost := c.playerID != "" && c.playerID == h.hostPlayerID
	h.mu.Unlock()

	switch msg.Type {
	case "click":
		if msg.Target == nil {
			return
		}

		// Catch the clock up to now, so a click after the budget ran out
		// loses to the timeout even between ticks.
		h.sched.Frame(time.Now())

		if h.session.Click(msg.Round, *msg.Target) {
			logf(cfg, "GAMES: Player %s clicked target %d of round %d in %s", c.playerID, *msg.Target, msg.Round, h.id)
		}

	case "start", "restart", "layout":
		if !isHost {
			h.sendTo(c, SimpleMessage{
				Type:    "not_host",
				Message: "Only the host can do that.",
			})
			return
		}

		switch msg.Type {
		case "start":
			h.session.Start()
		case "restart":
			h.session.Restart()
		case "layout":
			if err := h.session.Resize(wanted.LayoutFor(msg.Viewport)); err != nil {
				logf(cfg, "ERROR: Layout for viewport %d in %s: %v", msg.Viewport, h.id, err)
				return
			}
			h.changed = true
		}
	}
}

// broadcastState sends the current snapshot to every client. Clients whose
// buffer is full skip this snapshot; the next one replaces it.
func (h *Hub) broadcastState() {
	h.changed = false
	msg := StateMessage{Type: "state", Snapshot: h.session.Snapshot()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// closeAll disconnects all clients of this hub and stops its loop.
func (h *Hub) closeAll() {
	h.stopOnce.Do(func() { close(h.quit) })

	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "emojibox_id"

func getOrSetPlayerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		log.Println("uuid error:", err)
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id.String(),
		Path:     cfg.prefix + "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   cfg.scheme() == "https",
	})

	return id.String()
}

// GameManager holds a set of hubs keyed by game ID, so each /wanted/:gameid
// is its own isolated session.
type GameManager struct {
	cfg         *Config
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	metrics     *gameMetrics
	done        chan struct{}
	stopOnce    sync.Once
}

func newGameManager(cfg *Config, idleTimeout time.Duration, metrics *gameMetrics) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		metrics:     metrics,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	hub, err := newHub(cfg, gameID, gm.metrics)
	if err != nil {
		return nil, err
	}
	gm.hubs[gameID] = hub
	gm.metrics.gamesCreated.Inc()
	gm.metrics.activeGames.Set(float64(len(gm.hubs)))
	go hub.run(cfg)

	logf(cfg, "GAMES: Opened game %s", gameID)

	return hub, nil
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()

			logf(gm.cfg, "GAMES: Reaped idle game %s after %s", id, time.Since(hub.createdAt).Round(time.Second))
		}
	}
	gm.metrics.activeGames.Set(float64(len(gm.hubs)))
}

// stop ends every game and the reaper.
func (gm *GameManager) stop() {
	gm.stopOnce.Do(func() { close(gm.done) })

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
	gm.metrics.activeGames.Set(0)
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(cfg, w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub, err := gm.getHub(cfg, gameID)
		if err != nil {
			http.Error(w, "unable to create game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 64),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "start", "restart", "click", "layout":
			select {
			case h.inputs <- inputRequest{client: c, msg: msg}:
			case <-h.quit:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

var gameTemplate = template.Must(template.ParseFS(assets, "assets/wanted/index.html"))

type gamePage struct {
	Favicon template.HTML
	Prefix  string
	GameID  string
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var page bytes.Buffer
		err := gameTemplate.Execute(&page, gamePage{
			Favicon: template.HTML(getFavicon(cfg)),
			Prefix:  cfg.prefix,
			GameID:  ps.ByName("gameid"),
		})
		if err != nil {
			http.Error(w, "unable to render game", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(cfg, w, r)

		_, _ = w.Write(page.Bytes())
	}
}

// redirectNewGame handles GET /wanted by generating a new random game ID
// (with server-side collision detection) and redirecting to /wanted/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerWantedGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerWantedGame(cfg *Config, path string, mux *httprouter.Router, metrics *gameMetrics) *GameManager {
	gm := newGameManager(cfg, cfg.sessionTimeout, metrics)

	// Root path → redirect to new random game
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	// Per-game client view (HTML)
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	// Per-game websocket
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	// Per-game QR code
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)

	return gm
}
