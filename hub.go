package main

import (
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
	inboxSize     = 1024
)

// Hub owns all server state and processes every inbound event to
// completion on a single goroutine. Connection read pumps post
// closures into the inbox; timers re-enter the same way and
// re-validate their target still exists before mutating it.
type Hub struct {
	inbox chan func()
	stop  chan struct{}
	once  sync.Once

	players map[string]*Player
	lobbies map[string]*Lobby
	races   map[string]*RaceSession
	battles map[string]*BattleSession
	rooms   *RoomSet
	ledger  *Ledger
	cfg     *Config

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a new Hub
func NewHub(ledger *Ledger, cfg *Config) *Hub {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Hub{
		inbox:   make(chan func(), inboxSize),
		stop:    make(chan struct{}),
		players: make(map[string]*Player),
		lobbies: make(map[string]*Lobby),
		races:   make(map[string]*RaceSession),
		battles: make(map[string]*BattleSession),
		rooms:   NewRoomSet(),
		ledger:  ledger,
		cfg:     cfg,
		ipConns: make(map[string]int),
	}
}

// Run executes posted events serially until Stop
func (h *Hub) Run() {
	for {
		select {
		case fn := <-h.inbox:
			fn()
		case <-h.stop:
			return
		}
	}
}

// Stop terminates the reactor
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// post queues an event for the reactor
func (h *Hub) post(fn func()) {
	select {
	case h.inbox <- fn:
	case <-h.stop:
	}
}

// call posts an event and waits for it to run. Used by the HTTP
// side-channel and tests; never from inside the reactor.
func (h *Hub) call(fn func()) {
	done := make(chan struct{})
	h.post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-h.stop:
	}
}

// schedule runs fn on the reactor after d. The returned timer is
// advisory — every scheduled closure re-validates its target, so a
// fired-after-delete timer is a no-op, not an error.
func (h *Hub) schedule(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { h.post(fn) })
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Stats is the health side-channel snapshot
type Stats struct {
	Players int `json:"players"`
	Lobbies int `json:"lobbies"`
	Races   int `json:"races"`
	Battles int `json:"battles"`
}

// Snapshot returns live counts; safe to call from HTTP handlers
func (h *Hub) Snapshot() Stats {
	var s Stats
	h.call(func() {
		s = Stats{
			Players: len(h.players),
			Lobbies: len(h.lobbies),
			Races:   len(h.races),
			Battles: len(h.battles),
		}
	})
	return s
}

// TopScores returns the ledger's highest entries for the side-channel
func (h *Hub) TopScores(n int) []ScoreRow {
	var rows []ScoreRow
	h.call(func() { rows = h.ledger.Top(n) })
	return rows
}

// LobbyExists reports whether a portal is currently advertised
func (h *Hub) LobbyExists(id string) bool {
	var ok bool
	h.call(func() {
		l, found := h.lobbies[id]
		ok = found && !l.Started
	})
	return ok
}

// ---- Identity & Presence Registry ----

// connect registers a new player and sends the welcome snapshot
func (h *Hub) connect(id, fingerprint string, client Broadcaster) *Player {
	p := NewPlayer(id, fingerprint, client)
	p.Score = h.ledger.Lookup(fingerprint)
	h.players[id] = p

	others := make([]PlayerInfo, 0, len(h.players)-1)
	for _, o := range h.players {
		if o.ID == id {
			continue
		}
		others = append(others, o.Info())
	}

	client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ID:      p.ID,
		Name:    p.Name,
		Pos:     p.Pos,
		Score:   p.Score,
		Players: others,
		Portals: h.portalList(),
	}})
	h.broadcastAll(p.ID, Envelope{T: MsgPlayerJoin, Data: p.Info()})
	log.Printf("player %s (%s) connected", p.ID, p.Name)
	return p
}

// updateTransform refreshes liveness and rebroadcasts the transform
// as a binary msgpack frame. Unknown ids are silently ignored.
// Fire-and-forget: no sequence numbers, later frames supersede.
func (h *Hub) updateTransform(id string, pos, rot Vec3) {
	p, ok := h.players[id]
	if !ok {
		return
	}
	p.Pos = pos
	p.Rot = rot
	p.LastSeen = time.Now()

	frame, err := msgpack.Marshal(MoveFrame{ID: id, Pos: pos, Rot: rot})
	if err != nil {
		return
	}
	for _, o := range h.players {
		if o.ID == id || o.client == nil {
			continue
		}
		o.client.SendBinary(frame)
	}
}

// disconnect removes a player, cascading into whichever session owns
// them. Idempotent; also invoked by the liveness sweep.
func (h *Hub) disconnect(id string) {
	p, ok := h.players[id]
	if !ok {
		return
	}

	switch p.Membership.Kind {
	case MemberLobby:
		h.lobbyLeave(p)
	case MemberRace:
		h.raceLeave(p)
	case MemberBattle:
		h.battleLeave(p)
	}

	delete(h.players, id)
	// All sends run on the reactor and the player is now unreachable,
	// so closing here can never race a send. WritePump drains and exits.
	if c, ok := p.client.(*Client); ok {
		close(c.send)
	}
	h.broadcastAll(id, Envelope{T: MsgPlayerLeft, Data: map[string]string{"id": id}})
	log.Printf("player %s disconnected", id)
}

// broadcastAll sends to every live connection except one id
func (h *Hub) broadcastAll(exceptID string, env Envelope) {
	for _, p := range h.players {
		if p.ID == exceptID || p.client == nil {
			continue
		}
		p.client.SendJSON(env)
	}
}

// sendError reports a not-found condition to the caller only
func (h *Hub) sendError(p *Player, msg string) {
	if p.client != nil {
		p.client.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
	}
}

// notifyScore mirrors a new ledger total to a still-connected player
func (h *Hub) notifyScore(p *Player, total, awarded int) {
	p.Score = total
	if p.client != nil {
		p.client.SendJSON(Envelope{T: MsgScoreUpdate, Data: ScoreUpdateMsg{
			PlayerID: p.ID,
			Score:    total,
			Awarded:  awarded,
		}})
	}
}
