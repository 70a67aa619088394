package main

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// LobbyMember is one roster entry, kept in insertion order so host
// migration is deterministic
type LobbyMember struct {
	ID    string
	Name  string
	Host  bool
	Ready bool
}

// Lobby is a pre-game grouping advertised as a joinable portal.
// Exactly one member holds the host flag while the lobby exists.
type Lobby struct {
	ID         string
	HostID     string
	Members    []*LobbyMember
	Spawn      Vec3
	CreatedAt  time.Time
	GameType   string
	BattleMode string
	Started    bool // countdown running or transitioned; no longer joinable
}

func (l *Lobby) memberInfos() []MemberInfo {
	infos := make([]MemberInfo, 0, len(l.Members))
	for _, m := range l.Members {
		infos = append(infos, MemberInfo{ID: m.ID, Name: m.Name, Host: m.Host, Ready: m.Ready})
	}
	return infos
}

func (l *Lobby) removeMember(id string) {
	for i, m := range l.Members {
		if m.ID == id {
			l.Members = append(l.Members[:i], l.Members[i+1:]...)
			return
		}
	}
}

func (l *Lobby) findMember(id string) *LobbyMember {
	for _, m := range l.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (h *Hub) portalInfo(l *Lobby) PortalInfo {
	hostName := ""
	if m := l.findMember(l.HostID); m != nil {
		hostName = m.Name
	}
	return PortalInfo{
		ID:       l.ID,
		HostName: hostName,
		Spawn:    l.Spawn,
		Members:  len(l.Members),
		GameType: l.GameType,
	}
}

// portalList returns every still-joinable lobby advertisement
func (h *Hub) portalList() []PortalInfo {
	portals := make([]PortalInfo, 0, len(h.lobbies))
	for _, l := range h.lobbies {
		if l.Started {
			continue
		}
		portals = append(portals, h.portalInfo(l))
	}
	return portals
}

// lobbyCreate opens a portal with the caller as sole member and host.
// Silent no-op if the player already belongs to a lobby or session.
func (h *Hub) lobbyCreate(p *Player, spawn Vec3, gameType, battleMode string) {
	if p.Membership.Kind != MemberNone {
		return
	}
	if gameType != GameTypeBattle {
		gameType = GameTypeRace
	}
	if gameType == GameTypeBattle && battleMode != BattleCTF {
		battleMode = BattleDeathmatch
	}

	l := &Lobby{
		ID:         uuid.NewString(),
		HostID:     p.ID,
		Members:    []*LobbyMember{{ID: p.ID, Name: p.Name, Host: true}},
		Spawn:      spawn,
		CreatedAt:  time.Now(),
		GameType:   gameType,
		BattleMode: battleMode,
	}
	h.lobbies[l.ID] = l
	p.Membership = Membership{Kind: MemberLobby, ID: l.ID}
	h.rooms.Join(l.ID, p.client)

	if p.client != nil {
		p.client.SendJSON(Envelope{T: MsgLobbyCreated, Data: LobbyStateMsg{
			ID:      l.ID,
			Spawn:   l.Spawn,
			Members: l.memberInfos(),
		}})
	}
	h.broadcastAll(p.ID, Envelope{T: MsgPortalOpen, Data: h.portalInfo(l)})
	log.Printf("lobby %s created by %s (%s)", l.ID, p.Name, gameType)
}

// lobbyJoin adds the caller as a non-host, not-ready member
func (h *Hub) lobbyJoin(p *Player, lobbyID string) {
	if p.Membership.Kind != MemberNone {
		return
	}
	l, ok := h.lobbies[lobbyID]
	if !ok {
		h.sendError(p, "portal not found")
		return
	}
	if l.Started {
		h.sendError(p, "game already started")
		return
	}

	l.Members = append(l.Members, &LobbyMember{ID: p.ID, Name: p.Name})
	p.Membership = Membership{Kind: MemberLobby, ID: l.ID}

	h.rooms.Broadcast(l.ID, Envelope{T: MsgLobbyPlayerJoin, Data: MemberInfo{ID: p.ID, Name: p.Name}})
	h.rooms.Join(l.ID, p.client)

	if p.client != nil {
		p.client.SendJSON(Envelope{T: MsgLobbyJoined, Data: LobbyStateMsg{
			ID:      l.ID,
			Spawn:   l.Spawn,
			Members: l.memberInfos(),
		}})
	}
	h.broadcastAll("", Envelope{T: MsgPortalUpdate, Data: h.portalInfo(l)})
}

// lobbySetReady toggles only the caller's flag
func (h *Hub) lobbySetReady(p *Player, ready bool) {
	if p.Membership.Kind != MemberLobby {
		return
	}
	l, ok := h.lobbies[p.Membership.ID]
	if !ok {
		return
	}
	m := l.findMember(p.ID)
	if m == nil {
		return
	}
	m.Ready = ready
	h.rooms.Broadcast(l.ID, Envelope{T: MsgLobbyPlayerReady, Data: ReadyMsg{PlayerID: p.ID, Ready: ready}})
}

// lobbyStart begins the countdown. Only the host may trigger it; the
// host's own readiness is not checked — the session starts with
// whatever roster is present.
func (h *Hub) lobbyStart(p *Player) {
	if p.Membership.Kind != MemberLobby {
		return
	}
	l, ok := h.lobbies[p.Membership.ID]
	if !ok || l.HostID != p.ID || l.Started {
		return
	}
	l.Started = true
	h.countdownTick(l.ID, h.cfg.CountdownTicks)
}

// countdownTick broadcasts the countdown once per second and launches
// at zero. Each tick re-validates the lobby still exists — it may
// have emptied out between scheduling and firing.
func (h *Hub) countdownTick(lobbyID string, n int) {
	l, ok := h.lobbies[lobbyID]
	if !ok {
		return
	}
	if n <= 0 {
		h.launchLobby(l)
		return
	}
	h.rooms.Broadcast(l.ID, Envelope{T: MsgLobbyCountdown, Data: CountdownMsg{LobbyID: l.ID, Seconds: n}})
	h.schedule(h.cfg.CountdownInterval, func() { h.countdownTick(lobbyID, n-1) })
}

// launchLobby migrates every present member into a new race or battle
// session and revokes the portal. Runs as a single handler invocation.
func (h *Hub) launchLobby(l *Lobby) {
	delete(h.lobbies, l.ID)
	h.rooms.Close(l.ID)
	h.broadcastAll("", Envelope{T: MsgPortalClosed, Data: map[string]string{"id": l.ID}})

	players := make([]*Player, 0, len(l.Members))
	for _, m := range l.Members {
		if p, ok := h.players[m.ID]; ok {
			players = append(players, p)
		}
	}
	if len(players) == 0 {
		return
	}

	if l.GameType == GameTypeBattle {
		h.launchBattle(l, players)
	} else {
		h.launchRace(l, players)
	}
}

// lobbyLeave removes the member; transfers host to the next member in
// insertion order, or deletes the lobby when it empties
func (h *Hub) lobbyLeave(p *Player) {
	if p.Membership.Kind != MemberLobby {
		return
	}
	l, ok := h.lobbies[p.Membership.ID]
	if !ok {
		p.Membership = Membership{}
		return
	}

	wasHost := l.HostID == p.ID
	l.removeMember(p.ID)
	h.rooms.Leave(l.ID, p.client)
	p.Membership = Membership{}

	if len(l.Members) == 0 {
		delete(h.lobbies, l.ID)
		h.rooms.Close(l.ID)
		h.broadcastAll("", Envelope{T: MsgPortalClosed, Data: map[string]string{"id": l.ID}})
		return
	}

	h.rooms.Broadcast(l.ID, Envelope{T: MsgLobbyPlayerLeft, Data: map[string]string{"id": p.ID}})
	if wasHost {
		next := l.Members[0]
		next.Host = true
		l.HostID = next.ID
		h.rooms.Broadcast(l.ID, Envelope{T: MsgLobbyNewHost, Data: MemberInfo{
			ID: next.ID, Name: next.Name, Host: true, Ready: next.Ready,
		}})
	}
	h.broadcastAll("", Envelope{T: MsgPortalUpdate, Data: h.portalInfo(l)})
}

// removeLobby force-deletes an over-age lobby, notifying and freeing
// any remaining members
func (h *Hub) removeLobby(l *Lobby) {
	h.rooms.Broadcast(l.ID, Envelope{T: MsgLobbyRemoved, Data: map[string]string{"id": l.ID}})
	for _, m := range l.Members {
		if p, ok := h.players[m.ID]; ok {
			p.Membership = Membership{}
			h.rooms.Leave(l.ID, p.client)
		}
	}
	delete(h.lobbies, l.ID)
	h.rooms.Close(l.ID)
	h.broadcastAll("", Envelope{T: MsgPortalClosed, Data: map[string]string{"id": l.ID}})
	log.Printf("lobby %s removed", l.ID)
}
