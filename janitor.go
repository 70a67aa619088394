package main

import (
	"log"
	"time"
)

// StartJanitor runs the periodic sweep until the hub stops. The sweep
// itself executes on the reactor, so it sees a consistent view and
// never races request handling.
func (h *Hub) StartJanitor() {
	go func() {
		ticker := time.NewTicker(h.cfg.JanitorPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.post(h.sweep)
			case <-h.stop:
				return
			}
		}
	}()
}

// sweep expires quiet players, stale lobbies, and empty sessions.
// A connection silent past the quiet interval is treated identically
// to an explicit disconnect — same cascade.
func (h *Hub) sweep() {
	now := time.Now()

	for id, p := range h.players {
		if now.Sub(p.LastSeen) > h.cfg.QuietInterval {
			log.Printf("player %s timed out", id)
			if c, ok := p.client.(*Client); ok {
				c.Close()
			}
			h.disconnect(id)
		}
	}

	for _, l := range h.lobbies {
		if len(l.Members) == 0 || (!l.Started && now.Sub(l.CreatedAt) > h.cfg.LobbyMaxAge) {
			h.removeLobby(l)
		}
	}

	// Backstop: sessions normally delete themselves when their player
	// set empties via the leave cascade
	for _, r := range h.races {
		if len(r.Active) == 0 {
			h.finishRace(r, false)
		}
	}
	for id, b := range h.battles {
		if len(b.Players) == 0 {
			delete(h.battles, id)
			h.rooms.Close(id)
		}
	}
}
