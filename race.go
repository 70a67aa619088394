package main

import (
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// RaceStartOffsetX is added to the portal spawn to place the grid
	RaceStartOffsetX = 100.0
	// RaceWinSentinel marks a history entry as having crossed the line
	RaceWinSentinel = 9999

	racePointsFirst  = 100
	racePointsSecond = 50
	racePointsThird  = 25
	racePointsEntry  = 10 // participation, win-triggered path only
)

// RaceEntry is the retained record of one participant, kept even
// after disconnect so the race can still be scored. Checkpoint counts
// never decrease.
type RaceEntry struct {
	Name           string
	Fingerprint    string
	Checkpoints    int
	Finished       bool
	Active         bool
	LastCheckpoint time.Time
}

// RaceSession is a running checkpoint race. All participants derive
// an identical checkpoint sequence from the shared seed; the server
// tracks only counts.
type RaceSession struct {
	ID        string
	Seed      int64
	Start     Vec3
	Active    map[string]bool
	History   map[string]*RaceEntry
	CreatedAt time.Time
}

// launchRace migrates lobby members into a new race session
func (h *Hub) launchRace(l *Lobby, players []*Player) {
	r := &RaceSession{
		ID:        uuid.NewString(),
		Seed:      randSeed(),
		Start:     l.Spawn.Add(Vec3{X: RaceStartOffsetX}),
		Active:    make(map[string]bool),
		History:   make(map[string]*RaceEntry),
		CreatedAt: time.Now(),
	}
	h.races[r.ID] = r

	participants := make([]PlayerInfo, 0, len(players))
	for _, p := range players {
		r.Active[p.ID] = true
		r.History[p.ID] = &RaceEntry{
			Name:        p.Name,
			Fingerprint: p.Fingerprint,
			Active:      true,
		}
		p.Membership = Membership{Kind: MemberRace, ID: r.ID}
		h.rooms.Join(r.ID, p.client)
		participants = append(participants, p.Info())
	}

	start := Envelope{T: MsgRaceStart, Data: RaceStartMsg{
		RaceID:       r.ID,
		Seed:         r.Seed,
		Start:        r.Start,
		Participants: participants,
	}}
	h.rooms.Broadcast(r.ID, start)
	for _, p := range players {
		h.rooms.Broadcast(r.ID, Envelope{T: MsgRacePlayerJoin, Data: p.Info()})
	}
	log.Printf("race %s started with %d players (seed %d)", r.ID, len(players), r.Seed)
}

// raceCheckpoint records a reported count. No validation that the
// count advanced by exactly one — client resend and skip are
// tolerated in this casual race. Counts never decrease: a stale or
// duplicate report is dropped without touching the history entry.
func (h *Hub) raceCheckpoint(p *Player, count int) {
	if p.Membership.Kind != MemberRace {
		return
	}
	r, ok := h.races[p.Membership.ID]
	if !ok || !r.Active[p.ID] {
		return
	}
	entry := r.History[p.ID]
	if count <= entry.Checkpoints {
		return
	}
	entry.Checkpoints = count
	entry.LastCheckpoint = time.Now()
	h.rooms.Broadcast(r.ID, Envelope{T: MsgRaceUpdate, Data: RaceUpdateMsg{
		PlayerID:    p.ID,
		Checkpoints: count,
	}})
}

// raceLeave drops a player from the active set but retains their
// history entry. An empty active set scores the race over the full
// history — every participant may have disconnected before finishing.
func (h *Hub) raceLeave(p *Player) {
	if p.Membership.Kind != MemberRace {
		return
	}
	r, ok := h.races[p.Membership.ID]
	if !ok {
		p.Membership = Membership{}
		return
	}

	delete(r.Active, p.ID)
	if entry, ok := r.History[p.ID]; ok {
		entry.Active = false
	}
	h.rooms.Leave(r.ID, p.client)
	p.Membership = Membership{}
	h.rooms.Broadcast(r.ID, Envelope{T: MsgRacePlayerLeft, Data: map[string]string{"id": p.ID}})

	if len(r.Active) == 0 {
		h.finishRace(r, false)
	}
}

// raceWin forces the caller's entry to the sentinel and ranks the
// whole session immediately, win-or-not for everyone else
func (h *Hub) raceWin(p *Player) {
	if p.Membership.Kind != MemberRace {
		return
	}
	r, ok := h.races[p.Membership.ID]
	if !ok || !r.Active[p.ID] {
		return
	}
	entry := r.History[p.ID]
	entry.Checkpoints = RaceWinSentinel
	entry.Finished = true
	entry.LastCheckpoint = time.Now()
	h.finishRace(r, true)
}

// rankRaceEntries produces the designed total order: finished first,
// then checkpoint count descending, then earlier last-checkpoint time
func rankRaceEntries(history map[string]*RaceEntry) []RaceResult {
	ids := make([]string, 0, len(history))
	for id := range history {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := history[ids[i]], history[ids[j]]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Checkpoints != b.Checkpoints {
			return a.Checkpoints > b.Checkpoints
		}
		return a.LastCheckpoint.Before(b.LastCheckpoint)
	})

	results := make([]RaceResult, 0, len(ids))
	for i, id := range ids {
		e := history[id]
		results = append(results, RaceResult{
			PlayerID:    id,
			Name:        e.Name,
			Rank:        i + 1,
			Checkpoints: e.Checkpoints,
			Finished:    e.Finished,
		})
	}
	return results
}

// racePoints is the fixed podium schedule
func racePoints(rank int) int {
	switch rank {
	case 1:
		return racePointsFirst
	case 2:
		return racePointsSecond
	case 3:
		return racePointsThird
	}
	return 0
}

// finishRace ranks the full history, awards the ledger, notifies
// still-connected players, and deletes the session. Deleting first
// guards against a second ranking ever running for the same race.
func (h *Hub) finishRace(r *RaceSession, winTriggered bool) {
	if _, ok := h.races[r.ID]; !ok {
		return
	}
	delete(h.races, r.ID)

	results := rankRaceEntries(r.History)
	for i := range results {
		res := &results[i]
		entry := r.History[res.PlayerID]

		res.Points = racePoints(res.Rank)
		if winTriggered {
			res.Points += racePointsEntry
		}

		if res.Points > 0 {
			newTotal := h.ledger.Award(entry.Fingerprint, entry.Name, res.Points)
			if p, ok := h.players[res.PlayerID]; ok {
				h.notifyScore(p, newTotal, res.Points)
			}
		}
		if h.ledger.db != nil {
			if err := h.ledger.db.RecordRaceResult(r.ID, entry.Fingerprint, entry.Name,
				res.Rank, entry.Checkpoints, entry.Finished, res.Points); err != nil {
				log.Printf("race result write error: %v", err)
			}
		}
	}

	h.rooms.Broadcast(r.ID, Envelope{T: MsgRaceEnded, Data: RaceEndedMsg{
		RaceID:  r.ID,
		Results: results,
	}})

	// Release still-connected participants back to free flight
	for id := range r.Active {
		if p, ok := h.players[id]; ok {
			p.Membership = Membership{}
			h.rooms.Leave(r.ID, p.client)
		}
	}
	h.rooms.Close(r.ID)
	log.Printf("race %s ended (%d entries)", r.ID, len(results))
}
