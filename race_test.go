package main

import (
	"testing"
	"time"
)

func startRace(t *testing.T, h *Hub, spawn Vec3, players ...*Player) *RaceSession {
	t.Helper()
	var r *RaceSession
	h.call(func() {
		h.launchRace(&Lobby{ID: "test-lobby", Spawn: spawn}, players)
		r = h.races[players[0].Membership.ID]
	})
	if r == nil {
		t.Fatal("race not created")
	}
	return r
}

func TestCheckpointReportsKeepLastCount(t *testing.T) {
	h := newTestHub(t)
	p, m := addPlayer(t, h, "p1", "fp1")
	r := startRace(t, h, Vec3{}, p)

	for _, count := range []int{1, 2, 2, 5} {
		h.call(func() { h.raceCheckpoint(p, count) })
	}

	h.call(func() {
		entry := r.History["p1"]
		if entry.Checkpoints != 5 {
			t.Errorf("expected last reported count 5, got %d", entry.Checkpoints)
		}
		if entry.LastCheckpoint.IsZero() {
			t.Error("last-checkpoint time not set")
		}
	})
	// the duplicate report is dropped, not rebroadcast
	if m.count(MsgRaceUpdate) != 3 {
		t.Errorf("expected 3 update broadcasts, got %d", m.count(MsgRaceUpdate))
	}
}

func TestCheckpointCountNeverDecreases(t *testing.T) {
	h := newTestHub(t)
	p, m := addPlayer(t, h, "p1", "fp1")
	r := startRace(t, h, Vec3{}, p)

	h.call(func() {
		h.raceCheckpoint(p, 5)
		h.raceCheckpoint(p, 3)
	})

	h.call(func() {
		entry := r.History["p1"]
		if entry.Checkpoints != 5 {
			t.Errorf("stale report must not regress history: had 5, now %d", entry.Checkpoints)
		}
	})
	if m.count(MsgRaceUpdate) != 1 {
		t.Errorf("stale report must not broadcast, got %d updates", m.count(MsgRaceUpdate))
	}

	// a stale report must not refresh the tie-break timestamp either
	var before, after time.Time
	h.call(func() { before = r.History["p1"].LastCheckpoint })
	time.Sleep(2 * time.Millisecond)
	h.call(func() {
		h.raceCheckpoint(p, 5)
		after = r.History["p1"].LastCheckpoint
	})
	if !after.Equal(before) {
		t.Error("resend must not move the last-checkpoint time")
	}
}

func TestRankRaceEntriesTotalOrder(t *testing.T) {
	base := time.Now()
	history := map[string]*RaceEntry{
		// finished always outranks unfinished, regardless of counts
		"slow-finisher": {Checkpoints: RaceWinSentinel, Finished: true, LastCheckpoint: base.Add(3 * time.Second)},
		"far-dnf":       {Checkpoints: 40, LastCheckpoint: base},
		"near-dnf":      {Checkpoints: 12, LastCheckpoint: base},
		// ties on count break by earlier achievement
		"tied-late":  {Checkpoints: 12, LastCheckpoint: base.Add(time.Second)},
		"tied-early": {Checkpoints: 12, LastCheckpoint: base.Add(-time.Second)},
	}

	results := rankRaceEntries(history)
	order := make([]string, len(results))
	for i, r := range results {
		order[i] = r.PlayerID
		if r.Rank != i+1 {
			t.Errorf("rank should be 1-based position, got %d at %d", r.Rank, i)
		}
	}

	want := []string{"slow-finisher", "far-dnf", "tied-early", "near-dnf", "tied-late"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestRaceWinRanksAndAwards(t *testing.T) {
	h := newTestHub(t)
	p1, m1 := addPlayer(t, h, "p1", "fp1")
	p2, m2 := addPlayer(t, h, "p2", "fp2")
	r := startRace(t, h, Vec3{}, p1, p2)

	h.call(func() {
		h.raceCheckpoint(p2, 4)
		h.raceWin(p1)
	})

	var ended RaceEndedMsg
	if !m1.last(t, MsgRaceEnded, &ended) {
		t.Fatal("no race_ended broadcast")
	}
	if len(ended.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ended.Results))
	}
	first := ended.Results[0]
	if first.PlayerID != "p1" || !first.Finished || first.Checkpoints != RaceWinSentinel {
		t.Errorf("winner should rank first with sentinel: %+v", first)
	}
	// podium 100 + participation 10 on the win path
	if first.Points != 110 {
		t.Errorf("expected 110 points for winner, got %d", first.Points)
	}
	if ended.Results[1].Points != 60 {
		t.Errorf("expected 60 points for second, got %d", ended.Results[1].Points)
	}

	var su ScoreUpdateMsg
	if !m2.last(t, MsgScoreUpdate, &su) || su.Score != 60 {
		t.Errorf("second place should be notified of mirrored score 60, got %+v", su)
	}
	if p1.Score != 110 || p2.Score != 60 {
		t.Errorf("mirrored scores wrong: %d, %d", p1.Score, p2.Score)
	}

	h.call(func() {
		if _, ok := h.races[r.ID]; ok {
			t.Error("race must be deleted after ranking")
		}
		if p1.Membership.Kind != MemberNone {
			t.Error("participants should be released")
		}
	})
}

func TestRaceAwardOnlyOnce(t *testing.T) {
	h := newTestHub(t)
	p1, _ := addPlayer(t, h, "p1", "fp1")
	p2, _ := addPlayer(t, h, "p2", "fp2")
	startRace(t, h, Vec3{}, p1, p2)

	h.call(func() {
		h.raceWin(p1)
		// both of these arrive after the session is gone
		h.raceWin(p1)
		h.raceLeave(p2)
	})

	var total int
	h.call(func() { total = h.ledger.Lookup("fp1") })
	if total != 110 {
		t.Errorf("winner must be awarded exactly once, ledger has %d", total)
	}
}

func TestRaceLeaveRetainsHistoryAndScoresOnEmpty(t *testing.T) {
	h := newTestHub(t)
	p1, _ := addPlayer(t, h, "p1", "fp1")
	p2, _ := addPlayer(t, h, "p2", "fp2")
	r := startRace(t, h, Vec3{}, p1, p2)

	h.call(func() {
		h.raceCheckpoint(p1, 7)
		h.raceCheckpoint(p2, 3)
		h.raceLeave(p1)
	})

	h.call(func() {
		entry := r.History["p1"]
		if entry == nil || entry.Active || entry.Checkpoints != 7 {
			t.Fatalf("history must be retained with active=false: %+v", entry)
		}
		if _, ok := h.races[r.ID]; !ok {
			t.Fatal("race should survive while p2 is still active")
		}
	})

	// last participant leaving scores the race over the full history
	h.call(func() { h.raceLeave(p2) })

	h.call(func() {
		if _, ok := h.races[r.ID]; ok {
			t.Error("race should be ranked and deleted when the active set empties")
		}
	})

	var total1, total2 int
	h.call(func() {
		total1 = h.ledger.Lookup("fp1")
		total2 = h.ledger.Lookup("fp2")
	})
	// no participation bonus on the empty-set path: podium only
	if total1 != 100 || total2 != 50 {
		t.Errorf("expected 100/50 awarded by fingerprint, got %d/%d", total1, total2)
	}
}

func TestCheckpointAfterLeaveIgnored(t *testing.T) {
	h := newTestHub(t)
	p1, _ := addPlayer(t, h, "p1", "fp1")
	p2, _ := addPlayer(t, h, "p2", "fp2")
	r := startRace(t, h, Vec3{}, p1, p2)

	h.call(func() {
		h.raceCheckpoint(p1, 2)
		h.raceLeave(p1)
		h.raceCheckpoint(p1, 9)
	})

	h.call(func() {
		if r.History["p1"].Checkpoints != 2 {
			t.Errorf("reports after leave must not mutate history, got %d", r.History["p1"].Checkpoints)
		}
	})
}

func TestDisconnectCascadesIntoRace(t *testing.T) {
	h := newTestHub(t)
	p1, _ := addPlayer(t, h, "p1", "fp1")
	p2, _ := addPlayer(t, h, "p2", "fp2")
	r := startRace(t, h, Vec3{}, p1, p2)

	h.call(func() { h.disconnect("p1") })

	h.call(func() {
		if r.Active["p1"] {
			t.Error("disconnect should remove from active set")
		}
		if r.History["p1"] == nil {
			t.Error("disconnect must keep the history entry")
		}
	})
}
