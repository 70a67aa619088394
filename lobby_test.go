package main

import (
	"testing"
	"time"
)

func createLobby(t *testing.T, h *Hub, p *Player, spawn Vec3, gameType, mode string) string {
	t.Helper()
	h.call(func() { h.lobbyCreate(p, spawn, gameType, mode) })
	if p.Membership.Kind != MemberLobby {
		t.Fatalf("player %s not in a lobby after create", p.ID)
	}
	return p.Membership.ID
}

func TestLobbyCreateAdvertisesPortal(t *testing.T) {
	h := newTestHub(t)
	host, mHost := addPlayer(t, h, "p1", "fp1")
	_, mOther := addPlayer(t, h, "p2", "fp2")

	lid := createLobby(t, h, host, Vec3{Y: 350}, GameTypeRace, "")

	var portal PortalInfo
	if !mOther.last(t, MsgPortalOpen, &portal) {
		t.Fatal("other player saw no portal advertisement")
	}
	if portal.ID != lid || portal.Members != 1 || portal.HostName != host.Name {
		t.Errorf("unexpected portal: %+v", portal)
	}

	var state LobbyStateMsg
	if !mHost.last(t, MsgLobbyCreated, &state) {
		t.Fatal("host got no lobby_created")
	}
	if len(state.Members) != 1 || !state.Members[0].Host {
		t.Errorf("host should be sole host member: %+v", state.Members)
	}
}

func TestLobbyCreateWhileMemberIgnored(t *testing.T) {
	h := newTestHub(t)
	p, _ := addPlayer(t, h, "p1", "fp1")
	lid := createLobby(t, h, p, Vec3{}, GameTypeRace, "")

	h.call(func() { h.lobbyCreate(p, Vec3{}, GameTypeRace, "") })

	if p.Membership.ID != lid {
		t.Error("second create should be a silent no-op")
	}
	var n int
	h.call(func() { n = len(h.lobbies) })
	if n != 1 {
		t.Errorf("expected 1 lobby, got %d", n)
	}
}

func TestLobbyJoinErrors(t *testing.T) {
	h := newTestHub(t)
	p, m := addPlayer(t, h, "p1", "fp1")

	h.call(func() { h.lobbyJoin(p, "nope") })
	var e ErrorMsg
	if !m.last(t, MsgError, &e) || e.Msg != "portal not found" {
		t.Errorf("expected portal not found, got %+v", e)
	}

	host, _ := addPlayer(t, h, "p2", "fp2")
	lid := createLobby(t, h, host, Vec3{}, GameTypeRace, "")
	h.call(func() {
		h.lobbies[lid].Started = true
		h.lobbyJoin(p, lid)
	})
	if !m.last(t, MsgError, &e) || e.Msg != "game already started" {
		t.Errorf("expected already started, got %+v", e)
	}
	if p.Membership.Kind != MemberNone {
		t.Error("join should have failed")
	}
}

func TestLobbyJoinNotifiesMembers(t *testing.T) {
	h := newTestHub(t)
	host, mHost := addPlayer(t, h, "p1", "fp1")
	joiner, mJoiner := addPlayer(t, h, "p2", "fp2")

	lid := createLobby(t, h, host, Vec3{}, GameTypeRace, "")
	h.call(func() { h.lobbyJoin(joiner, lid) })

	var member MemberInfo
	if !mHost.last(t, MsgLobbyPlayerJoin, &member) || member.ID != "p2" {
		t.Errorf("host should see joiner, got %+v", member)
	}
	var state LobbyStateMsg
	if !mJoiner.last(t, MsgLobbyJoined, &state) || len(state.Members) != 2 {
		t.Errorf("joiner should get full roster, got %+v", state)
	}
	if state.Members[1].Host || state.Members[1].Ready {
		t.Error("joiner must start as non-host, not ready")
	}

	var portal PortalInfo
	if !mHost.last(t, MsgPortalUpdate, &portal) || portal.Members != 2 {
		t.Errorf("portal advertisement should refresh, got %+v", portal)
	}
}

func TestLobbyReadyTogglesOnlyCaller(t *testing.T) {
	h := newTestHub(t)
	host, _ := addPlayer(t, h, "p1", "fp1")
	joiner, mJoiner := addPlayer(t, h, "p2", "fp2")
	lid := createLobby(t, h, host, Vec3{}, GameTypeRace, "")
	h.call(func() { h.lobbyJoin(joiner, lid) })

	h.call(func() { h.lobbySetReady(joiner, true) })

	var ready ReadyMsg
	if !mJoiner.last(t, MsgLobbyPlayerReady, &ready) || ready.PlayerID != "p2" || !ready.Ready {
		t.Errorf("unexpected ready notification: %+v", ready)
	}
	h.call(func() {
		l := h.lobbies[lid]
		if l.findMember("p1").Ready {
			t.Error("host ready flag must be untouched")
		}
		if !l.findMember("p2").Ready {
			t.Error("joiner ready flag not set")
		}
	})
}

func TestHostMigrationPicksNextInInsertionOrder(t *testing.T) {
	h := newTestHub(t)
	host, _ := addPlayer(t, h, "p1", "fp1")
	second, mSecond := addPlayer(t, h, "p2", "fp2")
	third, _ := addPlayer(t, h, "p3", "fp3")

	lid := createLobby(t, h, host, Vec3{}, GameTypeRace, "")
	h.call(func() {
		h.lobbyJoin(second, lid)
		h.lobbyJoin(third, lid)
	})

	h.call(func() { h.lobbyLeave(host) })

	h.call(func() {
		l := h.lobbies[lid]
		if l.HostID != "p2" {
			t.Errorf("host should migrate to p2 (insertion order), got %s", l.HostID)
		}
		if !l.findMember("p2").Host {
			t.Error("new host flag not set")
		}
	})
	var newHost MemberInfo
	if !mSecond.last(t, MsgLobbyNewHost, &newHost) || newHost.ID != "p2" {
		t.Errorf("members not notified of new host: %+v", newHost)
	}
}

func TestLobbyLeaveLastMemberRemoves(t *testing.T) {
	h := newTestHub(t)
	host, _ := addPlayer(t, h, "p1", "fp1")
	_, mOther := addPlayer(t, h, "p2", "fp2")
	lid := createLobby(t, h, host, Vec3{}, GameTypeRace, "")

	h.call(func() { h.lobbyLeave(host) })

	h.call(func() {
		if _, ok := h.lobbies[lid]; ok {
			t.Error("empty lobby should be deleted")
		}
	})
	if mOther.count(MsgPortalClosed) != 1 {
		t.Error("portal advertisement should be revoked")
	}
	if host.Membership.Kind != MemberNone {
		t.Error("membership should be cleared")
	}
}

func TestLobbyStartOnlyHost(t *testing.T) {
	h := newTestHub(t)
	host, _ := addPlayer(t, h, "p1", "fp1")
	joiner, _ := addPlayer(t, h, "p2", "fp2")
	lid := createLobby(t, h, host, Vec3{}, GameTypeRace, "")
	h.call(func() { h.lobbyJoin(joiner, lid) })

	h.call(func() { h.lobbyStart(joiner) })
	h.call(func() {
		if h.lobbies[lid].Started {
			t.Error("non-host start must fail silently")
		}
	})
}

func TestCountdownTransitionsIntoRace(t *testing.T) {
	h := newTestHub(t)
	host, mHost := addPlayer(t, h, "p1", "fp1")
	joiner, mJoiner := addPlayer(t, h, "p2", "fp2")

	spawn := Vec3{X: 0, Y: 350, Z: 0}
	lid := createLobby(t, h, host, spawn, GameTypeRace, "")
	h.call(func() { h.lobbyJoin(joiner, lid) })
	h.call(func() { h.lobbyStart(host) })

	waitFor(t, func() bool {
		return mHost.count(MsgRaceStart) > 0 && mJoiner.count(MsgRaceStart) > 0
	}, "race start on both members")

	if n := mHost.count(MsgLobbyCountdown); n != 3 {
		t.Errorf("expected 3 countdown broadcasts, got %d", n)
	}

	var startHost, startJoiner RaceStartMsg
	mHost.last(t, MsgRaceStart, &startHost)
	mJoiner.last(t, MsgRaceStart, &startJoiner)

	if startHost.Seed != startJoiner.Seed {
		t.Errorf("participants must share the seed: %d vs %d", startHost.Seed, startJoiner.Seed)
	}
	want := Vec3{X: 100, Y: 350, Z: 0}
	if startHost.Start != want {
		t.Errorf("expected start %+v, got %+v", want, startHost.Start)
	}
	if len(startHost.Participants) != 2 {
		t.Errorf("expected 2 participants, got %d", len(startHost.Participants))
	}

	h.call(func() {
		if _, ok := h.lobbies[lid]; ok {
			t.Error("lobby should be deleted after transition")
		}
		if host.Membership.Kind != MemberRace || joiner.Membership.Kind != MemberRace {
			t.Error("members should have migrated into the race")
		}
	})
	if mHost.count(MsgPortalClosed) != 1 {
		t.Error("portal should be revoked on start")
	}
}

func TestJoinDuringCountdownRejected(t *testing.T) {
	h := newTestHub(t)
	host, _ := addPlayer(t, h, "p1", "fp1")
	late, mLate := addPlayer(t, h, "p2", "fp2")

	cfg := fastConfig()
	cfg.CountdownInterval = time.Second // long enough to join mid-count
	h.call(func() { h.cfg = cfg })

	lid := createLobby(t, h, host, Vec3{}, GameTypeRace, "")
	h.call(func() { h.lobbyStart(host) })
	h.call(func() { h.lobbyJoin(late, lid) })

	var e ErrorMsg
	if !mLate.last(t, MsgError, &e) || e.Msg != "game already started" {
		t.Errorf("expected already-started error, got %+v", e)
	}
}
