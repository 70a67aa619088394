package main

import "time"

// DefaultSpawn is where every new pilot appears
var DefaultSpawn = Vec3{X: 0, Y: 350, Z: 0}

// MembershipKind says which engine currently owns a player
type MembershipKind int

const (
	MemberNone MembershipKind = iota
	MemberLobby
	MemberRace
	MemberBattle
)

// Membership is a single nullable session reference — a player belongs
// to at most one lobby/race/battle at a time
type Membership struct {
	Kind MembershipKind
	ID   string
}

// Player is the presence record for one connection
type Player struct {
	ID          string
	Name        string
	Fingerprint string
	Pos         Vec3
	Rot         Vec3
	LastSeen    time.Time
	Membership  Membership
	Score       int // mirrored ledger total

	client Broadcaster
}

// NewPlayer creates a registered player at the default spawn
func NewPlayer(id, fingerprint string, client Broadcaster) *Player {
	return &Player{
		ID:          id,
		Name:        GenerateCallsign(),
		Fingerprint: fingerprint,
		Pos:         DefaultSpawn,
		LastSeen:    time.Now(),
		client:      client,
	}
}

// Info converts to the protocol snapshot
func (p *Player) Info() PlayerInfo {
	return PlayerInfo{
		ID:    p.ID,
		Name:  p.Name,
		Pos:   p.Pos,
		Rot:   p.Rot,
		Score: p.Score,
	}
}

var callsignPrefixes = []string{
	"Swift", "Crimson", "Turbo", "Silent", "Iron", "Lucky",
	"Rogue", "Nova", "Solar", "Ghost", "Azure", "Storm",
}

var callsignBirds = []string{
	"Falcon", "Condor", "Viper", "Raptor", "Kestrel", "Albatross",
	"Comet", "Zephyr", "Mustang", "Harrier", "Osprey", "Swallow",
}

// GenerateCallsign creates a display name like "SwiftFalcon_3f"
func GenerateCallsign() string {
	prefix := callsignPrefixes[randIntn(len(callsignPrefixes))]
	bird := callsignBirds[randIntn(len(callsignBirds))]
	return prefix + bird + "_" + GenerateID(1)
}
