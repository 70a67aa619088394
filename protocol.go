package main

import "encoding/json"

// Client -> Server message types
const (
	MsgMove         = "move"
	MsgLobbyCreate  = "lobby_create"
	MsgLobbyJoin    = "lobby_join"
	MsgLobbyReady   = "lobby_ready"
	MsgLobbyStart   = "lobby_start"
	MsgLobbyLeave   = "lobby_leave"
	MsgCheckpoint   = "race_checkpoint"
	MsgRaceLeave    = "race_leave"
	MsgRaceWin      = "race_win"
	MsgShoot        = "battle_shoot"
	MsgHit          = "battle_hit"
	MsgRespawn      = "battle_respawn"
	MsgPickup       = "battle_pickup"
	MsgFlagPickup   = "battle_flag_pickup"
	MsgFlagSteal    = "battle_flag_steal"
	MsgFlagScore    = "battle_score"
)

// Server -> Client message types
const (
	MsgWelcome     = "welcome"
	MsgPlayerJoin  = "player_joined"
	MsgPlayerLeft  = "player_left"
	MsgError       = "error"
	MsgScoreUpdate = "score_update"

	MsgPortalOpen   = "portal_open"
	MsgPortalUpdate = "portal_update"
	MsgPortalClosed = "portal_closed"

	MsgLobbyCreated     = "lobby_created"
	MsgLobbyJoined      = "lobby_joined"
	MsgLobbyPlayerJoin  = "lobby_player_joined"
	MsgLobbyPlayerLeft  = "lobby_player_left"
	MsgLobbyPlayerReady = "lobby_player_ready"
	MsgLobbyNewHost     = "lobby_new_host"
	MsgLobbyCountdown   = "lobby_countdown"
	MsgLobbyRemoved     = "lobby_removed"

	MsgRaceStart      = "race_start"
	MsgRacePlayerJoin = "race_player_joined"
	MsgRacePlayerLeft = "race_player_left"
	MsgRaceUpdate     = "race_update"
	MsgRaceEnded      = "race_ended"

	MsgBattleStart    = "battle_start"
	MsgProjectile     = "battle_projectile"
	MsgDamage         = "battle_damage"
	MsgKill           = "battle_kill"
	MsgRespawned      = "battle_respawned"
	MsgAmmo           = "battle_ammo"
	MsgPickupTaken    = "battle_pickup_taken"
	MsgPickupRespawn  = "battle_pickup_respawn"
	MsgFlagUpdate     = "battle_flag"
	MsgTeamScore      = "battle_score_update"
	MsgPowerup        = "battle_powerup"
)

// Game types and battle variants
const (
	GameTypeRace   = "race"
	GameTypeBattle = "battle"

	BattleDeathmatch = "deathmatch"
	BattleCTF        = "ctf"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// MoveMsg is the high-rate presence update from a client
type MoveMsg struct {
	Pos Vec3 `json:"p"`
	Rot Vec3 `json:"r"`
}

// MoveFrame is the msgpack-encoded transform broadcast sent as a
// binary frame to every other live connection
type MoveFrame struct {
	ID  string `msgpack:"id"`
	Pos Vec3   `msgpack:"p"`
	Rot Vec3   `msgpack:"r"`
}

// LobbyCreateMsg opens a new portal
type LobbyCreateMsg struct {
	Spawn      Vec3   `json:"spawn"`
	GameType   string `json:"game"`
	BattleMode string `json:"mode,omitempty"`
}

// LobbyJoinMsg joins an advertised portal
type LobbyJoinMsg struct {
	LobbyID string `json:"lid"`
}

// LobbyReadyMsg toggles the caller's ready flag
type LobbyReadyMsg struct {
	Ready bool `json:"ready"`
}

// CheckpointMsg reports a race checkpoint count
type CheckpointMsg struct {
	Count int `json:"count"`
}

// ShootMsg announces a fired projectile; the server allocates ammo
// and rebroadcasts, it does not simulate flight
type ShootMsg struct {
	Pos  Vec3   `json:"p"`
	Vel  Vec3   `json:"v"`
	Kind string `json:"kind"`
}

// HitMsg reports client-detected projectile damage
type HitMsg struct {
	TargetID string `json:"tid"`
	Damage   int    `json:"dmg"`
}

// PickupMsg collects a battle pickup
type PickupMsg struct {
	PickupID string `json:"pid"`
}

// FlagStealMsg takes the flag from its current carrier
type FlagStealMsg struct {
	TargetID string `json:"tid"`
}

// PlayerInfo is the per-player snapshot in welcome and session starts
type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"n"`
	Pos   Vec3   `json:"p"`
	Rot   Vec3   `json:"r"`
	Score int    `json:"sc"`
}

// PortalInfo advertises a joinable lobby to every connection
type PortalInfo struct {
	ID       string `json:"id"`
	HostName string `json:"host"`
	Spawn    Vec3   `json:"spawn"`
	Members  int    `json:"members"`
	GameType string `json:"game"`
}

// WelcomeMsg is sent to a connection after registration
type WelcomeMsg struct {
	ID      string       `json:"id"`
	Name    string       `json:"n"`
	Pos     Vec3         `json:"p"`
	Score   int          `json:"sc"`
	Players []PlayerInfo `json:"players"`
	Portals []PortalInfo `json:"portals"`
}

// MemberInfo is the lobby roster entry
type MemberInfo struct {
	ID    string `json:"id"`
	Name  string `json:"n"`
	Host  bool   `json:"host"`
	Ready bool   `json:"ready"`
}

// LobbyStateMsg carries the full lobby roster
type LobbyStateMsg struct {
	ID      string       `json:"lid"`
	Spawn   Vec3         `json:"spawn"`
	Members []MemberInfo `json:"members"`
}

// ReadyMsg notifies the lobby of a ready toggle
type ReadyMsg struct {
	PlayerID string `json:"id"`
	Ready    bool   `json:"ready"`
}

// CountdownMsg is broadcast once per second before session start
type CountdownMsg struct {
	LobbyID string `json:"lid"`
	Seconds int    `json:"n"`
}

// RaceStartMsg migrates lobby members into a race session
type RaceStartMsg struct {
	RaceID       string       `json:"rid"`
	Seed         int64        `json:"seed"`
	Start        Vec3         `json:"start"`
	Participants []PlayerInfo `json:"players"`
}

// RaceUpdateMsg broadcasts a checkpoint report
type RaceUpdateMsg struct {
	PlayerID    string `json:"id"`
	Checkpoints int    `json:"count"`
}

// RaceResult is one ranked row of a finished race
type RaceResult struct {
	PlayerID    string `json:"id"`
	Name        string `json:"n"`
	Rank        int    `json:"rank"`
	Checkpoints int    `json:"count"`
	Finished    bool   `json:"finished"`
	Points      int    `json:"points"`
}

// RaceEndedMsg carries the full ranked result set
type RaceEndedMsg struct {
	RaceID  string       `json:"rid"`
	Results []RaceResult `json:"results"`
}

// ScoreUpdateMsg mirrors a player's accumulated ledger total
type ScoreUpdateMsg struct {
	PlayerID string `json:"id"`
	Score    int    `json:"sc"`
	Awarded  int    `json:"award"`
}

// CombatantInfo is the per-player battle snapshot
type CombatantInfo struct {
	ID    string `json:"id"`
	Name  string `json:"n"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"mhp"`
	Ammo  int    `json:"ammo"`
	Team  string `json:"team,omitempty"`
}

// PickupInfo describes a battle pickup
type PickupInfo struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Pos    Vec3   `json:"p"`
	Active bool   `json:"active"`
}

// FlagInfo describes the CTF flag and bases
type FlagInfo struct {
	Pos      Vec3   `json:"p"`
	Carrier  string `json:"carrier,omitempty"`
	RedBase  Vec3   `json:"red_base"`
	BlueBase Vec3   `json:"blue_base"`
}

// BattleStartMsg migrates lobby members into a battle session
type BattleStartMsg struct {
	BattleID   string          `json:"bid"`
	Mode       string          `json:"mode"`
	Players    []CombatantInfo `json:"players"`
	Pickups    []PickupInfo    `json:"pickups"`
	Flag       *FlagInfo       `json:"flag,omitempty"`
	Scores     map[string]int  `json:"scores"`
	TeamScores map[string]int  `json:"team_scores,omitempty"`
}

// ProjectileMsg is the rebroadcast shot descriptor
type ProjectileMsg struct {
	PlayerID string `json:"id"`
	Pos      Vec3   `json:"p"`
	Vel      Vec3   `json:"v"`
	Kind     string `json:"kind"`
}

// DamageMsg broadcasts applied damage
type DamageMsg struct {
	TargetID  string `json:"tid"`
	ShooterID string `json:"sid"`
	Damage    int    `json:"dmg"`
	HP        int    `json:"hp"`
}

// KillMsg is broadcast when a combatant dies
type KillMsg struct {
	KillerID   string `json:"kid"`
	KillerName string `json:"kn"`
	VictimID   string `json:"vid"`
	VictimName string `json:"vn"`
}

// RespawnedMsg broadcasts a combat respawn
type RespawnedMsg struct {
	PlayerID string `json:"id"`
	Pos      Vec3   `json:"p"`
	HP       int    `json:"hp"`
	Ammo     int    `json:"ammo"`
}

// AmmoMsg updates a shooter's remaining ammo
type AmmoMsg struct {
	PlayerID string `json:"id"`
	Ammo     int    `json:"ammo"`
}

// PickupTakenMsg broadcasts a collected pickup
type PickupTakenMsg struct {
	PickupID string `json:"pid"`
	PlayerID string `json:"id"`
	Kind     string `json:"kind"`
}

// PickupRespawnMsg reactivates a pickup after its delay
type PickupRespawnMsg struct {
	PickupID string `json:"pid"`
}

// FlagUpdateMsg broadcasts flag position/carrier changes
type FlagUpdateMsg struct {
	Carrier string `json:"carrier,omitempty"`
	Pos     Vec3   `json:"p"`
}

// TeamScoreMsg broadcasts CTF team scores
type TeamScoreMsg struct {
	Red  int `json:"red"`
	Blue int `json:"blue"`
}

// PowerupMsg grants a timed client-side powerup
type PowerupMsg struct {
	PlayerID string  `json:"id"`
	Seconds  float64 `json:"secs"`
}

// ErrorMsg sends an error to the caller only
type ErrorMsg struct {
	Msg string `json:"msg"`
}
