package main

import (
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	battleMaxHP      = 100
	battleMaxAmmo    = 20
	battlePickupN    = 10
	pickupHealAmount = 50
	pickupAmmoAmount = 10
	powerupSeconds   = 10.0

	flagPickupRadius = 60.0
	flagStealRadius  = 80.0
	flagGoalRadius   = 90.0
	flagHoverHeight  = 150.0
	baseOffsetX      = 400.0

	respawnSpreadXZ = 300.0
	respawnLiftY    = 120.0
)

// Pickup kinds
const (
	PickupHealth  = "health"
	PickupAmmo    = "ammo"
	PickupPowerup = "powerup"
)

// Team names (CTF)
const (
	TeamRed  = "red"
	TeamBlue = "blue"
)

var pickupKinds = []string{PickupHealth, PickupAmmo, PickupPowerup}

// Combatant is the per-player combat state. A dead combatant neither
// deals nor receives damage until respawned.
type Combatant struct {
	ID          string
	Name        string
	HP          int
	MaxHP       int
	Dead        bool
	Ammo        int
	Kills       int
	Deaths      int
	Team        string // empty in deathmatch
	LastRespawn time.Time
}

// BattlePickup is a collectible; inactive until its respawn timer fires
type BattlePickup struct {
	ID     string
	Kind   string
	Pos    Vec3
	Active bool
}

// Flag is the CTF objective. At most one carrier at any time.
type Flag struct {
	Pos      Vec3
	Home     Vec3
	Carrier  string
	RedBase  Vec3
	BlueBase Vec3
}

// BattleSession is a running deathmatch or capture-the-flag instance
type BattleSession struct {
	ID         string
	Mode       string
	Origin     Vec3 // lobby spawn the arena is built around
	Players    map[string]*Combatant
	Pickups    map[string]*BattlePickup
	Flag       *Flag // nil unless CTF
	TeamScores map[string]int
	Scores     map[string]int // deathmatch per-player
	CreatedAt  time.Time
}

func (b *BattleSession) combatantInfos() []CombatantInfo {
	infos := make([]CombatantInfo, 0, len(b.Players))
	for _, c := range b.Players {
		infos = append(infos, CombatantInfo{
			ID: c.ID, Name: c.Name, HP: c.HP, MaxHP: c.MaxHP, Ammo: c.Ammo, Team: c.Team,
		})
	}
	return infos
}

func (b *BattleSession) pickupInfos() []PickupInfo {
	infos := make([]PickupInfo, 0, len(b.Pickups))
	for _, pk := range b.Pickups {
		infos = append(infos, PickupInfo{ID: pk.ID, Kind: pk.Kind, Pos: pk.Pos, Active: pk.Active})
	}
	return infos
}

func (b *BattleSession) flagInfo() *FlagInfo {
	if b.Flag == nil {
		return nil
	}
	return &FlagInfo{
		Pos:      b.Flag.Pos,
		Carrier:  b.Flag.Carrier,
		RedBase:  b.Flag.RedBase,
		BlueBase: b.Flag.BlueBase,
	}
}

// launchBattle migrates lobby members into a new battle session.
// CTF splits members alternately into red/blue by insertion order.
func (h *Hub) launchBattle(l *Lobby, players []*Player) {
	b := &BattleSession{
		ID:         uuid.NewString(),
		Mode:       l.BattleMode,
		Origin:     l.Spawn,
		Players:    make(map[string]*Combatant),
		Pickups:    make(map[string]*BattlePickup),
		TeamScores: make(map[string]int),
		Scores:     make(map[string]int),
		CreatedAt:  time.Now(),
	}
	h.battles[b.ID] = b

	for i, p := range players {
		c := &Combatant{
			ID:    p.ID,
			Name:  p.Name,
			HP:    battleMaxHP,
			MaxHP: battleMaxHP,
			Ammo:  battleMaxAmmo,
		}
		if b.Mode == BattleCTF {
			if i%2 == 0 {
				c.Team = TeamRed
			} else {
				c.Team = TeamBlue
			}
		}
		b.Players[p.ID] = c
		b.Scores[p.ID] = 0
		p.Membership = Membership{Kind: MemberBattle, ID: b.ID}
		h.rooms.Join(b.ID, p.client)
	}

	for i := 0; i < battlePickupN; i++ {
		pk := &BattlePickup{
			ID:   GenerateID(4),
			Kind: pickupKinds[randIntn(len(pickupKinds))],
			Pos: l.Spawn.Add(Vec3{
				X: randRange(-respawnSpreadXZ, respawnSpreadXZ),
				Y: randRange(-50, 50),
				Z: randRange(-respawnSpreadXZ, respawnSpreadXZ),
			}),
			Active: true,
		}
		b.Pickups[pk.ID] = pk
	}

	if b.Mode == BattleCTF {
		home := l.Spawn.Add(Vec3{Y: flagHoverHeight})
		b.Flag = &Flag{
			Pos:      home,
			Home:     home,
			RedBase:  l.Spawn.Add(Vec3{X: -baseOffsetX}),
			BlueBase: l.Spawn.Add(Vec3{X: baseOffsetX}),
		}
		b.TeamScores[TeamRed] = 0
		b.TeamScores[TeamBlue] = 0
	}

	h.rooms.Broadcast(b.ID, Envelope{T: MsgBattleStart, Data: BattleStartMsg{
		BattleID:   b.ID,
		Mode:       b.Mode,
		Players:    b.combatantInfos(),
		Pickups:    b.pickupInfos(),
		Flag:       b.flagInfo(),
		Scores:     b.Scores,
		TeamScores: b.TeamScores,
	}})
	log.Printf("battle %s started (%s, %d players)", b.ID, b.Mode, len(players))
}

// combatant resolves the caller's session and combat record
func (h *Hub) combatant(p *Player) (*BattleSession, *Combatant) {
	if p.Membership.Kind != MemberBattle {
		return nil, nil
	}
	b, ok := h.battles[p.Membership.ID]
	if !ok {
		return nil, nil
	}
	c, ok := b.Players[p.ID]
	if !ok {
		return nil, nil
	}
	return b, c
}

// battleShoot allocates ammo and rebroadcasts the shot descriptor.
// The server does not simulate projectile flight.
func (h *Hub) battleShoot(p *Player, pos, vel Vec3, kind string) {
	b, c := h.combatant(p)
	if b == nil || c.Dead || c.Ammo <= 0 {
		return
	}
	c.Ammo--
	h.rooms.Broadcast(b.ID, Envelope{T: MsgProjectile, Data: ProjectileMsg{
		PlayerID: p.ID,
		Pos:      pos,
		Vel:      vel,
		Kind:     kind,
	}})
	if p.client != nil {
		p.client.SendJSON(Envelope{T: MsgAmmo, Data: AmmoMsg{PlayerID: p.ID, Ammo: c.Ammo}})
	}
}

// battleHit applies client-reported damage. HP clamps at zero; a kill
// updates counters and scoring, and drops the flag if the victim
// carried it — the only involuntary flag transfer.
func (h *Hub) battleHit(p *Player, targetID string, damage int) {
	b, shooter := h.combatant(p)
	if b == nil || shooter.Dead {
		return
	}
	target, ok := b.Players[targetID]
	if !ok || target.Dead {
		return
	}
	if damage < 0 {
		return
	}

	target.HP = ClampInt(target.HP-damage, 0, target.MaxHP)
	h.rooms.Broadcast(b.ID, Envelope{T: MsgDamage, Data: DamageMsg{
		TargetID:  targetID,
		ShooterID: p.ID,
		Damage:    damage,
		HP:        target.HP,
	}})

	if target.HP > 0 {
		return
	}
	target.Dead = true
	shooter.Kills++
	target.Deaths++
	if b.Mode != BattleCTF {
		b.Scores[p.ID]++
	}
	h.rooms.Broadcast(b.ID, Envelope{T: MsgKill, Data: KillMsg{
		KillerID:   p.ID,
		KillerName: shooter.Name,
		VictimID:   targetID,
		VictimName: target.Name,
	}})

	if b.Flag != nil && b.Flag.Carrier == targetID {
		b.Flag.Carrier = ""
		if victim, ok := h.players[targetID]; ok {
			b.Flag.Pos = victim.Pos
		}
		h.rooms.Broadcast(b.ID, Envelope{T: MsgFlagUpdate, Data: FlagUpdateMsg{Pos: b.Flag.Pos}})
	}
}

// battleRespawn resets a dead combatant at a fresh elevated spawn
func (h *Hub) battleRespawn(p *Player) {
	b, c := h.combatant(p)
	if b == nil || !c.Dead {
		return
	}
	c.Dead = false
	c.HP = c.MaxHP
	c.Ammo = battleMaxAmmo
	c.LastRespawn = time.Now()

	p.Pos = b.Origin.Add(Vec3{
		X: randRange(-respawnSpreadXZ, respawnSpreadXZ),
		Y: respawnLiftY + randRange(0, 80),
		Z: randRange(-respawnSpreadXZ, respawnSpreadXZ),
	})
	h.rooms.Broadcast(b.ID, Envelope{T: MsgRespawned, Data: RespawnedMsg{
		PlayerID: p.ID,
		Pos:      p.Pos,
		HP:       c.HP,
		Ammo:     c.Ammo,
	}})
}

// battleCollect applies a pickup's effect, deactivates it, and
// schedules its reactivation. The timer re-validates that the session
// and pickup still exist — a deleted session discards the respawn.
func (h *Hub) battleCollect(p *Player, pickupID string) {
	b, c := h.combatant(p)
	if b == nil || c.Dead {
		return
	}
	pk, ok := b.Pickups[pickupID]
	if !ok || !pk.Active {
		return
	}

	switch pk.Kind {
	case PickupHealth:
		c.HP = ClampInt(c.HP+pickupHealAmount, 0, c.MaxHP)
	case PickupAmmo:
		c.Ammo = ClampInt(c.Ammo+pickupAmmoAmount, 0, battleMaxAmmo)
	case PickupPowerup:
		h.rooms.Broadcast(b.ID, Envelope{T: MsgPowerup, Data: PowerupMsg{
			PlayerID: p.ID,
			Seconds:  powerupSeconds,
		}})
	}

	pk.Active = false
	h.rooms.Broadcast(b.ID, Envelope{T: MsgPickupTaken, Data: PickupTakenMsg{
		PickupID: pickupID,
		PlayerID: p.ID,
		Kind:     pk.Kind,
	}})

	battleID := b.ID
	h.schedule(h.cfg.PickupRespawnDelay, func() {
		h.respawnPickup(battleID, pickupID)
	})
}

// respawnPickup reactivates a pickup after its delay; no-op if the
// session was deleted in the meantime
func (h *Hub) respawnPickup(battleID, pickupID string) {
	b, ok := h.battles[battleID]
	if !ok {
		return
	}
	pk, ok := b.Pickups[pickupID]
	if !ok || pk.Active {
		return
	}
	pk.Active = true
	h.rooms.Broadcast(b.ID, Envelope{T: MsgPickupRespawn, Data: PickupRespawnMsg{PickupID: pickupID}})
}

// battleFlagPickup claims an uncarried flag within the pickup radius
// of the caller's last reported position
func (h *Hub) battleFlagPickup(p *Player) {
	b, c := h.combatant(p)
	if b == nil || b.Flag == nil || c.Dead {
		return
	}
	if b.Flag.Carrier != "" {
		return
	}
	if Distance(p.Pos, b.Flag.Pos) > flagPickupRadius {
		return
	}
	b.Flag.Carrier = p.ID
	h.rooms.Broadcast(b.ID, Envelope{T: MsgFlagUpdate, Data: FlagUpdateMsg{
		Carrier: p.ID,
		Pos:     b.Flag.Pos,
	}})
}

// battleFlagSteal reassigns the carrier atomically when the stealer
// is within the (slightly larger) steal radius of the carrier
func (h *Hub) battleFlagSteal(p *Player, targetID string) {
	b, c := h.combatant(p)
	if b == nil || b.Flag == nil || c.Dead {
		return
	}
	if b.Flag.Carrier != targetID || targetID == p.ID {
		return
	}
	carrier, ok := h.players[targetID]
	if !ok {
		return
	}
	if Distance(p.Pos, carrier.Pos) > flagStealRadius {
		return
	}
	b.Flag.Carrier = p.ID
	h.rooms.Broadcast(b.ID, Envelope{T: MsgFlagUpdate, Data: FlagUpdateMsg{
		Carrier: p.ID,
		Pos:     b.Flag.Pos,
	}})
}

// battleFlagScore scores a capture at the opposing team's base,
// resets the flag home, and broadcasts both updates
func (h *Hub) battleFlagScore(p *Player) {
	b, c := h.combatant(p)
	if b == nil || b.Flag == nil || c.Dead {
		return
	}
	if b.Flag.Carrier != p.ID {
		return
	}

	goal := b.Flag.RedBase
	if c.Team == TeamRed {
		goal = b.Flag.BlueBase
	}
	if Distance(p.Pos, goal) > flagGoalRadius {
		return
	}

	b.TeamScores[c.Team]++
	b.Flag.Carrier = ""
	b.Flag.Pos = b.Flag.Home

	h.rooms.Broadcast(b.ID, Envelope{T: MsgTeamScore, Data: TeamScoreMsg{
		Red:  b.TeamScores[TeamRed],
		Blue: b.TeamScores[TeamBlue],
	}})
	h.rooms.Broadcast(b.ID, Envelope{T: MsgFlagUpdate, Data: FlagUpdateMsg{Pos: b.Flag.Pos}})
}

// battleLeave removes a player from their battle; the session is
// destroyed once its player set empties. Pending pickup timers find
// the session gone and discard themselves.
func (h *Hub) battleLeave(p *Player) {
	if p.Membership.Kind != MemberBattle {
		return
	}
	b, ok := h.battles[p.Membership.ID]
	if !ok {
		p.Membership = Membership{}
		return
	}

	if b.Flag != nil && b.Flag.Carrier == p.ID {
		b.Flag.Carrier = ""
		b.Flag.Pos = p.Pos
		h.rooms.Broadcast(b.ID, Envelope{T: MsgFlagUpdate, Data: FlagUpdateMsg{Pos: b.Flag.Pos}})
	}

	delete(b.Players, p.ID)
	h.rooms.Leave(b.ID, p.client)
	p.Membership = Membership{}
	h.rooms.Broadcast(b.ID, Envelope{T: MsgPlayerLeft, Data: map[string]string{"id": p.ID}})

	if len(b.Players) == 0 {
		delete(h.battles, b.ID)
		h.rooms.Close(b.ID)
		log.Printf("battle %s ended", b.ID)
	}
}
