package main

import (
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/blake2b"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

// Client represents a WebSocket connection
type Client struct {
	conn       *websocket.Conn
	send       chan []byte
	playerID   string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	closeOnce  sync.Once
}

// Fingerprint derives the weak client identity used only for score
// lookup: a short digest of network address + client signature.
// Session continuity, not authentication.
func Fingerprint(remoteAddr, signature string) string {
	sum := blake2b.Sum256([]byte(remoteAddr + "|" + signature))
	return hex.EncodeToString(sum[:8])
}

// NewClient creates a new Client with a pre-assigned player id
func NewClient(conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		playerID:   GenerateID(4),
		remoteAddr: remoteAddr,
	}
}

// Close forcibly terminates the connection (liveness sweep path)
func (c *Client) Close() {
	c.closeOnce.Do(func() { c.conn.Close() })
}

// ReadPump reads messages from the WebSocket connection and posts
// them to the hub reactor
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.TrackDisconnect(c.remoteAddr)
		id := c.playerID
		h.post(func() { h.disconnect(id) })
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Transport-level flood guard, not a gameplay rate cap
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(h, message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF marker distinguishes binary frames (SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends bytes as a binary WebSocket message, prefixed with
// the 0xFF marker so WritePump can distinguish it from text
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage decodes the envelope and posts the matching handler
// to the reactor (single-pass decode via InEnvelope)
func (c *Client) handleMessage(h *Hub, raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	id := c.playerID
	switch env.T {
	case MsgMove:
		var m MoveMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() { h.updateTransform(id, m.Pos, m.Rot) })

	case MsgLobbyCreate:
		var m LobbyCreateMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.lobbyCreate(p, m.Spawn, m.GameType, m.BattleMode)
			}
		})

	case MsgLobbyJoin:
		var m LobbyJoinMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.lobbyJoin(p, m.LobbyID)
			}
		})

	case MsgLobbyReady:
		var m LobbyReadyMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.lobbySetReady(p, m.Ready)
			}
		})

	case MsgLobbyStart:
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.lobbyStart(p)
			}
		})

	case MsgLobbyLeave:
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.lobbyLeave(p)
			}
		})

	case MsgCheckpoint:
		var m CheckpointMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.raceCheckpoint(p, m.Count)
			}
		})

	case MsgRaceLeave:
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.raceLeave(p)
			}
		})

	case MsgRaceWin:
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.raceWin(p)
			}
		})

	case MsgShoot:
		var m ShootMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.battleShoot(p, m.Pos, m.Vel, m.Kind)
			}
		})

	case MsgHit:
		var m HitMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.battleHit(p, m.TargetID, m.Damage)
			}
		})

	case MsgRespawn:
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.battleRespawn(p)
			}
		})

	case MsgPickup:
		var m PickupMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.battleCollect(p, m.PickupID)
			}
		})

	case MsgFlagPickup:
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.battleFlagPickup(p)
			}
		})

	case MsgFlagSteal:
		var m FlagStealMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.battleFlagSteal(p, m.TargetID)
			}
		})

	case MsgFlagScore:
		h.post(func() {
			if p := h.players[id]; p != nil {
				h.battleFlagScore(p)
			}
		})
	}
}
