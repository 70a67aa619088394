package main

import (
	"encoding/json"
	"log"
)

// Broadcaster is the per-connection send interface. The concrete
// implementation is *Client; tests substitute a mock.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendRaw(data []byte)
	SendBinary(data []byte)
}

// RoomSet maps a session id to its subscriber connections. Room
// membership is tracked separately from the session's own member
// list — the two can transiently diverge during lobby-to-session
// transitions. Only the hub reactor touches it, so no locking.
type RoomSet struct {
	rooms map[string]map[Broadcaster]bool
}

// NewRoomSet creates an empty RoomSet
func NewRoomSet() *RoomSet {
	return &RoomSet{rooms: make(map[string]map[Broadcaster]bool)}
}

// Join subscribes a connection to a room, creating it if needed
func (rs *RoomSet) Join(room string, c Broadcaster) {
	if c == nil {
		return
	}
	subs, ok := rs.rooms[room]
	if !ok {
		subs = make(map[Broadcaster]bool)
		rs.rooms[room] = subs
	}
	subs[c] = true
}

// Leave unsubscribes a connection; empty rooms are dropped
func (rs *RoomSet) Leave(room string, c Broadcaster) {
	subs, ok := rs.rooms[room]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(rs.rooms, room)
	}
}

// Close removes a room and all its subscribers
func (rs *RoomSet) Close(room string) {
	delete(rs.rooms, room)
}

// Broadcast marshals once and sends to every subscriber
func (rs *RoomSet) Broadcast(room string, env Envelope) {
	subs, ok := rs.rooms[room]
	if !ok {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("room marshal error: %v", err)
		return
	}
	for c := range subs {
		c.SendRaw(data)
	}
}

// BroadcastExcept sends to every subscriber but one
func (rs *RoomSet) BroadcastExcept(room string, except Broadcaster, env Envelope) {
	subs, ok := rs.rooms[room]
	if !ok {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("room marshal error: %v", err)
		return
	}
	for c := range subs {
		if c == except {
			continue
		}
		c.SendRaw(data)
	}
}

// Size returns the subscriber count of a room
func (rs *RoomSet) Size(room string) int {
	return len(rs.rooms[room])
}
