package main

import (
	"errors"
	"sync"
)

const maxRooms = 500

// ErrTooManyRooms is returned when the server is hosting its room limit
var ErrTooManyRooms = errors.New("server is full, try again later")

// RoomManager tracks the active rooms by id
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Game
	limit int
}

// NewRoomManager creates an empty manager
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*Game),
		limit: maxRooms,
	}
}

// Add registers a room. Returns ErrTooManyRooms if the limit is reached.
func (rm *RoomManager) Add(g *Game) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if len(rm.rooms) >= rm.limit {
		return ErrTooManyRooms
	}
	rm.rooms[g.ID] = g
	return nil
}

// Get returns a room by id, or nil
func (rm *RoomManager) Get(id string) *Game {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[id]
}

// Remove forgets a room. Returns false if it was not registered.
func (rm *RoomManager) Remove(id string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.rooms[id]; !ok {
		return false
	}
	delete(rm.rooms, id)
	return true
}

// Count returns the number of active rooms
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// CancelAll ends every active room without a result
func (rm *RoomManager) CancelAll() {
	rm.mu.RLock()
	games := make([]*Game, 0, len(rm.rooms))
	for _, g := range rm.rooms {
		games = append(games, g)
	}
	rm.mu.RUnlock()

	for _, g := range games {
		g.Cancel()
	}
}
