package main

import (
	"fmt"
	"sync"
)

// Status is where a connected player currently is
type Status int

const (
	StatusWaiting Status = iota
	StatusQueued
	StatusReady
	StatusPlaying
	StatusSpectating
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusQueued:
		return "QUEUED"
	case StatusReady:
		return "READY"
	case StatusPlaying:
		return "PLAYING"
	case StatusSpectating:
		return "SPECTATING"
	case StatusEnded:
		return "ENDED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Conn is the outbound half of a live connection. Sends never block.
type Conn interface {
	SendJSON(msg interface{})
	SendState(update GameUpdate)
}

// Session is the live state of one connected identity
type Session struct {
	UserID   int64
	Username string

	mu       sync.Mutex
	conn     Conn
	status   Status
	roomID   string
	playerNo int // 1, 2, or 0 when unassigned
}

// Info returns the public identity of the session
func (s *Session) Info() PlayerInfo {
	return PlayerInfo{ID: s.UserID, Username: s.Username}
}

// Conn returns the current connection handle
func (s *Session) Conn() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Send delivers a message to whichever connection currently backs the session
func (s *Session) Send(msg Envelope) {
	if c := s.Conn(); c != nil {
		c.SendJSON(msg)
	}
}

// SendState delivers a snapshot to the current connection
func (s *Session) SendState(update GameUpdate) {
	if c := s.Conn(); c != nil {
		c.SendState(update)
	}
}

// Status returns the current status
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Room returns the current room id and player slot
func (s *Session) Room() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.playerNo
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// setStatusIfIn changes the status only while the session is still in roomID
func (s *Session) setStatusIfIn(roomID string, status Status) {
	s.mu.Lock()
	if s.roomID == roomID {
		s.status = status
	}
	s.mu.Unlock()
}

// inMatchLocked reports whether the session is owned by a room
func (s *Session) inMatchLocked() bool {
	return s.roomID != ""
}

// InMatch reports whether the session is owned by a room
func (s *Session) InMatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inMatchLocked()
}

// leaveRoom returns the session to WAITING if it still belongs to roomID
func (s *Session) leaveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != roomID {
		return
	}
	s.roomID = ""
	s.playerNo = 0
	s.status = StatusWaiting
}

// setWaitingIfIdle returns the session to WAITING unless a room owns it
func (s *Session) setWaitingIfIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == "" {
		s.status = StatusWaiting
	}
}

// reservePair assigns both sessions to roomID as player 1 and player 2.
// It fails without touching either session if one of them already belongs
// to a room, so a session can never be a member of two rooms.
func reservePair(p1, p2 *Session, roomID string) error {
	if p1 == p2 || p1.UserID == p2.UserID {
		return ErrSelfInvite
	}
	first, second := p1, p2
	if second.UserID < first.UserID {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if p1.inMatchLocked() || p2.inMatchLocked() {
		return ErrAlreadyInMatch
	}
	p1.roomID, p1.playerNo, p1.status = roomID, 1, StatusReady
	p2.roomID, p2.playerNo, p2.status = roomID, 2, StatusReady
	return nil
}

// SessionRegistry maps an identity to its live session
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[int64]*Session)}
}

// Set creates the session for id, or points an existing one at conn.
// A reconnect keeps the session's status and room.
func (r *SessionRegistry) Set(id Identity, conn Conn) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id.ID]; ok {
		sess.mu.Lock()
		sess.conn = conn
		sess.mu.Unlock()
		return sess
	}
	sess := &Session{
		UserID:   id.ID,
		Username: id.Username,
		conn:     conn,
		status:   StatusWaiting,
	}
	r.sessions[id.ID] = sess
	return sess
}

// Get returns the session for userID, or nil
func (r *SessionRegistry) Get(userID int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// Remove deletes the session for userID. When conn is non-nil the session is
// only removed if conn is still its connection, so a stale socket closing
// after a reconnect leaves the new one alone. Returns the removed session.
func (r *SessionRegistry) Remove(userID int64, conn Conn) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	if conn != nil && sess.Conn() != conn {
		return nil
	}
	delete(r.sessions, userID)
	return sess
}

// Count returns the number of live sessions
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
