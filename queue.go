package main

import (
	"sync"
	"time"
)

// Variant selects which matchmaking queue a player joins
type Variant int

const (
	VariantDefault Variant = iota
	VariantWall
)

// VariantOf maps the hasMiddleWall flag to a queue variant
func VariantOf(hasMiddleWall bool) Variant {
	if hasMiddleWall {
		return VariantWall
	}
	return VariantDefault
}

// HasMiddleWall reports whether rooms of this variant get a middle wall
func (v Variant) HasMiddleWall() bool {
	return v == VariantWall
}

func (v Variant) String() string {
	if v == VariantWall {
		return "wall"
	}
	return "default"
}

var variants = [...]Variant{VariantDefault, VariantWall}

// QueueEntry is one waiting player
type QueueEntry struct {
	Session  *Session
	JoinedAt time.Time
}

// MatchQueue holds one FIFO queue per variant and pairs the two oldest
// entries as soon as a queue reaches two.
type MatchQueue struct {
	mu       sync.Mutex
	queues   [len(variants)][]QueueEntry
	onChange func(v Variant, length int)
}

// NewMatchQueue creates empty queues. onChange, if set, is called with the
// new length whenever a queue changes.
func NewMatchQueue(onChange func(v Variant, length int)) *MatchQueue {
	return &MatchQueue{onChange: onChange}
}

// Enqueue appends s to the v queue and immediately tries to pair. When a
// pair is formed the oldest entry is returned first and becomes player 1.
func (q *MatchQueue) Enqueue(s *Session, v Variant) (p1, p2 *Session, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if s.InMatch() {
		return nil, nil, ErrAlreadyInMatch
	}
	if q.indexLocked(s.UserID, v) >= 0 {
		return nil, nil, ErrAlreadyQueued
	}
	q.queues[v] = append(q.queues[v], QueueEntry{Session: s, JoinedAt: time.Now()})
	s.setStatus(StatusQueued)

	p1, p2 = q.tryPairLocked(v)
	q.notifyLocked()
	return p1, p2, nil
}

// tryPairLocked pops the two oldest entries of v, dropping them from the
// other queue as well so neither can be paired twice.
func (q *MatchQueue) tryPairLocked(v Variant) (*Session, *Session) {
	if len(q.queues[v]) < 2 {
		return nil, nil
	}
	p1 := q.queues[v][0].Session
	p2 := q.queues[v][1].Session
	q.queues[v] = q.queues[v][2:]
	for _, other := range variants {
		if other == v {
			continue
		}
		q.removeLocked(p1.UserID, other)
		q.removeLocked(p2.UserID, other)
	}
	return p1, p2
}

// Requeue puts s back at the head of the v queue. Used when a pair popped
// from the queue could not be seated.
func (q *MatchQueue) Requeue(s *Session, v Variant) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if s.InMatch() || q.indexLocked(s.UserID, v) >= 0 {
		return
	}
	q.queues[v] = append([]QueueEntry{{Session: s, JoinedAt: time.Now()}}, q.queues[v]...)
	s.setStatus(StatusQueued)
	q.notifyLocked()
}

// Pair pops the two oldest entries of v if there are at least two
func (q *MatchQueue) Pair(v Variant) (*Session, *Session) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p1, p2 := q.tryPairLocked(v)
	if p1 != nil {
		q.notifyLocked()
	}
	return p1, p2
}

// Remove drops userID from the v queue. Returns false if it was not queued.
func (q *MatchQueue) Remove(userID int64, v Variant) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	ok := q.removeLocked(userID, v)
	if ok {
		q.notifyLocked()
	}
	return ok
}

// RemoveAll drops userID from every queue
func (q *MatchQueue) RemoveAll(userID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := false
	for _, v := range variants {
		if q.removeLocked(userID, v) {
			removed = true
		}
	}
	if removed {
		q.notifyLocked()
	}
	return removed
}

// Queued reports whether userID is waiting in any queue
func (q *MatchQueue) Queued(userID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, v := range variants {
		if q.indexLocked(userID, v) >= 0 {
			return true
		}
	}
	return false
}

// Len returns the number of entries waiting in the v queue
func (q *MatchQueue) Len(v Variant) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[v])
}

func (q *MatchQueue) indexLocked(userID int64, v Variant) int {
	for i, e := range q.queues[v] {
		if e.Session.UserID == userID {
			return i
		}
	}
	return -1
}

func (q *MatchQueue) removeLocked(userID int64, v Variant) bool {
	i := q.indexLocked(userID, v)
	if i < 0 {
		return false
	}
	q.queues[v] = append(q.queues[v][:i], q.queues[v][i+1:]...)
	return true
}

func (q *MatchQueue) notifyLocked() {
	if q.onChange == nil {
		return
	}
	for _, v := range variants {
		q.onChange(v, len(q.queues[v]))
	}
}
